package store

import (
	"context"
	"encoding/json"

	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/kv"
	"github.com/malonaz/popchat/internal/llm"
)

var _ llm.SettingsSource = (*Store)(nil)

// CerebrasBaseURL is the default base URL of the cerebras provider.
const CerebrasBaseURL = "https://api.cerebras.ai/v1"

// DefaultSettings returns the settings used for any field left empty.
func DefaultSettings() *llm.Settings {
	return &llm.Settings{
		Gemini:   llm.Config{Model: "gemini-2.5-pro"},
		OpenAI:   llm.Config{Model: "gpt-4"},
		Cerebras: llm.Config{Model: "gpt-oss-120b", BaseURL: CerebrasBaseURL},
	}
}

// StoredSettings returns the settings as stored, without defaults.
func (s *Store) StoredSettings(ctx context.Context) (*llm.Settings, error) {
	settings := &llm.Settings{}
	bytes, err := s.area.Get(ctx, SettingsKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return settings, nil
		}
		return nil, errors.Wrap(err, "reading api settings")
	}
	if err := json.Unmarshal(bytes, settings); err != nil {
		return nil, errors.Wrap(err, "unmarshaling api settings")
	}
	return settings, nil
}

// Settings returns the stored settings merged over the defaults. It is read on every send.
func (s *Store) Settings(ctx context.Context) (*llm.Settings, error) {
	settings, err := s.StoredSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(settings, DefaultSettings()); err != nil {
		return nil, errors.Wrap(err, "merging default api settings")
	}
	return settings, nil
}

// SaveSettings replaces the stored settings.
func (s *Store) SaveSettings(ctx context.Context, settings *llm.Settings) error {
	bytes, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshaling api settings")
	}
	if err := s.area.Set(ctx, SettingsKey, bytes); err != nil {
		return errors.Wrap(err, "writing api settings")
	}
	return nil
}

// UpdateSettings runs a read-modify-write of the stored settings.
func (s *Store) UpdateSettings(ctx context.Context, fn func(*llm.Settings) error) error {
	err := s.area.Update(ctx, SettingsKey, func(value []byte, found bool) ([]byte, error) {
		settings := &llm.Settings{}
		if found && len(value) > 0 {
			if err := json.Unmarshal(value, settings); err != nil {
				return nil, errors.Wrap(err, "unmarshaling api settings")
			}
		}
		if err := fn(settings); err != nil {
			return nil, err
		}
		return json.Marshal(settings)
	})
	if err != nil {
		return errors.Wrap(err, "updating api settings")
	}
	return nil
}
