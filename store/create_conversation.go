package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/llm"
)

// Create, save and return a new empty conversation. It becomes the last active one.
func (s *Store) Create(ctx context.Context, provider llm.Provider) (*Conversation, error) {
	if !provider.Valid() {
		return nil, errors.Errorf("unsupported provider %q", provider)
	}
	// Version 7 ids are time ordered.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "generating conversation id")
	}
	conversation := &Conversation{
		ID:          id.String(),
		Title:       DefaultTitle,
		LastUpdated: s.clock().UnixMilli(),
		Provider:    provider,
		Messages:    []*llm.Message{},
	}
	if err := s.Save(ctx, conversation); err != nil {
		return nil, errors.Wrap(err, "saving new conversation")
	}
	if err := s.setLastActive(ctx, conversation.ID); err != nil {
		return nil, err
	}
	return conversation, nil
}
