package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Role of a message author.
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)

// PartType tags the variant of a Part.
type PartType string

const (
	TextPartType  PartType = "text"
	ImagePartType PartType = "image"
)

// Part is one unit of multi-modal content. Exactly one variant is populated.
type Part struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	Data     string   `json:"data,omitempty"` // Base64 encoded image data.
	MimeType string   `json:"mimeType,omitempty"`
}

// NewTextPart instantiates and returns a text part.
func NewTextPart(text string) *Part {
	return &Part{Type: TextPartType, Text: text}
}

// NewImagePart instantiates and returns an image part.
func NewImagePart(data, mimeType string) *Part {
	return &Part{Type: ImagePartType, Data: data, MimeType: mimeType}
}

// Validate that exactly one variant of the part is populated.
func (p *Part) Validate() error {
	switch p.Type {
	case TextPartType:
		if p.Data != "" || p.MimeType != "" {
			return errors.New("text part carries image fields")
		}
	case ImagePartType:
		if p.Text != "" {
			return errors.New("image part carries text")
		}
		if p.Data == "" {
			return errors.New("image part has no data")
		}
	default:
		return errors.Errorf("unknown part type %q", p.Type)
	}
	return nil
}

// Message of a conversation. Content is either Text or, when Parts is non-nil, a
// sequence of parts.
type Message struct {
	Role  Role
	Text  string
	Parts []*Part
}

// NewUserMessage creates a new user message with string content.
func NewUserMessage(text string) *Message {
	return &Message{Role: UserRole, Text: text}
}

// NewAssistantMessage creates a new assistant message with string content.
func NewAssistantMessage(text string) *Message {
	return &Message{Role: AssistantRole, Text: text}
}

// NewMultiModalMessage creates a message with part content.
func NewMultiModalMessage(role Role, parts ...*Part) *Message {
	if parts == nil {
		parts = []*Part{}
	}
	return &Message{Role: role, Parts: parts}
}

// IsMultiModal returns true if the content is a sequence of parts.
func (m *Message) IsMultiModal() bool { return m.Parts != nil }

// TextContent returns the string content, or the text parts joined by spaces.
func (m *Message) TextContent() string {
	if !m.IsMultiModal() {
		return m.Text
	}
	texts := make([]string, 0, len(m.Parts))
	for _, part := range m.Parts {
		if part.Type == TextPartType {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, " ")
}

// HasImage returns true if any part is an image.
func (m *Message) HasImage() bool {
	for _, part := range m.Parts {
		if part.Type == ImagePartType {
			return true
		}
	}
	return false
}

// IsEmpty returns true if the message carries neither text nor images.
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(m.TextContent()) == "" && !m.HasImage()
}

type messageJSON struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes content as a string or an array of parts.
func (m Message) MarshalJSON() ([]byte, error) {
	var content any = m.Text
	if m.Parts != nil {
		for i, part := range m.Parts {
			if err := part.Validate(); err != nil {
				return nil, errors.Wrapf(err, "validating part %d", i)
			}
		}
		content = m.Parts
	}
	bytes, err := json.Marshal(content)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling content")
	}
	return json.Marshal(&messageJSON{Role: m.Role, Content: bytes})
}

// UnmarshalJSON decodes string or part content.
func (m *Message) UnmarshalJSON(bytes []byte) error {
	raw := &messageJSON{}
	if err := json.Unmarshal(bytes, raw); err != nil {
		return errors.Wrap(err, "unmarshaling message")
	}
	if raw.Role != UserRole && raw.Role != AssistantRole {
		return errors.Errorf("unknown role %q", raw.Role)
	}
	*m = Message{Role: raw.Role}
	content := strings.TrimSpace(string(raw.Content))
	switch {
	case content == "" || content == "null":
	case strings.HasPrefix(content, "["):
		m.Parts = []*Part{}
		if err := json.Unmarshal(raw.Content, &m.Parts); err != nil {
			return errors.Wrap(err, "unmarshaling parts")
		}
		for i, part := range m.Parts {
			if err := part.Validate(); err != nil {
				return errors.Wrapf(err, "validating part %d", i)
			}
		}
	default:
		if err := json.Unmarshal(raw.Content, &m.Text); err != nil {
			return errors.Wrap(err, "unmarshaling text content")
		}
	}
	return nil
}

// Config for a single provider.
type Config struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
	Model   string `json:"model,omitempty"`
}

// Settings holds the config of every provider.
type Settings struct {
	Gemini   Config `json:"gemini"`
	OpenAI   Config `json:"openai"`
	Cerebras Config `json:"cerebras"`
}

// For returns the config of the given provider.
func (s *Settings) For(provider Provider) (*Config, bool) {
	switch provider {
	case Gemini:
		return &s.Gemini, true
	case OpenAI:
		return &s.OpenAI, true
	case Cerebras:
		return &s.Cerebras, true
	}
	return nil, false
}

// SettingsSource returns the settings in effect for a send.
type SettingsSource interface {
	Settings(ctx context.Context) (*Settings, error)
}

// Sender sends a message history to a provider and returns the reply text.
type Sender interface {
	Send(ctx context.Context, provider Provider, messages []*Message) (string, error)
}
