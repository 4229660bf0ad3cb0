package store

import (
	"slices"
	"strings"
	"time"

	"github.com/malonaz/popchat/internal/llm"
)

const (
	// DefaultTitle of a new conversation.
	DefaultTitle = "New Chat"
	// ImageTitle of a conversation whose first message has no text.
	ImageTitle = "New Chat with Image"

	maxTitleLength = 30
)

// Conversation represents a conversation with a provider.
type Conversation struct {
	// ID of this conversation.
	ID string `json:"id"`
	// Title, derived from the first message.
	Title string `json:"title"`
	// Time at which this conversation was last updated, in unix milliseconds.
	LastUpdated int64 `json:"lastUpdated"`
	// The provider this conversation talks to.
	Provider llm.Provider `json:"provider"`
	// The messages of this conversation.
	Messages []*llm.Message `json:"messages"`
}

// Metadata is a conversation without its messages.
type Metadata struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	LastUpdated int64        `json:"lastUpdated"`
	Provider    llm.Provider `json:"provider"`
}

// Metadata returns the metadata of this conversation.
func (c *Conversation) Metadata() *Metadata {
	return &Metadata{
		ID:          c.ID,
		Title:       c.Title,
		LastUpdated: c.LastUpdated,
		Provider:    c.Provider,
	}
}

// Clone returns a copy of this conversation. Messages are immutable so they are shared.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = slices.Clone(c.Messages)
	return &clone
}

// UpdateTime returns the LastUpdated timestamp as a time.
func (m *Metadata) UpdateTime() time.Time {
	return time.UnixMilli(m.LastUpdated)
}

// SortByRecency sorts metadata most recently updated first.
func SortByRecency(metadata []*Metadata) {
	slices.SortStableFunc(metadata, func(a, b *Metadata) int {
		switch {
		case a.LastUpdated > b.LastUpdated:
			return -1
		case a.LastUpdated < b.LastUpdated:
			return 1
		}
		return 0
	})
}

// DeriveTitle returns the title of a conversation given its first message: the first
// 30 characters of its text, or a placeholder if it has none.
func DeriveTitle(message *llm.Message) string {
	text := message.TextContent()
	if strings.TrimSpace(text) == "" {
		if message.HasImage() {
			return ImageTitle
		}
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength]) + "..."
	}
	return text
}
