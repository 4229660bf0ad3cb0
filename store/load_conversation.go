package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/llm"
)

// LoadAll reads every conversation, refreshes the metadata and returns the conversation
// to resume: the last active one if it still exists, else the first stored one, else a
// new conversation with the default provider. The returned conversation becomes the last
// active one.
func (s *Store) LoadAll(ctx context.Context, defaultProvider llm.Provider) (*Conversation, error) {
	conversations, err := s.readConversations(ctx)
	if err != nil {
		return nil, err
	}
	lastActiveID, err := s.LastActive(ctx)
	if err != nil {
		return nil, err
	}
	if lastActiveID != "" {
		if i := indexOf(conversations, lastActiveID); i >= 0 {
			return conversations[i], nil
		}
	}
	if len(conversations) > 0 {
		if err := s.setLastActive(ctx, conversations[0].ID); err != nil {
			return nil, err
		}
		return conversations[0], nil
	}
	return s.Create(ctx, defaultProvider)
}

// Load a conversation and make it the last active one. Returns ErrConversationNotFound
// if it does not exist, in which case nothing changes.
func (s *Store) Load(ctx context.Context, id string) (*Conversation, error) {
	conversation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.setLastActive(ctx, conversation.ID); err != nil {
		return nil, err
	}
	return conversation, nil
}

// Get a conversation without touching the last active one.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	conversations, err := s.readConversations(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(conversations, id)
	if i < 0 {
		return nil, errors.Wrapf(ErrConversationNotFound, "conversation %s", id)
	}
	return conversations[i], nil
}

// List every conversation, in storage order.
func (s *Store) List(ctx context.Context) ([]*Conversation, error) {
	return s.readConversations(ctx)
}
