package store

import (
	"context"

	"github.com/pkg/errors"
)

// Save a conversation. It replaces the stored conversation with the same id, or is
// appended to the list.
func (s *Store) Save(ctx context.Context, conversation *Conversation) error {
	if conversation == nil || conversation.ID == "" {
		return errors.New("conversation must have an id")
	}
	if !conversation.Provider.Valid() {
		return errors.Errorf("conversation %s has unsupported provider %q", conversation.ID, conversation.Provider)
	}
	conversation = conversation.Clone()
	return s.updateConversations(ctx, func(conversations []*Conversation) ([]*Conversation, error) {
		if i := indexOf(conversations, conversation.ID); i >= 0 {
			conversations[i] = conversation
			return conversations, nil
		}
		return append(conversations, conversation), nil
	})
}
