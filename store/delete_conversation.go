package store

import (
	"context"
	"slices"

	"github.com/pkg/errors"
)

// Delete a conversation. The last active pointer is cleared if it referenced it.
// Deleting an unknown conversation is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.updateConversations(ctx, func(conversations []*Conversation) ([]*Conversation, error) {
		return slices.DeleteFunc(conversations, func(c *Conversation) bool { return c.ID == id }), nil
	})
	if err != nil {
		return err
	}
	lastActiveID, err := s.LastActive(ctx)
	if err != nil {
		return err
	}
	if lastActiveID == id {
		if err := s.area.Remove(ctx, LastActiveKey); err != nil {
			return errors.Wrap(err, "clearing last active conversation")
		}
	}
	return nil
}
