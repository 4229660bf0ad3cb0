package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/kv"
	"github.com/malonaz/popchat/internal/llm"
)

// Keys of the storage area.
const (
	ConversationsKey = "conversations"
	LastActiveKey    = "lastActiveConversationId"
	SettingsKey      = "apiSettings"
)

// ErrConversationNotFound is returned when no conversation has the requested id.
var ErrConversationNotFound = errors.New("conversation not found")

// Clock returns the current time.
type Clock func() time.Time

// Store persists conversations, the last active conversation and the api settings in
// a storage area.
type Store struct {
	area  kv.Area
	clock Clock

	lock     sync.RWMutex
	metadata []*Metadata
}

// New instantiates and returns a new store. Accepted options are Clock.
func New(area kv.Area, options ...any) *Store {
	store := &Store{
		area:  area,
		clock: time.Now,
	}
	for _, option := range options {
		switch t := option.(type) {
		case Clock:
			store.clock = t
		default:
			panic(fmt.Errorf("unknown option type %T", option))
		}
	}
	return store
}

// Metadata returns a copy of the metadata of every conversation, in storage order.
// It is refreshed by every operation that reads or writes the conversation list.
func (s *Store) Metadata() []*Metadata {
	s.lock.RLock()
	defer s.lock.RUnlock()
	metadata := make([]*Metadata, 0, len(s.metadata))
	for _, m := range s.metadata {
		copied := *m
		metadata = append(metadata, &copied)
	}
	return metadata
}

// publish the metadata projection of the given list.
func (s *Store) publish(conversations []*Conversation) {
	metadata := make([]*Metadata, 0, len(conversations))
	for _, conversation := range conversations {
		metadata = append(metadata, conversation.Metadata())
	}
	s.lock.Lock()
	s.metadata = metadata
	s.lock.Unlock()
}

// LastActive returns the id of the last active conversation, or "" if there is none.
func (s *Store) LastActive(ctx context.Context) (string, error) {
	bytes, err := s.area.Get(ctx, LastActiveKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "reading last active conversation")
	}
	var id string
	if err := json.Unmarshal(bytes, &id); err != nil {
		return "", errors.Wrap(err, "unmarshaling last active conversation")
	}
	return id, nil
}

func (s *Store) setLastActive(ctx context.Context, id string) error {
	bytes, err := json.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "marshaling last active conversation")
	}
	if err := s.area.Set(ctx, LastActiveKey, bytes); err != nil {
		return errors.Wrap(err, "writing last active conversation")
	}
	return nil
}

// readConversations returns the stored list and publishes its metadata.
func (s *Store) readConversations(ctx context.Context) ([]*Conversation, error) {
	bytes, err := s.area.Get(ctx, ConversationsKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, errors.Wrap(err, "reading conversations")
	}
	conversations, err := decodeConversations(bytes)
	if err != nil {
		return nil, err
	}
	s.publish(conversations)
	return conversations, nil
}

// updateConversations runs a read-modify-write of the list and publishes the written list.
func (s *Store) updateConversations(ctx context.Context, fn func([]*Conversation) ([]*Conversation, error)) error {
	var written []*Conversation
	err := s.area.Update(ctx, ConversationsKey, func(value []byte, found bool) ([]byte, error) {
		conversations, err := decodeConversations(value)
		if err != nil {
			return nil, err
		}
		if conversations, err = fn(conversations); err != nil {
			return nil, err
		}
		written = conversations
		return encodeConversations(conversations)
	})
	if err != nil {
		return errors.Wrap(err, "updating conversations")
	}
	s.publish(written)
	return nil
}

func decodeConversations(bytes []byte) ([]*Conversation, error) {
	conversations := []*Conversation{}
	if len(bytes) == 0 {
		return conversations, nil
	}
	if err := json.Unmarshal(bytes, &conversations); err != nil {
		return nil, errors.Wrap(err, "unmarshaling conversations")
	}
	return conversations, nil
}

func encodeConversations(conversations []*Conversation) ([]byte, error) {
	for _, conversation := range conversations {
		if conversation.Messages == nil {
			conversation.Messages = []*llm.Message{}
		}
	}
	bytes, err := json.Marshal(conversations)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling conversations")
	}
	return bytes, nil
}

func indexOf(conversations []*Conversation, id string) int {
	for i, conversation := range conversations {
		if conversation.ID == id {
			return i
		}
	}
	return -1
}
