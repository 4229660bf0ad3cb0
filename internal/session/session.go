// Package session owns the state of a chat front end. State only changes through the
// controller's commands, and every change produces a new State.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/debounce"
	"github.com/malonaz/popchat/internal/debug"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/store"
)

// ErrorPrefix is prepended to the reply when a send fails.
const ErrorPrefix = "Error: "

var (
	// ErrBusy is returned while a message is being sent.
	ErrBusy = errors.New("a message is already being sent")
	// ErrEmptyMessage is returned when sending a message with neither text nor image.
	ErrEmptyMessage = errors.New("message is empty")
)

// ConversationStore persists conversations.
type ConversationStore interface {
	LoadAll(ctx context.Context, defaultProvider llm.Provider) (*store.Conversation, error)
	Load(ctx context.Context, id string) (*store.Conversation, error)
	Create(ctx context.Context, provider llm.Provider) (*store.Conversation, error)
	Save(ctx context.Context, conversation *store.Conversation) error
	Delete(ctx context.Context, id string) error
	Metadata() []*store.Metadata
}

// AutosaveDelay is the quiet period after which the active conversation is saved.
type AutosaveDelay time.Duration

// State is a snapshot of the session. It must not be modified.
type State struct {
	Provider       llm.Provider
	ConversationID string
	Title          string
	Messages       []*llm.Message
	Conversations  []*store.Metadata
	Busy           bool
}

func (s *State) clone() *State {
	clone := *s
	clone.Messages = slices.Clone(s.Messages)
	clone.Conversations = slices.Clone(s.Conversations)
	return &clone
}

// Controller executes the commands of a front end.
type Controller struct {
	store           ConversationStore
	sender          llm.Sender
	defaultProvider llm.Provider
	clock           store.Clock
	autosaver       *debounce.Debouncer

	lock  sync.Mutex
	state *State
}

// New instantiates and returns a new controller. Accepted options are AutosaveDelay and
// store.Clock.
func New(conversationStore ConversationStore, sender llm.Sender, defaultProvider llm.Provider, options ...any) *Controller {
	controller := &Controller{
		store:           conversationStore,
		sender:          sender,
		defaultProvider: defaultProvider,
		clock:           time.Now,
		state:           &State{Provider: defaultProvider},
	}
	autosaveDelay := debounce.DefaultDelay
	for _, option := range options {
		switch t := option.(type) {
		case AutosaveDelay:
			autosaveDelay = time.Duration(t)
		case store.Clock:
			controller.clock = t
		default:
			panic(fmt.Errorf("unknown option type %T", option))
		}
	}
	controller.autosaver = debounce.New(autosaveDelay)
	return controller
}

// State returns the current state.
func (c *Controller) State() *State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Init loads the conversation to resume.
func (c *Controller) Init(ctx context.Context) (*State, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	conversation, err := c.store.LoadAll(ctx, c.defaultProvider)
	if err != nil {
		return c.state, errors.Wrap(err, "loading conversations")
	}
	c.activate(conversation)
	return c.state, nil
}

// NewChat starts a new empty conversation with the current provider.
func (c *Controller) NewChat(ctx context.Context) (*State, error) {
	c.autosaver.Flush()
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.state.Busy {
		return c.state, ErrBusy
	}
	return c.newChat(ctx)
}

func (c *Controller) newChat(ctx context.Context) (*State, error) {
	conversation, err := c.store.Create(ctx, c.state.Provider)
	if err != nil {
		return c.state, errors.Wrap(err, "creating conversation")
	}
	c.activate(conversation)
	return c.state, nil
}

// LoadConversation makes the given conversation the active one. Unknown ids are ignored.
func (c *Controller) LoadConversation(ctx context.Context, id string) (*State, error) {
	c.autosaver.Flush()
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.state.Busy {
		return c.state, ErrBusy
	}
	conversation, err := c.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			debug.GetLogger().Info("ignoring unknown conversation", "id", id)
			return c.state, nil
		}
		return c.state, errors.Wrap(err, "loading conversation")
	}
	c.activate(conversation)
	return c.state, nil
}

// DeleteConversation deletes a conversation. Deleting the active conversation starts a
// new one.
func (c *Controller) DeleteConversation(ctx context.Context, id string) (*State, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.state.Busy {
		return c.state, ErrBusy
	}
	active := id == c.state.ConversationID
	if active {
		// A pending autosave would bring the conversation back.
		c.autosaver.Cancel()
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return c.state, errors.Wrap(err, "deleting conversation")
	}
	if active {
		return c.newChat(ctx)
	}
	state := c.state.clone()
	state.Conversations = c.store.Metadata()
	c.state = state
	return c.state, nil
}

// SetProvider changes the provider of the active conversation.
func (c *Controller) SetProvider(provider llm.Provider) (*State, error) {
	if !provider.Valid() {
		return c.State(), errors.Errorf("unsupported provider %q", provider)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	state := c.state.clone()
	state.Provider = provider
	c.state = state
	c.scheduleAutosave()
	return c.state, nil
}

// SendMessage appends a user message to the active conversation, sends the history to
// the provider and appends its reply. A failed send appends the error as the reply.
func (c *Controller) SendMessage(ctx context.Context, message *llm.Message) (*State, error) {
	logger := debug.GetLogger()
	c.lock.Lock()
	if c.state.Busy {
		c.lock.Unlock()
		return c.State(), ErrBusy
	}
	if message == nil || message.IsEmpty() {
		c.lock.Unlock()
		return c.State(), ErrEmptyMessage
	}
	if c.state.ConversationID == "" {
		if _, err := c.newChat(ctx); err != nil {
			c.lock.Unlock()
			return c.State(), err
		}
	}
	userMessage := *message
	userMessage.Role = llm.UserRole

	first := len(c.state.Messages) == 0
	state := c.state.clone()
	state.Messages = append(state.Messages, &userMessage)
	state.Busy = true
	if first {
		state.Title = store.DeriveTitle(&userMessage)
	}
	c.state = state
	conversationID, provider, history := state.ConversationID, state.Provider, state.Messages
	if first {
		if err := c.save(ctx); err != nil {
			logger.Warn("saving first message", "conversation", conversationID, "error", err)
			c.scheduleAutosave()
		}
	} else {
		c.scheduleAutosave()
	}
	c.lock.Unlock()

	reply, err := c.sender.Send(ctx, provider, history)
	if err != nil {
		reply = ErrorPrefix + err.Error()
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	state = c.state.clone()
	state.Busy = false
	if state.ConversationID == conversationID {
		state.Messages = append(state.Messages, llm.NewAssistantMessage(reply))
	}
	c.state = state
	c.scheduleAutosave()
	return c.state, nil
}

// Close flushes the pending autosave.
func (c *Controller) Close() {
	c.autosaver.Flush()
	c.autosaver.Stop()
}

// activate replaces the state with the given conversation. Must be called with the lock held.
func (c *Controller) activate(conversation *store.Conversation) {
	c.state = &State{
		Provider:       conversation.Provider,
		ConversationID: conversation.ID,
		Title:          conversation.Title,
		Messages:       slices.Clone(conversation.Messages),
		Conversations:  c.store.Metadata(),
	}
}

// scheduleAutosave of the active conversation. Must be called with the lock held.
func (c *Controller) scheduleAutosave() {
	if c.state.ConversationID == "" || len(c.state.Messages) == 0 {
		return
	}
	c.autosaver.Trigger(c.autosave)
}

// autosave the active conversation as it is when the debouncer fires.
func (c *Controller) autosave() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.state.ConversationID == "" || len(c.state.Messages) == 0 {
		return
	}
	if err := c.save(context.Background()); err != nil {
		debug.GetLogger().Error("autosaving conversation", "conversation", c.state.ConversationID, "error", err)
	}
}

// save the active conversation and refresh the metadata. Must be called with the lock held.
func (c *Controller) save(ctx context.Context) error {
	conversation := &store.Conversation{
		ID:          c.state.ConversationID,
		Title:       c.state.Title,
		LastUpdated: c.clock().UnixMilli(),
		Provider:    c.state.Provider,
		Messages:    c.state.Messages,
	}
	if err := c.store.Save(ctx, conversation); err != nil {
		return err
	}
	state := c.state.clone()
	state.Conversations = c.store.Metadata()
	c.state = state
	return nil
}
