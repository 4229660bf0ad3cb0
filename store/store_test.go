package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/popchat/internal/kv"
	"github.com/malonaz/popchat/internal/llm"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, kv.Area) {
	t.Helper()
	area := kv.NewMemory()
	return New(area, Clock(func() time.Time { return testTime })), area
}

func storedConversations(t *testing.T, area kv.Area) []*Conversation {
	t.Helper()
	bytes, err := area.Get(context.Background(), ConversationsKey)
	require.NoError(t, err)
	conversations := []*Conversation{}
	require.NoError(t, json.Unmarshal(bytes, &conversations))
	return conversations
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	conversation := &Conversation{
		ID:          "c1",
		Title:       "Greetings",
		LastUpdated: 42,
		Provider:    llm.Cerebras,
		Messages: []*llm.Message{
			llm.NewUserMessage("Hello"),
			llm.NewAssistantMessage("Hi there"),
			llm.NewMultiModalMessage(llm.UserRole, llm.NewTextPart("look"), llm.NewImagePart("AAAA", "image/png")),
		},
	}
	require.NoError(t, store.Save(ctx, conversation))

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, conversation, loaded)

	lastActive, err := store.LastActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", lastActive)
}

func TestSaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, area := newTestStore(t)

	conversation := &Conversation{ID: "c1", Title: DefaultTitle, Provider: llm.Gemini}
	require.NoError(t, store.Save(ctx, conversation))
	require.NoError(t, store.Save(ctx, &Conversation{ID: "c2", Title: "Other", Provider: llm.OpenAI}))
	conversation.Title = "Renamed"
	require.NoError(t, store.Save(ctx, conversation))
	require.NoError(t, store.Save(ctx, conversation))

	conversations := storedConversations(t, area)
	require.Len(t, conversations, 2)
	assert.Equal(t, "c1", conversations[0].ID)
	assert.Equal(t, "Renamed", conversations[0].Title)
	assert.Equal(t, "c2", conversations[1].ID)

	metadata := store.Metadata()
	require.Len(t, metadata, 2)
	assert.Equal(t, &Metadata{ID: "c1", Title: "Renamed", Provider: llm.Gemini}, metadata[0])
}

func TestSaveRejectsInvalidConversations(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), &Conversation{Provider: llm.Gemini}))
	assert.Error(t, store.Save(context.Background(), &Conversation{ID: "c1", Provider: "mistral"}))
}

func TestLoadUnknownConversation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.Save(ctx, &Conversation{ID: "c1", Provider: llm.Gemini}))
	_, err := store.Load(ctx, "c1")
	require.NoError(t, err)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	lastActive, err := store.LastActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", lastActive)
}

func TestLoadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("empty area creates a conversation", func(t *testing.T) {
		store, area := newTestStore(t)
		conversation, err := store.LoadAll(ctx, llm.OpenAI)
		require.NoError(t, err)
		assert.Equal(t, DefaultTitle, conversation.Title)
		assert.Equal(t, llm.OpenAI, conversation.Provider)
		assert.Equal(t, testTime.UnixMilli(), conversation.LastUpdated)
		assert.Empty(t, conversation.Messages)
		assert.Len(t, storedConversations(t, area), 1)

		lastActive, err := store.LastActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, conversation.ID, lastActive)
	})

	t.Run("resumes the last active conversation", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, &Conversation{ID: "c1", Provider: llm.Gemini}))
		require.NoError(t, store.Save(ctx, &Conversation{ID: "c2", Provider: llm.Cerebras}))
		require.NoError(t, store.setLastActive(ctx, "c2"))

		conversation, err := store.LoadAll(ctx, llm.Gemini)
		require.NoError(t, err)
		assert.Equal(t, "c2", conversation.ID)
		assert.Len(t, store.Metadata(), 2)
	})

	t.Run("falls back to the first conversation", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, &Conversation{ID: "c1", Provider: llm.Gemini}))
		require.NoError(t, store.Save(ctx, &Conversation{ID: "c2", Provider: llm.Cerebras}))
		require.NoError(t, store.setLastActive(ctx, "gone"))

		conversation, err := store.LoadAll(ctx, llm.Gemini)
		require.NoError(t, err)
		assert.Equal(t, "c1", conversation.ID)

		lastActive, err := store.LastActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "c1", lastActive)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store, area := newTestStore(t)
	first, err := store.Create(ctx, llm.Gemini)
	require.NoError(t, err)
	second, err := store.Create(ctx, llm.OpenAI)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	require.NoError(t, store.Delete(ctx, second.ID))
	conversations := storedConversations(t, area)
	require.Len(t, conversations, 1)
	assert.Equal(t, first.ID, conversations[0].ID)
	assert.Len(t, store.Metadata(), 1)

	lastActive, err := store.LastActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, lastActive)

	require.NoError(t, store.Delete(ctx, "unknown"))
	assert.Len(t, storedConversations(t, area), 1)
}

func TestDeleteKeepsOtherLastActive(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	first, err := store.Create(ctx, llm.Gemini)
	require.NoError(t, err)
	second, err := store.Create(ctx, llm.Gemini)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, first.ID))
	lastActive, err := store.LastActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, lastActive)
}

func TestConcurrentSavesAreNotLost(t *testing.T) {
	ctx := context.Background()
	store, area := newTestStore(t)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, &Conversation{ID: id, Provider: llm.Gemini}))
		}()
	}
	wg.Wait()
	assert.Len(t, storedConversations(t, area), 6)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	settings, err := store.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	require.NoError(t, store.SaveSettings(ctx, &llm.Settings{
		OpenAI:   llm.Config{APIKey: "sk", Model: "gpt-4o"},
		Cerebras: llm.Config{APIKey: "csk"},
	}))
	settings, err = store.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, llm.Config{APIKey: "sk", Model: "gpt-4o"}, settings.OpenAI)
	assert.Equal(t, llm.Config{APIKey: "csk", Model: "gpt-oss-120b", BaseURL: CerebrasBaseURL}, settings.Cerebras)
	assert.Equal(t, llm.Config{Model: "gemini-2.5-pro"}, settings.Gemini)

	stored, err := store.StoredSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored.Cerebras.Model)

	require.NoError(t, store.UpdateSettings(ctx, func(settings *llm.Settings) error {
		settings.Gemini.APIKey = "g"
		return nil
	}))
	stored, err = store.StoredSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "g", stored.Gemini.APIKey)
	assert.Equal(t, "sk", stored.OpenAI.APIKey)
}
