package chat

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/popchat/internal/file"
	"github.com/malonaz/popchat/internal/kv"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/internal/markdown"
	"github.com/malonaz/popchat/internal/session"
	"github.com/malonaz/popchat/store"
)

// pngHeader is enough for the content type to be sniffed as image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeSender struct {
	reply string
	calls [][]*llm.Message
}

func (f *fakeSender) Send(_ context.Context, _ llm.Provider, messages []*llm.Message) (string, error) {
	f.calls = append(f.calls, messages)
	return f.reply, nil
}

func newTestREPL(t *testing.T, sender llm.Sender) (*repl, *store.Store) {
	t.Helper()
	s := store.New(kv.NewMemory())
	controller := session.New(s, sender, llm.Gemini, session.AutosaveDelay(10*time.Millisecond))
	t.Cleanup(controller.Close)
	_, err := controller.Init(context.Background())
	require.NoError(t, err)
	renderer, err := markdown.NewRenderer(80)
	require.NoError(t, err)
	r := newREPL(controller, renderer)
	r.confirm = func(string) bool { return true }
	return r, s
}

func TestParseCommand(t *testing.T) {
	for _, tc := range []struct {
		input    string
		name     string
		argument string
		ok       bool
	}{
		{input: "/new", name: "new", ok: true},
		{input: "  /Load  0190-abc ", name: "load", argument: "0190-abc", ok: true},
		{input: "/export ~/my chat.md", name: "export", argument: "~/my chat.md", ok: true},
		{input: "/", ok: false},
		{input: "hello /new", ok: false},
		{input: "", ok: false},
	} {
		t.Run(tc.input, func(t *testing.T) {
			name, argument, ok := parseCommand(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.argument, argument)
		})
	}
}

func TestNewUserMessage(t *testing.T) {
	assert.Equal(t, llm.NewUserMessage("hi"), newUserMessage("hi", nil))

	image := &file.Image{MimeType: "image/png", Data: "AAAA"}
	message := newUserMessage("what is this?", image)
	require.Len(t, message.Parts, 2)
	assert.Equal(t, llm.NewTextPart("what is this?"), message.Parts[0])
	assert.Equal(t, llm.NewImagePart("AAAA", "image/png"), message.Parts[1])
	assert.Equal(t, llm.UserRole, message.Role)
}

func TestExecuteUnknownCommand(t *testing.T) {
	r, _ := newTestREPL(t, &fakeSender{})
	err := r.execute(context.Background(), "dance", "")
	assert.ErrorContains(t, err, "unknown command /dance")
	assert.ErrorIs(t, r.execute(context.Background(), "quit", ""), errQuit)
	assert.NoError(t, r.execute(context.Background(), "help", ""))
}

func TestExecuteNewAndLoad(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestREPL(t, &fakeSender{reply: "hi"})
	first := r.controller.State().ConversationID
	require.NoError(t, r.send(ctx, "Hello"))

	require.NoError(t, r.execute(ctx, "new", ""))
	second := r.controller.State().ConversationID
	assert.NotEqual(t, first, second)
	assert.Empty(t, r.controller.State().Messages)

	require.NoError(t, r.execute(ctx, "load", first))
	assert.Equal(t, first, r.controller.State().ConversationID)
	assert.Len(t, r.controller.State().Messages, 2)

	err := r.execute(ctx, "load", "unknown")
	assert.ErrorIs(t, err, store.ErrConversationNotFound)
	assert.Equal(t, first, r.controller.State().ConversationID)
}

func TestExecuteDelete(t *testing.T) {
	ctx := context.Background()
	r, s := newTestREPL(t, &fakeSender{reply: "hi"})
	require.NoError(t, r.send(ctx, "Hello"))
	id := r.controller.State().ConversationID

	r.confirm = func(string) bool { return false }
	require.NoError(t, r.execute(ctx, "delete", ""))
	assert.Equal(t, id, r.controller.State().ConversationID)

	r.confirm = func(string) bool { return true }
	require.NoError(t, r.execute(ctx, "delete", ""))
	assert.NotEqual(t, id, r.controller.State().ConversationID)
	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrConversationNotFound)
}

func TestExecuteProvider(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestREPL(t, &fakeSender{})
	require.NoError(t, r.execute(ctx, "provider", "Cerebras"))
	assert.Equal(t, llm.Cerebras, r.controller.State().Provider)
	assert.Error(t, r.execute(ctx, "provider", "mistral"))
	assert.Equal(t, llm.Cerebras, r.controller.State().Provider)
}

func TestExecuteImage(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{reply: "A picture."}
	r, _ := newTestREPL(t, sender)
	directory := t.TempDir()
	path := filepath.Join(directory, "cat.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0644))

	assert.Error(t, r.execute(ctx, "image", filepath.Join(directory, "missing.png")))
	require.NoError(t, r.execute(ctx, "image", path))
	require.NotNil(t, r.image)
	assert.Equal(t, "image/png", r.image.MimeType)

	require.NoError(t, r.send(ctx, "what is this?"))
	assert.Nil(t, r.image)
	require.Len(t, sender.calls, 1)
	assert.True(t, sender.calls[0][0].HasImage())

	require.NoError(t, r.execute(ctx, "image", path))
	require.NoError(t, r.execute(ctx, "image", ""))
	assert.Nil(t, r.image)
}

func TestExecuteExportAndCode(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestREPL(t, &fakeSender{reply: "Here:\n```go\nfmt.Println(1)\n```\nand\n```python\nprint(1)\n```"})
	directory := t.TempDir()

	assert.ErrorContains(t, r.execute(ctx, "code", directory), "no reply")
	require.NoError(t, r.send(ctx, "Print one"))

	require.NoError(t, r.execute(ctx, "code", directory))
	id := r.controller.State().ConversationID
	bytes, err := os.ReadFile(filepath.Join(directory, id+"_1.go"))
	require.NoError(t, err)
	assert.Equal(t, "fmt.Println(1)\n", string(bytes))
	bytes, err = os.ReadFile(filepath.Join(directory, id+"_2.py"))
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", string(bytes))

	path := filepath.Join(directory, "chat.md")
	require.NoError(t, r.execute(ctx, "export", path))
	bytes, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(bytes), "Print one")
	assert.Contains(t, string(bytes), "fmt.Println(1)")

	// Declining to overwrite leaves the file untouched.
	r.confirm = func(string) bool { return false }
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0644))
	assert.Error(t, r.execute(ctx, "export", path))
	bytes, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(bytes))
}

func TestRun(t *testing.T) {
	sender := &fakeSender{reply: "pong"}
	r, _ := newTestREPL(t, sender)
	inputs := []string{"ping", "", "/nope", "/new", "ping again"}
	r.prompt = func() (string, error) {
		if len(inputs) == 0 {
			return "", io.EOF
		}
		input := inputs[0]
		inputs = inputs[1:]
		return input, nil
	}

	require.NoError(t, r.run(context.Background()))
	assert.Len(t, sender.calls, 2)
	assert.Len(t, r.controller.State().Messages, 2)
}

func TestRunQuit(t *testing.T) {
	sender := &fakeSender{reply: "pong"}
	r, _ := newTestREPL(t, sender)
	inputs := []string{"/quit", "ping"}
	r.prompt = func() (string, error) {
		input := inputs[0]
		inputs = inputs[1:]
		return input, nil
	}
	require.NoError(t, r.run(context.Background()))
	assert.Empty(t, sender.calls)
}

func TestListKeepsStateOrder(t *testing.T) {
	ctx := context.Background()
	r, s := newTestREPL(t, &fakeSender{reply: "hi"})
	for i, title := range []string{"old", "new"} {
		require.NoError(t, s.Save(ctx, &store.Conversation{
			ID: title, Title: title, LastUpdated: int64(i + 1), Provider: llm.Gemini,
			Messages: []*llm.Message{llm.NewUserMessage(title)},
		}))
	}
	require.NoError(t, r.execute(ctx, "new", ""))
	before := r.controller.State().Conversations
	order := make([]string, 0, len(before))
	for _, m := range before {
		order = append(order, m.ID)
	}

	require.NoError(t, r.execute(ctx, "list", ""))
	metadata, options := conversationOptions(before)
	require.Len(t, options, len(before))
	assert.Equal(t, "old", metadata[len(metadata)-1].ID)
	assert.Equal(t, "old (old)", options[len(options)-1])

	after := make([]string, 0, len(before))
	for _, m := range r.controller.State().Conversations {
		after = append(after, m.ID)
	}
	assert.Equal(t, order, after)
}
