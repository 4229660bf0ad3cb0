package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/cli"
	"github.com/malonaz/popchat/internal/export"
	"github.com/malonaz/popchat/internal/file"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/store"
)

var errQuit = errors.New("quit")

type command struct {
	usage       string
	description string
	run         func(r *repl, ctx context.Context, argument string) error
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"help":     {usage: "/help", description: "show this help", run: (*repl).help},
		"new":      {usage: "/new", description: "start a new conversation", run: (*repl).newChat},
		"list":     {usage: "/list", description: "list conversations", run: (*repl).list},
		"load":     {usage: "/load [ID]", description: "switch to a conversation, pick one if no id is given", run: (*repl).load},
		"delete":   {usage: "/delete [ID]", description: "delete a conversation, the active one by default", run: (*repl).delete},
		"provider": {usage: "/provider NAME", description: "switch provider: gemini, openai or cerebras", run: (*repl).provider},
		"image":    {usage: "/image PATH", description: "attach an image to the next message, no path detaches it", run: (*repl).attachImage},
		"copy":     {usage: "/copy", description: "copy the last reply to the clipboard", run: (*repl).copy},
		"export":   {usage: "/export PATH", description: "export the conversation as markdown", run: (*repl).export},
		"code":     {usage: "/code DIR", description: "write the code blocks of the last reply to DIR", run: (*repl).code},
		"quit":     {usage: "/quit", description: "exit", run: func(*repl, context.Context, string) error { return errQuit }},
	}
}

// parseCommand splits `/name argument` input. ok is false if the input is not a command.
func parseCommand(input string) (name, argument string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) == 1 {
		return "", "", false
	}
	name, argument, _ = strings.Cut(input[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(argument), true
}

// execute a command.
func (r *repl) execute(ctx context.Context, name, argument string) error {
	command, ok := commands[name]
	if !ok {
		return errors.Errorf("unknown command /%s, type /help for the list of commands", name)
	}
	return command.run(r, ctx, argument)
}

func (r *repl) help(context.Context, string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cli.UserCommand("%-16s", commands[name].usage)
		cli.Info("%s\n", commands[name].description)
	}
	return nil
}

func (r *repl) newChat(ctx context.Context, _ string) error {
	if _, err := r.controller.NewChat(ctx); err != nil {
		return err
	}
	r.image = nil
	r.printConversation()
	return nil
}

func (r *repl) list(context.Context, string) error {
	state := r.controller.State()
	printMetadata(state.Conversations, state.ConversationID)
	return nil
}

func (r *repl) load(ctx context.Context, id string) error {
	if id == "" {
		var err error
		if id, err = r.pickConversation("Load conversation"); err != nil {
			return err
		}
	}
	state, err := r.controller.LoadConversation(ctx, id)
	if err != nil {
		return err
	}
	if state.ConversationID != id {
		return errors.Wrapf(store.ErrConversationNotFound, "conversation %s", id)
	}
	r.printConversation()
	return nil
}

func (r *repl) delete(ctx context.Context, id string) error {
	state := r.controller.State()
	if id == "" {
		id = state.ConversationID
	}
	title := id
	for _, m := range state.Conversations {
		if m.ID == id {
			title = m.Title
		}
	}
	if !r.confirm(fmt.Sprintf("Delete conversation %q?", title)) {
		return nil
	}
	newState, err := r.controller.DeleteConversation(ctx, id)
	if err != nil {
		return err
	}
	cli.UserCommand("deleted %s\n", id)
	if newState.ConversationID != state.ConversationID {
		r.printConversation()
	}
	return nil
}

func (r *repl) provider(_ context.Context, name string) error {
	provider, err := llm.ParseProvider(name)
	if err != nil {
		return err
	}
	if _, err := r.controller.SetProvider(provider); err != nil {
		return err
	}
	cli.UserCommand("provider set to %s\n", provider)
	return nil
}

func (r *repl) attachImage(_ context.Context, path string) error {
	if path == "" {
		r.image = nil
		cli.FileInfo("image detached\n")
		return nil
	}
	image, err := file.ReadImage(path)
	if err != nil {
		return err
	}
	r.image = image
	cli.FileInfo("attached %s (%s), it will be sent with the next message\n", filepath.Base(image.Path), image.MimeType)
	return nil
}

func (r *repl) copy(context.Context, string) error {
	reply, err := r.lastReply()
	if err != nil {
		return err
	}
	if err := export.CopyText(reply); err != nil {
		return err
	}
	cli.UserCommand("copied to clipboard\n")
	return nil
}

func (r *repl) export(_ context.Context, path string) error {
	state := r.controller.State()
	if path == "" {
		path = state.ConversationID + ".md"
	}
	conversation := &store.Conversation{
		ID:       state.ConversationID,
		Title:    state.Title,
		Provider: state.Provider,
		Messages: state.Messages,
	}
	for _, m := range state.Conversations {
		if m.ID == state.ConversationID {
			conversation.LastUpdated = m.LastUpdated
		}
	}
	if err := export.WriteMarkdown(conversation, path, r.confirmOverwrite(path)); err != nil {
		return err
	}
	cli.FileInfo("exported to %s\n", path)
	return nil
}

func (r *repl) code(_ context.Context, directory string) error {
	if directory == "" {
		directory = "."
	}
	reply, err := r.lastReply()
	if err != nil {
		return err
	}
	paths, err := export.WriteCodeBlocks(reply, directory, r.controller.State().ConversationID)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cli.FileInfo("the last reply has no code block\n")
	}
	for _, path := range paths {
		cli.FileInfo("wrote %s\n", path)
	}
	return nil
}

// lastReply returns the last assistant message of the active conversation.
func (r *repl) lastReply() (*llm.Message, error) {
	messages := r.controller.State().Messages
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.AssistantRole {
			return messages[i], nil
		}
	}
	return nil, errors.New("there is no reply yet")
}

// confirmOverwrite asks the user before replacing an existing file.
func (r *repl) confirmOverwrite(path string) bool {
	path, err := file.ExpandPath(path)
	if err != nil {
		return false
	}
	exists, err := file.Exists(path)
	if err != nil || !exists {
		return false
	}
	return r.confirm(fmt.Sprintf("Overwrite %s?", path))
}

// pickConversation lets the user select a conversation, most recent first.
func (r *repl) pickConversation(message string) (string, error) {
	metadata, options := conversationOptions(r.controller.State().Conversations)
	index, err := cli.SelectOption(message, options)
	if err != nil {
		return "", err
	}
	return metadata[index].ID, nil
}

// conversationOptions returns a copy of metadata sorted most recent first, and its labels.
func conversationOptions(metadata []*store.Metadata) ([]*store.Metadata, []string) {
	metadata = slices.Clone(metadata)
	store.SortByRecency(metadata)
	options := make([]string, 0, len(metadata))
	for _, m := range metadata {
		options = append(options, fmt.Sprintf("%s (%s)", m.Title, m.ID))
	}
	return metadata, options
}
