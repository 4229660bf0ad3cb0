package chat

import (
	"context"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/popchat/internal/cli"
	"github.com/malonaz/popchat/internal/configuration"
	"github.com/malonaz/popchat/internal/debug"
	"github.com/malonaz/popchat/internal/file"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/internal/markdown"
	"github.com/malonaz/popchat/internal/session"
	"github.com/malonaz/popchat/store"
)

// NewCmd instantiates and returns the chat command.
func NewCmd(config *configuration.Config, s *store.Store, sender llm.Sender) *cobra.Command {
	var opts struct {
		ConversationID string
		Provider       string
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Back and forth chat",
		Long:  "Back and forth chat. Enter starts a new line, Ctrl+J sends. Type /help for the commands.",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			controller, err := newController(ctx, config, s, sender, opts.ConversationID, opts.Provider)
			cobra.CheckErr(err)
			defer controller.Close()

			renderer, err := markdown.NewRenderer(cli.Width())
			cobra.CheckErr(err)
			repl := newREPL(controller, renderer)
			repl.printConversation()
			cobra.CheckErr(repl.run(ctx))
		},
	}

	cmd.Flags().StringVar(&opts.ConversationID, "id", "", "specify a conversation id. Defaults to the last active one")
	cmd.Flags().StringVarP(&opts.Provider, "provider", "p", "", "switch the conversation to this provider")
	return cmd
}

// newController initializes a controller on the last active conversation, or the given one.
func newController(
	ctx context.Context, config *configuration.Config, s *store.Store, sender llm.Sender, conversationID, providerName string,
) (*session.Controller, error) {
	defaultProvider, err := config.Provider()
	if err != nil {
		return nil, err
	}
	controller := session.New(s, sender, defaultProvider)
	if _, err := controller.Init(ctx); err != nil {
		return nil, err
	}
	if conversationID != "" {
		state, err := controller.LoadConversation(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if state.ConversationID != conversationID {
			return nil, errors.Wrapf(store.ErrConversationNotFound, "conversation %s", conversationID)
		}
	}
	if providerName != "" {
		provider, err := llm.ParseProvider(providerName)
		if err != nil {
			return nil, err
		}
		if _, err := controller.SetProvider(provider); err != nil {
			return nil, err
		}
	}
	return controller, nil
}

type repl struct {
	controller *session.Controller
	renderer   *markdown.Renderer
	// Image attached to the next message.
	image *file.Image
	// Prompt for input, cli.PromptUser by default.
	prompt func() (string, error)
	// Confirm a destructive action, cli.QueryUser by default.
	confirm func(question string) bool
}

func newREPL(controller *session.Controller, renderer *markdown.Renderer) *repl {
	return &repl{
		controller: controller,
		renderer:   renderer,
		prompt:     cli.PromptUser,
		confirm:    cli.QueryUser,
	}
}

// run reads and executes input until the user quits.
func (r *repl) run(ctx context.Context) error {
	logger := debug.GetLogger()
	for {
		input, err := r.prompt()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if name, argument, ok := parseCommand(input); ok {
			err := r.execute(ctx, name, argument)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				logger.Warn("command failed", "command", name, "error", err)
				cli.Error("%v\n", err)
			}
			continue
		}

		if err := r.send(ctx, input); err != nil {
			cli.Error("%v\n", err)
		}
	}
}

// send the text and the attached image, if any.
func (r *repl) send(ctx context.Context, text string) error {
	message := newUserMessage(text, r.image)
	cli.AIOutput("%s: ", r.controller.State().Provider)
	state, err := r.controller.SendMessage(ctx, message)
	if err != nil {
		cli.AIOutput("\n")
		return err
	}
	r.image = nil
	last := len(state.Messages) - 1
	cli.AIOutput("\n")
	printMessage(r.renderer, last, state.Messages[last])
	return nil
}

// newUserMessage returns a message with string content, or with parts if an image is
// attached.
func newUserMessage(text string, image *file.Image) *llm.Message {
	if image == nil {
		return llm.NewUserMessage(text)
	}
	return llm.NewMultiModalMessage(llm.UserRole, llm.NewTextPart(text), llm.NewImagePart(image.Data, image.MimeType))
}

// printConversation prints the header and history of the active conversation.
func (r *repl) printConversation() {
	state := r.controller.State()
	r.renderer.Reset()
	cli.Title("POPCHAT [%s] %s (%s)", state.Provider, state.Title, state.ConversationID)
	for i, message := range state.Messages {
		printMessage(r.renderer, i, message)
	}
}
