package chat

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/malonaz/popchat/internal/cli"
	"github.com/malonaz/popchat/internal/configuration"
	"github.com/malonaz/popchat/internal/file"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/internal/markdown"
	"github.com/malonaz/popchat/store"
)

// NewSendCmd instantiates and returns the send command.
func NewSendCmd(config *configuration.Config, s *store.Store, sender llm.Sender) *cobra.Command {
	var opts struct {
		Provider  string
		ImagePath string
	}
	cmd := &cobra.Command{
		Use:   "send TEXT",
		Short: "Send one message to the active conversation",
		Long:  "Send one message to the active conversation and print the reply",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			controller, err := newController(ctx, config, s, sender, "", opts.Provider)
			cobra.CheckErr(err)
			defer controller.Close()

			var image *file.Image
			if opts.ImagePath != "" {
				image, err = file.ReadImage(opts.ImagePath)
				cobra.CheckErr(err)
			}
			state, err := controller.SendMessage(ctx, newUserMessage(strings.Join(args, " "), image))
			cobra.CheckErr(err)

			renderer, err := markdown.NewRenderer(cli.Width())
			cobra.CheckErr(err)
			last := len(state.Messages) - 1
			printMessage(renderer, last, state.Messages[last])
		},
	}

	cmd.Flags().StringVarP(&opts.Provider, "provider", "p", "", "switch the conversation to this provider")
	cmd.Flags().StringVarP(&opts.ImagePath, "image", "i", "", "attach an image to the message")
	return cmd
}
