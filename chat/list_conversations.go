package chat

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/malonaz/popchat/internal/cli"
	"github.com/malonaz/popchat/internal/export"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/store"
)

// NewConversationsCmd instantiates and returns the conversations command.
func NewConversationsCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"c"},
		Short:   "Manage stored conversations",
	}
	cmd.AddCommand(newListCmd(s))
	cmd.AddCommand(newDeleteCmd(s))
	cmd.AddCommand(newExportCmd(s))
	return cmd
}

// newListCmd instantiates and returns the conversations list command.
func newListCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Preview int
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all conversations",
		Long:  "List all conversations, most recent first",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			conversations, err := s.List(ctx)
			cobra.CheckErr(err)
			lastActive, err := s.LastActive(ctx)
			cobra.CheckErr(err)

			cli.Title("POPCHAT CONVERSATIONS")
			metadata := make([]*store.Metadata, 0, len(conversations))
			byID := make(map[string]*store.Conversation, len(conversations))
			for _, conversation := range conversations {
				metadata = append(metadata, conversation.Metadata())
				byID[conversation.ID] = conversation
			}
			store.SortByRecency(metadata)
			for _, m := range metadata {
				printMetadata([]*store.Metadata{m}, lastActive)
				cli.UserInput("%s", preview(byID[m.ID], opts.Preview))
			}
		},
	}

	cmd.Flags().IntVarP(&opts.Preview, "preview", "n", 3, "number of user messages to preview")
	return cmd
}

// preview returns the first user messages of a conversation.
func preview(conversation *store.Conversation, n int) string {
	description := ""
	for _, message := range conversation.Messages {
		if n <= 0 {
			break
		}
		if message.Role == llm.UserRole {
			description += "    > " + message.TextContent() + "\n"
			n--
		}
	}
	return description
}

// newDeleteCmd instantiates and returns the conversations delete command.
func newDeleteCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Yes bool
	}
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			conversation, err := s.Get(ctx, args[0])
			cobra.CheckErr(err)
			if !opts.Yes && !cli.QueryUser(fmt.Sprintf("Delete conversation %q?", conversation.Title)) {
				return
			}
			cobra.CheckErr(s.Delete(ctx, conversation.ID))
			cli.UserCommand("deleted %s\n", conversation.ID)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// newExportCmd instantiates and returns the conversations export command.
func newExportCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Output    string
		Overwrite bool
	}
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export a conversation as markdown",
		Long:  "Export a conversation as markdown, to stdout unless an output file is given",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			conversation, err := s.Get(cmd.Context(), args[0])
			cobra.CheckErr(err)
			if opts.Output == "" {
				document, err := export.Markdown(conversation)
				cobra.CheckErr(err)
				fmt.Fprint(cmd.OutOrStdout(), document)
				return
			}
			cobra.CheckErr(export.WriteMarkdown(conversation, opts.Output, opts.Overwrite))
			cli.FileInfo("exported %s to %s (%s)\n", conversation.ID, opts.Output, conversation.Metadata().UpdateTime().Format(time.DateTime))
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "overwrite the output file if it exists")
	return cmd
}
