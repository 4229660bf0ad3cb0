package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/malonaz/popchat/admin"
	"github.com/malonaz/popchat/chat"
	"github.com/malonaz/popchat/internal/configuration"
	"github.com/malonaz/popchat/internal/debug"
	"github.com/malonaz/popchat/internal/kv"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/server"
	"github.com/malonaz/popchat/store"
)

var rootCmd = &cobra.Command{
	Use:     "popchat",
	Short:   "Chat with Gemini, OpenAI and Cerebras models",
	Version: "1.0",
}

func main() {
	os.Exit(run())
}

func run() int {
	config, err := configuration.Parse(configuration.DefaultPath)
	cobra.CheckErr(err)
	cobra.CheckErr(debug.Configure(config.Log.File, config.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the storage area.
	area, err := kv.Open(ctx, config.Storage.Driver, config.Storage.DSN)
	cobra.CheckErr(err)
	// Ensure the area is closed when the program exits normally.
	defer area.Close()

	s := store.New(area)
	client := llm.NewClient(s, llm.Timeout(config.Timeout()))

	rootCmd.AddCommand(chat.NewCmd(config, s, client))
	rootCmd.AddCommand(chat.NewSendCmd(config, s, client))
	rootCmd.AddCommand(chat.NewConversationsCmd(s))
	rootCmd.AddCommand(admin.NewSettingsCmd(s))
	rootCmd.AddCommand(admin.NewListModelsCmd(s))
	rootCmd.AddCommand(server.NewServeCmd(config, s))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
