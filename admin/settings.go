// Package admin holds the commands managing provider settings.
package admin

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/popchat/internal/cli"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/store"
)

var providers = []llm.Provider{llm.Gemini, llm.OpenAI, llm.Cerebras}

// NewSettingsCmd instantiates and returns the settings command.
func NewSettingsCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the API settings of the providers",
	}
	cmd.AddCommand(newShowSettingsCmd(s))
	cmd.AddCommand(newSetSettingsCmd(s))
	return cmd
}

func newShowSettingsCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the settings in effect, API keys masked",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			settings, err := s.Settings(cmd.Context())
			cobra.CheckErr(err)
			cli.Title("POPCHAT SETTINGS")
			for _, provider := range providers {
				config, _ := settings.For(provider)
				cli.UserCommand("%s\n", provider)
				cli.Info("  model:    %s\n", config.Model)
				cli.Info("  base url: %s\n", displayBaseURL(provider, config))
				cli.Info("  api key:  %s\n", cli.MaskSecret(config.APIKey))
			}
		},
	}
}

func displayBaseURL(provider llm.Provider, config *llm.Config) string {
	if config.BaseURL != "" {
		return config.BaseURL
	}
	if provider == llm.Gemini {
		return GeminiBaseURL
	}
	return OpenAIBaseURL
}

// settingsUpdate holds the flags given to `settings set`. Nil fields are left unchanged.
type settingsUpdate struct {
	APIKey  *string
	BaseURL *string
	Model   *string
}

func newSetSettingsCmd(s *store.Store) *cobra.Command {
	var opts struct {
		APIKey  string
		BaseURL string
		Model   string
	}
	cmd := &cobra.Command{
		Use:   "set PROVIDER",
		Short: "Change the settings of a provider",
		Long:  "Change the settings of a provider. An empty value resets the field to its default",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			provider, err := llm.ParseProvider(args[0])
			cobra.CheckErr(err)
			update := &settingsUpdate{}
			if cmd.Flags().Changed("api-key") {
				update.APIKey = &opts.APIKey
			}
			if cmd.Flags().Changed("base-url") {
				update.BaseURL = &opts.BaseURL
			}
			if cmd.Flags().Changed("model") {
				update.Model = &opts.Model
			}
			cobra.CheckErr(updateSettings(cmd.Context(), s, provider, update))
			cli.UserCommand("updated %s settings\n", provider)
		},
	}

	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "base URL of the API")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model")
	return cmd
}

// updateSettings applies an update to the stored settings of a provider.
func updateSettings(ctx context.Context, s *store.Store, provider llm.Provider, update *settingsUpdate) error {
	if update.APIKey == nil && update.BaseURL == nil && update.Model == nil {
		return errors.New("nothing to update, set at least one of --api-key, --base-url or --model")
	}
	return s.UpdateSettings(ctx, func(settings *llm.Settings) error {
		config, ok := settings.For(provider)
		if !ok {
			return errors.Errorf("Unsupported provider: %s", provider)
		}
		if update.APIKey != nil {
			config.APIKey = *update.APIKey
		}
		if update.BaseURL != nil {
			config.BaseURL = *update.BaseURL
		}
		if update.Model != nil {
			config.Model = *update.Model
		}
		return nil
	})
}
