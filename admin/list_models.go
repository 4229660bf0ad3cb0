package admin

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/malonaz/popchat/internal/cli"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/store"
)

const (
	// GeminiBaseURL is the default base URL of the gemini provider.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// OpenAIBaseURL is the default base URL of the openai provider.
	OpenAIBaseURL = "https://api.openai.com/v1"
)

// NewListModelsCmd instantiates and returns the list-models command.
func NewListModelsCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Provider string
	}

	cmd := &cobra.Command{
		Use:   "list-models",
		Short: "List available models",
		Long:  "List the models available to the configured API key of a provider",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			provider, err := llm.ParseProvider(opts.Provider)
			cobra.CheckErr(err)
			settings, err := s.Settings(ctx)
			cobra.CheckErr(err)
			config, _ := settings.For(provider)

			models, err := listModels(ctx, provider, config)
			cobra.CheckErr(err)
			cli.Title("Available Models - %s (%d models)", provider, len(models))
			for _, model := range models {
				marker := " "
				if model == config.Model {
					marker = "*"
				}
				cli.AIOutput("%s %s\n", marker, model)
			}
		},
	}

	cmd.Flags().StringVarP(&opts.Provider, "provider", "p", string(llm.Gemini), "provider to list the models of")
	return cmd
}

// listModels queries the OpenAI compatible models endpoint of a provider. Gemini exposes
// one under /openai.
func listModels(ctx context.Context, provider llm.Provider, config *llm.Config) ([]string, error) {
	if config.APIKey == "" {
		return nil, errors.Errorf("API Key for %s is not configured.", provider)
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = modelsBaseURL(provider, config)
	client := openai.NewClientWithConfig(clientConfig)

	response, err := client.ListModels(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s models", provider)
	}
	models := make([]string, 0, len(response.Models))
	for _, model := range response.Models {
		models = append(models, strings.TrimPrefix(model.ID, "models/"))
	}
	sort.Strings(models)
	return models, nil
}

func modelsBaseURL(provider llm.Provider, config *llm.Config) string {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	switch provider {
	case llm.Gemini:
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		return baseURL + "/openai"
	default:
		if baseURL == "" {
			baseURL = OpenAIBaseURL
		}
		return baseURL
	}
}
