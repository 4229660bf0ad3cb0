package llm

import (
	"strings"

	"github.com/scylladb/go-set/strset"
)

// Provider of a hosted language model API.
type Provider string

const (
	Gemini   Provider = "gemini"
	OpenAI   Provider = "openai"
	Cerebras Provider = "cerebras"
)

// Providers in display order.
var Providers = []Provider{Gemini, OpenAI, Cerebras}

var supportedProviders = strset.New(string(Gemini), string(OpenAI), string(Cerebras))

// Valid returns true if the provider is supported.
func (p Provider) Valid() bool { return supportedProviders.Has(string(p)) }

// OpenAICompatible returns true if the provider speaks the chat completions protocol.
func (p Provider) OpenAICompatible() bool { return p == OpenAI || p == Cerebras }

// ParseProvider parses a provider name.
func ParseProvider(name string) (Provider, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(name)))
	if !provider.Valid() {
		return "", unsupportedProviderError(name)
	}
	return provider, nil
}
