package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/popchat/internal/kv"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/store"
)

func ptr(s string) *string { return &s }

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	s := store.New(kv.NewMemory())

	err := updateSettings(ctx, s, llm.OpenAI, &settingsUpdate{})
	assert.ErrorContains(t, err, "nothing to update")

	require.NoError(t, updateSettings(ctx, s, llm.OpenAI, &settingsUpdate{APIKey: ptr("sk-1"), Model: ptr("gpt-4o")}))
	require.NoError(t, updateSettings(ctx, s, llm.OpenAI, &settingsUpdate{BaseURL: ptr("http://localhost:8080/v1")}))

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, llm.Config{APIKey: "sk-1", BaseURL: "http://localhost:8080/v1", Model: "gpt-4o"}, settings.OpenAI)
	assert.Equal(t, store.DefaultSettings().Gemini, settings.Gemini)

	// An empty value falls back to the default.
	require.NoError(t, updateSettings(ctx, s, llm.OpenAI, &settingsUpdate{Model: ptr("")}))
	settings, err = s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", settings.OpenAI.Model)
	assert.Equal(t, "sk-1", settings.OpenAI.APIKey)
}

func TestModelsBaseURL(t *testing.T) {
	assert.Equal(t, GeminiBaseURL+"/openai", modelsBaseURL(llm.Gemini, &llm.Config{}))
	assert.Equal(t, "http://proxy/v1beta/openai", modelsBaseURL(llm.Gemini, &llm.Config{BaseURL: "http://proxy/v1beta/"}))
	assert.Equal(t, OpenAIBaseURL, modelsBaseURL(llm.OpenAI, &llm.Config{}))
	assert.Equal(t, store.CerebrasBaseURL, modelsBaseURL(llm.Cerebras, &llm.Config{BaseURL: store.CerebrasBaseURL}))
}

func TestListModels(t *testing.T) {
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o","object":"model"},{"id":"models/gpt-4","object":"model"}]}`))
	}))
	defer server.Close()

	models, err := listModels(context.Background(), llm.OpenAI, &llm.Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4", "gpt-4o"}, models)
	assert.Equal(t, "Bearer sk-test", authorization)

	_, err = listModels(context.Background(), llm.OpenAI, &llm.Config{BaseURL: server.URL + "/v1"})
	assert.ErrorContains(t, err, "API Key for openai is not configured.")
}
