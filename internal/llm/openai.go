package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
)

// DefaultOpenAIBaseURL is used when an OpenAI-compatible config has no base URL.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

const chatCompletionsPath = "/chat/completions"

// Model is omitted when unset.
type openAIRequest struct {
	Model    string          `json:"model,omitempty"`
	Messages []openAIMessage `json:"messages"`
}

// openAIMessage always carries content, a string or a list of parts. go-openai's
// ChatCompletionMessage omits an empty string content.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// openAIPart carries text for text parts, even when empty.
type openAIPart struct {
	Type     openai.ChatMessagePartType  `json:"type"`
	Text     *string                     `json:"text,omitempty"`
	ImageURL *openai.ChatMessageImageURL `json:"image_url,omitempty"`
}

func imageDataURI(part *Part) string {
	return fmt.Sprintf("data:%s;base64,%s", part.MimeType, part.Data)
}

func newOpenAIMessages(messages []*Message) []openAIMessage {
	openAIMessages := make([]openAIMessage, 0, len(messages))
	for _, message := range messages {
		wireMessage := openAIMessage{Role: string(message.Role), Content: message.Text}
		if message.IsMultiModal() {
			parts := make([]*openAIPart, 0, len(message.Parts))
			for _, part := range message.Parts {
				switch part.Type {
				case TextPartType:
					text := part.Text
					parts = append(parts, &openAIPart{Type: openai.ChatMessagePartTypeText, Text: &text})
				case ImagePartType:
					parts = append(parts, &openAIPart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageDataURI(part)},
					})
				}
			}
			wireMessage.Content = parts
		}
		openAIMessages = append(openAIMessages, wireMessage)
	}
	return openAIMessages
}

// BuildOpenAIRequest returns the chat completions request body for the given messages.
func BuildOpenAIRequest(model string, messages []*Message) ([]byte, error) {
	request := &openAIRequest{
		Model:    model,
		Messages: newOpenAIMessages(messages),
	}
	bytes, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling chat completion request")
	}
	return bytes, nil
}

// ParseOpenAIReply prefers choices[0].message.content, then the space-joined text of
// choices[0].message.parts, then the empty string.
func ParseOpenAIReply(provider Provider, body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", malformedResponseError(provider, "JSON body")
	}
	message := gjson.GetBytes(body, "choices.0.message")
	if !message.IsObject() {
		return "", malformedResponseError(provider, "choices[0].message")
	}
	content := message.Get("content")
	if content.Type == gjson.String && content.String() != "" {
		return content.String(), nil
	}
	parts := message.Get("parts")
	if !parts.IsArray() || len(parts.Array()) == 0 {
		// Some compatible servers send content as an array of parts.
		parts = content
	}
	if parts.IsArray() && len(parts.Array()) > 0 {
		var texts []string
		parts.ForEach(func(_, part gjson.Result) bool {
			texts = append(texts, part.Get("text").String())
			return true
		})
		return strings.Join(texts, " "), nil
	}
	return "", nil
}

func chatCompletionsURL(config *Config) string {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + chatCompletionsPath
}

func (c *Client) sendOpenAI(ctx context.Context, provider Provider, config *Config, messages []*Message) (string, error) {
	body, err := BuildOpenAIRequest(config.Model, messages)
	if err != nil {
		return "", err
	}
	headers := map[string]string{"Authorization": "Bearer " + config.APIKey}
	response, err := c.post(ctx, chatCompletionsURL(config), headers, body)
	if err != nil {
		return "", err
	}
	return ParseOpenAIReply(provider, response)
}
