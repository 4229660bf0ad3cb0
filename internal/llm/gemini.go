package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	// DefaultGeminiBaseURL is used when the gemini config has no base URL.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	geminiUserRole  = "user"
	geminiModelRole = "model"
	geminiReplyPath = "candidates.0.content.parts.0.text"
)

type geminiRequest struct {
	Contents []*geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string        `json:"role"`
	Parts []*geminiPart `json:"parts"`
}

// Text is a pointer so that empty text is still sent as {"text": ""}.
type geminiPart struct {
	Text       *string           `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func geminiRole(role Role) string {
	if role == AssistantRole {
		return geminiModelRole
	}
	return geminiUserRole
}

func newGeminiRequest(messages []*Message) *geminiRequest {
	request := &geminiRequest{Contents: make([]*geminiContent, 0, len(messages))}
	for _, message := range messages {
		content := &geminiContent{Role: geminiRole(message.Role)}
		if !message.IsMultiModal() {
			text := message.Text
			content.Parts = []*geminiPart{{Text: &text}}
		} else {
			content.Parts = make([]*geminiPart, 0, len(message.Parts))
			for _, part := range message.Parts {
				switch part.Type {
				case TextPartType:
					text := part.Text
					content.Parts = append(content.Parts, &geminiPart{Text: &text})
				case ImagePartType:
					content.Parts = append(content.Parts, &geminiPart{
						InlineData: &geminiInlineData{MimeType: part.MimeType, Data: part.Data},
					})
				default:
					content.Parts = append(content.Parts, &geminiPart{})
				}
			}
		}
		request.Contents = append(request.Contents, content)
	}
	return request
}

// BuildGeminiRequest returns the generateContent request body for the given messages.
func BuildGeminiRequest(messages []*Message) ([]byte, error) {
	bytes, err := json.Marshal(newGeminiRequest(messages))
	if err != nil {
		return nil, errors.Wrap(err, "marshaling gemini request")
	}
	return bytes, nil
}

// ParseGeminiReply extracts candidates[0].content.parts[0].text. There is no fallback.
func ParseGeminiReply(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", malformedResponseError(Gemini, "JSON body")
	}
	result := gjson.GetBytes(body, geminiReplyPath)
	if !result.Exists() || result.Type != gjson.String {
		return "", malformedResponseError(Gemini, "candidates[0].content.parts[0].text")
	}
	return result.String(), nil
}

// geminiURL embeds the model and the API key. The key travels as a query parameter.
func geminiURL(config *Config) string {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimSuffix(baseURL, "/"), url.PathEscape(config.Model), url.QueryEscape(config.APIKey))
}

func (c *Client) sendGemini(ctx context.Context, config *Config, messages []*Message) (string, error) {
	body, err := BuildGeminiRequest(messages)
	if err != nil {
		return "", err
	}
	response, err := c.post(ctx, geminiURL(config), nil, body)
	if err != nil {
		return "", err
	}
	return ParseGeminiReply(response)
}
