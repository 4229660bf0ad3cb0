package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/malonaz/popchat/internal/debug"
)

const maxErrorBodyLength = 512

// Timeout bounds a whole send. Zero means no timeout.
type Timeout time.Duration

// Client sends message histories to the configured providers.
type Client struct {
	settings   SettingsSource
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient instantiates and returns a new client.
// Accepted options are *http.Client and Timeout.
func NewClient(settings SettingsSource, options ...any) *Client {
	client := &Client{
		settings:   settings,
		httpClient: http.DefaultClient,
	}
	for _, option := range options {
		switch t := option.(type) {
		case *http.Client:
			client.httpClient = t
		case Timeout:
			client.timeout = time.Duration(t)
		default:
			panic(fmt.Errorf("unknown option type %T", option))
		}
	}
	return client
}

// Send the messages to the provider and return the reply text. Exactly one HTTP request
// is made, and none at all when the provider is unsupported or has no API key.
// Every returned error is an *Error.
func (c *Client) Send(ctx context.Context, provider Provider, messages []*Message) (reply string, err error) {
	logger := debug.GetLogger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from panic while sending", "provider", provider, "panic", r)
			reply, err = "", &Error{Kind: KindUnknown, Message: unknownErrorMessage}
			return
		}
		if err != nil {
			err = normalize(err)
			logger.Warn("send failed", "provider", provider, "error", err)
		}
	}()

	if !provider.Valid() {
		return "", unsupportedProviderError(string(provider))
	}
	settings, err := c.settings.Settings(ctx)
	if err != nil {
		return "", &Error{Kind: KindConfiguration, Message: errors.Wrap(err, "reading api settings").Error()}
	}
	config, ok := settings.For(provider)
	if !ok || config.APIKey == "" {
		return "", notConfiguredError(provider)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger.Debug("sending messages", "provider", provider, "model", config.Model, "messages", len(messages))
	switch {
	case provider == Gemini:
		return c.sendGemini(ctx, config, messages)
	case provider.OpenAICompatible():
		return c.sendOpenAI(ctx, provider, config, messages)
	}
	return "", unsupportedProviderError(string(provider))
}

// post a JSON body and return the response body of a 2xx response.
func (c *Client) post(ctx context.Context, endpoint string, headers map[string]string, body []byte) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(redact(err), "creating request")
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, redact(err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, newAPIError(response, responseBody)
	}
	return responseBody, nil
}

// newAPIError embeds the status code, status text and the provider's error.message.
// Without an error.message, the raw body is used instead.
func newAPIError(response *http.Response, body []byte) *Error {
	statusText := strings.TrimSpace(strings.TrimPrefix(response.Status, strconv.Itoa(response.StatusCode)))
	if statusText == "" {
		statusText = http.StatusText(response.StatusCode)
	}
	detail := gjson.GetBytes(body, "error.message").String()
	if detail == "" {
		detail = strings.TrimSpace(string(body))
		if len(detail) > maxErrorBodyLength {
			detail = detail[:maxErrorBodyLength] + "..."
		}
	}
	message := fmt.Sprintf("API Error: %d %s", response.StatusCode, statusText)
	if detail != "" {
		message += " - " + detail
	}
	return &Error{Kind: KindTransport, Message: message, StatusCode: response.StatusCode}
}

// redact strips the query string from URL errors, it may carry an API key.
func redact(err error) error {
	var urlError *url.Error
	if !errors.As(err, &urlError) {
		return err
	}
	if parsed, parseErr := url.Parse(urlError.URL); parseErr == nil {
		parsed.RawQuery = ""
		urlError.URL = parsed.String()
	} else {
		urlError.URL = "<redacted>"
	}
	return urlError
}
