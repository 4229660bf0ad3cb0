package llm

import (
	"errors"
	"fmt"
)

const unknownErrorMessage = "An unknown error occurred during the API request."

// Kind classifies adapter errors.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration is detected before any I/O (e.g. a missing API key).
	KindConfiguration
	KindUnsupportedProvider
	// KindTransport covers non-2xx responses and network failures.
	KindTransport
	// KindMalformedResponse is returned when an expected response field is absent.
	KindMalformedResponse
)

// Sentinel errors, use errors.Is(err, ErrNotConfigured) to check the kind of an error.
var (
	ErrNotConfigured       = &Error{Kind: KindConfiguration}
	ErrUnsupportedProvider = &Error{Kind: KindUnsupportedProvider}
	ErrTransport           = &Error{Kind: KindTransport}
	ErrMalformedResponse   = &Error{Kind: KindMalformedResponse}
)

// Error is the single error type returned by the adapter. Message is human readable.
type Error struct {
	Kind    Kind
	Message string
	// StatusCode of the HTTP response, if any.
	StatusCode int
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Is matches errors of the same kind. A target with a message must match it exactly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" && t.Message != e.Message {
		return false
	}
	return t.Kind == e.Kind
}

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notConfiguredError(provider Provider) *Error {
	return errorf(KindConfiguration, "API Key for %s is not configured.", provider)
}

func unsupportedProviderError(name string) *Error {
	return errorf(KindUnsupportedProvider, "Unsupported provider: %s", name)
}

func malformedResponseError(provider Provider, path string) *Error {
	return errorf(KindMalformedResponse, "Malformed %s response: missing %s", provider, path)
}

// normalize converts any error into an *Error.
func normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindTransport, Message: err.Error()}
}
