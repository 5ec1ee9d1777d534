package provider

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingCredentials = errors.New("provider credentials are not configured")

// ProviderError is a failed call to an external provider. Message carries the
// provider's own error text, Body the raw response when one was read.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Provider, e.Op)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status=%d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AmbiguousOutcomeError means the transfer may or may not have been executed.
// It must not be retried automatically.
type AmbiguousOutcomeError struct {
	ProviderError
	RequestID string
}

func (e *AmbiguousOutcomeError) Error() string {
	return fmt.Sprintf("ambiguous outcome (request_id=%s): %s", e.RequestID, e.ProviderError.Error())
}

func (e *AmbiguousOutcomeError) Unwrap() error {
	return &e.ProviderError
}
