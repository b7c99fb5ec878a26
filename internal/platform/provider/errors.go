package provider

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrNotConfigured    = errors.New("payment provider not configured")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
	ErrInvalidRequest   = errors.New("invalid initiation request")
)

// RequestError is a 4xx answer from a provider. It is never retried.
type RequestError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s rejected request (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// TransientError is a 5xx answer, a transport failure or a timeout that
// survived every retry attempt.
type TransientError struct {
	Provider   string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s unavailable after %d attempt(s) (status %d): %v", e.Provider, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s unavailable after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
