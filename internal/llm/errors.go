package llm

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates no API credential is configured. Callers should
// switch to their deterministic fallback path instead of retrying.
var ErrUnavailable = errors.New("llm: API key not configured")

// RequestFailedError indicates the provider kept failing after the client
// exhausted its transport retry budget.
type RequestFailedError struct {
	Attempts int
	Last     error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("llm: request failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RequestFailedError) Unwrap() error { return e.Last }

// MalformedResponseError indicates the model returned text that is not valid
// JSON even after repair. Raw preserves the original text for diagnostics.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("llm: malformed JSON response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
