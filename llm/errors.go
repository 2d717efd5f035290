package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying backend failures. Backends wrap one of
// these before the error crosses the router boundary.
var (
	// ErrUnavailable indicates the backend could not be reached.
	// Retryable for the daemon kind only.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrAuthFailed indicates a missing or rejected credential. Never retried.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrEmptyResponse indicates the backend replied without content.
	ErrEmptyResponse = errors.New("empty response")

	// ErrProtocol indicates the backend replied with an unusable payload.
	ErrProtocol = errors.New("protocol error")
)

// BackendError attaches the originating backend kind to a taxonomy error.
type BackendError struct {
	Backend Kind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// WrapBackendError tags err with the backend kind that produced it.
func WrapBackendError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: kind, Err: err}
}

// Attempt records one failed backend invocation inside a router call.
type Attempt struct {
	Backend Kind
	Err     error
}

// ExhaustedError is returned when every backend in the chain failed. It
// carries the causal chain so callers can name each backend tried and
// the last underlying cause verbatim.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	sb.WriteString("all backends exhausted")
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, "; %s: %v", a.Backend, a.Err)
	}
	return sb.String()
}

// Unwrap exposes the underlying causes for errors.Is/As inspection.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Last returns the final underlying cause, or nil when the chain is empty.
func (e *ExhaustedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
