package resolver

import (
	"errors"
	"fmt"
	"strings"

	"MacroLens/internal/model"
)

var (
	ErrInvalidRequest      = errors.New("invalid series request")
	ErrNotFound            = errors.New("no data found")
	ErrMalformedResponse   = errors.New("malformed provider response")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ValidationError rejects a request before anything is fetched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// NotFoundError means neither the primary nor the fallback entity form
// produced usable data.
type NotFoundError struct {
	Source    model.Source
	Entity    string
	Indicator string
	Tried     []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no data for indicator %s and entity %s from %s", e.Indicator, e.Entity, e.Source)
	if len(e.Tried) > 0 {
		msg += fmt.Sprintf(" (tried %s)", strings.Join(e.Tried, ", "))
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MalformedResponseError means the provider answered with data that no
// cascade rule could interpret.
type MalformedResponseError struct {
	Source    model.Source
	Entity    string
	Indicator string
	Shape     string
	Skipped   int
	Err       error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("unrecognized %s response from %s for %s/%s", e.Shape, e.Source, e.Entity, e.Indicator)
	if e.Skipped > 0 {
		msg += fmt.Sprintf(": %d entries skipped", e.Skipped)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// ProviderUnavailableError wraps a transport or upstream failure.
type ProviderUnavailableError struct {
	Source model.Source
	Err    error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

func (e *ProviderUnavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

// Outcome classifies a resolution result for the history log.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "unavailable"
	}
}
