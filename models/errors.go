package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a stage failure. The orchestrator decides retry vs
// terminal-fail on the kind alone, never on message text.
type ErrorKind string

const (
	// Input errors: user-correctable, never retried.
	ErrUnsupportedFormat ErrorKind = "UnsupportedFormat"
	ErrSourceNotFound    ErrorKind = "SourceNotFound"
	ErrSourceTooLarge    ErrorKind = "SourceTooLarge"
	ErrQuotaExceeded     ErrorKind = "QuotaExceeded"

	// Transient infrastructure errors: retried with backoff.
	ErrSourceUnavailable ErrorKind = "SourceUnavailable"
	ErrEncodeFailed      ErrorKind = "EncodeFailed"
	ErrTimeout           ErrorKind = "Timeout"

	// Data errors: retrying cannot change the outcome.
	ErrNoAudioTrack     ErrorKind = "NoAudioTrack"
	ErrSourceTrimFailed ErrorKind = "SourceTrimFailed"

	// Degraded-but-successful: recorded as a warning, never fails a job.
	ErrAssetMissing ErrorKind = "AssetMissing"

	ErrInternal ErrorKind = "Internal"
)

// Retryable reports whether the kind is a transient infrastructure failure.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrSourceUnavailable, ErrEncodeFailed, ErrTimeout:
		return true
	}
	return false
}

// PipelineError is the typed error every stage component returns across its
// boundary: a kind, a human message, and optional structured detail.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Detail  map[string]any
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewError builds a PipelineError wrapping cause (cause may be nil).
func NewError(kind ErrorKind, cause error, format string, args ...any) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// KindOf extracts the ErrorKind from err, defaulting to ErrInternal for
// untyped errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrInternal
}

// UserMessage returns the message safe to surface to the requester. Untyped
// errors never leak internals to the polling interface.
func UserMessage(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return "internal processing error"
}
