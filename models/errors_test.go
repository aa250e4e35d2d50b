package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedError(t *testing.T) {
	inner := NewError(ErrSourceTooLarge, nil, "file is 300MB")
	wrapped := fmt.Errorf("ingest stage: %w", inner)

	if got := KindOf(wrapped); got != ErrSourceTooLarge {
		t.Fatalf("KindOf(wrapped) = %s, want %s", got, ErrSourceTooLarge)
	}
	if got := KindOf(errors.New("plain")); got != ErrInternal {
		t.Fatalf("KindOf(plain) = %s, want %s", got, ErrInternal)
	}
}

func TestUserMessageHidesInternals(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.4:5432: connection refused")
	err := NewError(ErrSourceUnavailable, cause, "source host unreachable")

	if got := UserMessage(err); got != "source host unreachable" {
		t.Fatalf("UserMessage = %q", got)
	}
	if got := UserMessage(cause); got != "internal processing error" {
		t.Fatalf("untyped error leaked: %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
}

func TestRetryableKinds(t *testing.T) {
	if !ErrSourceUnavailable.Retryable() || !ErrEncodeFailed.Retryable() || !ErrTimeout.Retryable() {
		t.Error("transient kinds must be retryable")
	}
	for _, kind := range []ErrorKind{
		ErrUnsupportedFormat, ErrSourceNotFound, ErrSourceTooLarge,
		ErrQuotaExceeded, ErrNoAudioTrack, ErrSourceTrimFailed,
		ErrAssetMissing, ErrInternal,
	} {
		if kind.Retryable() {
			t.Errorf("%s must not be retryable", kind)
		}
	}
}
