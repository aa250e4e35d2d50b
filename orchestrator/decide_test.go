package orchestrator

import (
	"testing"
	"time"

	"github.com/Xmanuel01/Viralclips/models"
)

func TestDecideRetryableKinds(t *testing.T) {
	retryable := []models.ErrorKind{
		models.ErrSourceUnavailable,
		models.ErrEncodeFailed,
		models.ErrTimeout,
	}
	for _, kind := range retryable {
		d := Decide(kind, 0, 3)
		if d.Action != ActionRetry {
			t.Errorf("Decide(%s, 0, 3) = fail, want retry", kind)
		}
		if d.Backoff <= 0 {
			t.Errorf("Decide(%s) has no backoff", kind)
		}
	}
}

func TestDecidePermanentKinds(t *testing.T) {
	permanent := []models.ErrorKind{
		models.ErrUnsupportedFormat,
		models.ErrSourceNotFound,
		models.ErrSourceTooLarge,
		models.ErrQuotaExceeded,
		models.ErrNoAudioTrack,
		models.ErrInternal,
	}
	for _, kind := range permanent {
		if d := Decide(kind, 0, 3); d.Action != ActionFail {
			t.Errorf("Decide(%s, 0, 3) = retry, want fail", kind)
		}
	}
}

// A transient failure repeated past the budget fails after exactly
// maxRetries retries.
func TestDecideExhaustsRetryBudget(t *testing.T) {
	maxRetries := 3
	retries := 0
	for attempt := 0; attempt < 10; attempt++ {
		d := Decide(models.ErrSourceUnavailable, retries, maxRetries)
		if d.Action == ActionFail {
			break
		}
		retries++
	}
	if retries != maxRetries {
		t.Fatalf("consumed %d retries, want exactly %d", retries, maxRetries)
	}
}

func TestDecideBackoffGrows(t *testing.T) {
	first := Decide(models.ErrTimeout, 0, 5).Backoff
	third := Decide(models.ErrTimeout, 2, 5).Backoff
	if third <= first {
		t.Fatalf("backoff did not grow: attempt 1 = %s, attempt 3 = %s", first, third)
	}
}

func TestStageBudgets(t *testing.T) {
	cases := []struct {
		jobType  models.JobType
		duration float64
		want     time.Duration
	}{
		{models.JobTranscribe, 60, 2 * time.Minute},      // floor
		{models.JobTranscribe, 3600, 30 * time.Minute},   // half realtime
		{models.JobTranscribe, 100000, 45 * time.Minute}, // ceiling
		{models.JobExport, 5, time.Minute},               // floor
		{models.JobExport, 60, 4 * time.Minute},          // 4x clip length
		{models.JobExport, 10000, 10 * time.Minute},      // ceiling
	}
	for _, tc := range cases {
		if got := StageBudget(tc.jobType, tc.duration); got != tc.want {
			t.Errorf("StageBudget(%s, %.0fs) = %s, want %s", tc.jobType, tc.duration, got, tc.want)
		}
	}
}
