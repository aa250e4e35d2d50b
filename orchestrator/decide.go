package orchestrator

import (
	"time"

	"github.com/Xmanuel01/Viralclips/fetch"
	"github.com/Xmanuel01/Viralclips/models"
)

// Action is what the orchestrator does with a failed stage.
type Action int

const (
	// ActionFail marks the job permanently failed.
	ActionFail Action = iota
	// ActionRetry consumes one retry and re-enqueues after Backoff.
	ActionRetry
)

// Decision is retry policy evaluated as data, so it can be tested without a
// queue or a database.
type Decision struct {
	Action  Action
	Backoff time.Duration
}

// Decide maps a stage failure to a decision. Only transient error kinds are
// retried, and only while budget remains; retryCount is the number of retries
// already consumed.
func Decide(kind models.ErrorKind, retryCount, maxRetries int) Decision {
	if !kind.Retryable() || retryCount >= maxRetries {
		return Decision{Action: ActionFail}
	}
	return Decision{
		Action:  ActionRetry,
		Backoff: fetch.Backoff(retryCount + 1),
	}
}

// StageBudget returns the wall-clock ceiling for one stage run. Budgets scale
// with the amount of media processed so long podcasts do not hit the ceiling
// a short clip is held to.
func StageBudget(jobType models.JobType, mediaDuration float64) time.Duration {
	switch jobType {
	case models.JobTranscribe:
		return clampDuration(time.Duration(mediaDuration*0.5*float64(time.Second)), 2*time.Minute, 45*time.Minute)
	case models.JobExport:
		return clampDuration(time.Duration(mediaDuration*4*float64(time.Second)), time.Minute, 10*time.Minute)
	case models.JobDetect:
		return clampDuration(time.Duration(mediaDuration*0.25*float64(time.Second)), 2*time.Minute, 15*time.Minute)
	case models.JobIngest:
		return 30 * time.Minute
	default:
		return 2 * time.Minute
	}
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
