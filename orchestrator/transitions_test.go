package orchestrator

import (
	"testing"

	"github.com/Xmanuel01/Viralclips/models"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to models.JobStatus }{
		{models.StatusPending, models.StatusRunning},
		{models.StatusPending, models.StatusCancelled},
		{models.StatusRunning, models.StatusCompleted},
		{models.StatusRunning, models.StatusFailed},
		{models.StatusRunning, models.StatusCancelled},
		{models.StatusFailed, models.StatusPending},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be legal", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to models.JobStatus }{
		{models.StatusCompleted, models.StatusRunning},
		{models.StatusCompleted, models.StatusPending},
		{models.StatusCancelled, models.StatusRunning},
		{models.StatusCancelled, models.StatusPending},
		{models.StatusPending, models.StatusCompleted},
		{models.StatusPending, models.StatusFailed},
		{models.StatusFailed, models.StatusRunning},
		{models.StatusFailed, models.StatusCompleted},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

// Terminal states admit no outgoing transition at all.
func TestTerminalStatesAreFinal(t *testing.T) {
	all := []models.JobStatus{
		models.StatusPending, models.StatusRunning, models.StatusCompleted,
		models.StatusFailed, models.StatusCancelled,
	}
	for _, to := range all {
		if CanTransition(models.StatusCompleted, to) {
			t.Errorf("completed -> %s should be rejected", to)
		}
		if CanTransition(models.StatusCancelled, to) {
			t.Errorf("cancelled -> %s should be rejected", to)
		}
	}
}
