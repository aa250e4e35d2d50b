package orchestrator

import "github.com/Xmanuel01/Viralclips/models"

// legalTransitions is the job state machine. Anything not listed is rejected,
// including every move out of a terminal state.
var legalTransitions = map[models.JobStatus][]models.JobStatus{
	models.StatusPending: {models.StatusRunning, models.StatusCancelled},
	models.StatusRunning: {models.StatusCompleted, models.StatusFailed, models.StatusCancelled},
	models.StatusFailed:  {models.StatusPending}, // retry
}

// CanTransition reports whether moving a job from one status to another is
// legal.
func CanTransition(from, to models.JobStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
