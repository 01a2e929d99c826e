package tasks

import (
	"fmt"

	"github.com/nodrake/ndh/internal/models"
	"github.com/nodrake/ndh/internal/shared"
)

// statusSuccessors lists the statuses a batch may be observed in after a
// given status. Progress polling can land after the batch has already moved
// through an intermediate state, so the sets are transitive: a pending batch
// may next be seen completed without the watcher ever observing it running.
var statusSuccessors = map[string]map[string]bool{
	models.BatchPending: {
		models.BatchRunning:   true,
		models.BatchCompleted: true,
		models.BatchFailed:    true,
		models.BatchCancelled: true,
	},
	models.BatchRunning: {
		models.BatchCompleted: true,
		models.BatchFailed:    true,
		models.BatchCancelled: true,
	},
	models.BatchCompleted: {},
	models.BatchFailed:    {},
	models.BatchCancelled: {},
}

// ValidStatus reports whether the server sent a known batch status.
func ValidStatus(status string) bool {
	_, ok := statusSuccessors[status]
	return ok
}

// IsTerminal reports whether a batch status is final. Terminal batches never
// change again; completed ones may only be reversed through a rollback, which
// creates a new batch.
func IsTerminal(status string) bool {
	switch status {
	case models.BatchCompleted, models.BatchFailed, models.BatchCancelled:
		return true
	default:
		return false
	}
}

// ValidateTransition checks a newly observed batch status against the
// previously observed one. An empty from means no prior observation and
// accepts any known status. Repeat observations of the same status are fine.
// Regressions and moves out of a terminal status wrap shared.ErrBatchState.
func ValidateTransition(from, to string) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: unknown batch status %q", shared.ErrBatchState, to)
	}
	if from == "" || from == to {
		return nil
	}
	if !ValidStatus(from) {
		return fmt.Errorf("%w: unknown batch status %q", shared.ErrBatchState, from)
	}
	if !statusSuccessors[from][to] {
		return fmt.Errorf("%w: batch cannot move from %q to %q", shared.ErrBatchState, from, to)
	}
	return nil
}
