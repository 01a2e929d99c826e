package tasks

import (
	"fmt"
	"strings"

	"github.com/nodrake/ndh/internal/models"
	"github.com/nodrake/ndh/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Planning Phase = iota
	Planned
	Executing
	Polling
	Archiving
	Importing
)

func (p Phase) String() string {
	switch p {
	case Planning:
		return "planning"
	case Planned:
		return "planned"
	case Executing:
		return "executing"
	case Polling:
		return "polling"
	case Archiving:
		return "archiving"
	case Importing:
		return "importing"
	default:
		return ""
	}
}

func planningUpdate(providers []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Planning,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Planning enforcement for %s...", strings.Join(providers, ", ")),
	}
}

func plannedUpdate(plan *services.EnforcementPlan) ProgressUpdate {
	total := 0
	for _, impact := range plan.Impact {
		total += impact.LikedSongs + impact.Playlists + impact.Following + impact.RadioSeeds
	}
	return ProgressUpdate{
		Phase:   Planned,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Plan ready: %d items across %d providers", total, len(plan.Providers)),
		Data:    plan,
	}
}

func executingUpdate(batch *services.EnforcementBatch) ProgressUpdate {
	message := fmt.Sprintf("Batch %s submitted", batch.ID)
	if batch.DryRun {
		message = fmt.Sprintf("Batch %s submitted (dry run)", batch.ID)
	}
	return ProgressUpdate{
		Phase:   Executing,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    batch,
	}
}

func pollUpdate(batch *services.EnforcementBatch) ProgressUpdate {
	done := batch.Summary.CompletedItems + batch.Summary.FailedItems + batch.Summary.SkippedItems
	return ProgressUpdate{
		Phase:   Polling,
		Step:    done,
		Total:   batch.Summary.TotalItems,
		Message: fmt.Sprintf("[%d/%d] %s", done, batch.Summary.TotalItems, batch.Status),
		Data:    batch,
	}
}

func archivedUpdate(batch *services.EnforcementBatch) ProgressUpdate {
	var message string
	switch batch.Status {
	case models.BatchCompleted:
		message = fmt.Sprintf("✓ Batch %s completed: %d done, %d failed, %d skipped",
			batch.ID,
			batch.Summary.CompletedItems,
			batch.Summary.FailedItems,
			batch.Summary.SkippedItems,
		)
	case models.BatchFailed:
		message = fmt.Sprintf("✗ Batch %s failed: %s", batch.ID, batch.ErrorMessage)
	default:
		message = fmt.Sprintf("Batch %s cancelled", batch.ID)
	}
	return ProgressUpdate{
		Phase:   Archiving,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    batch,
	}
}

func importStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Importing,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Importing %d artists...", total),
	}
}

func importAddedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Importing,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, name),
	}
}

func importSkippedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Importing,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s (already listed)", step, total, name),
	}
}

func importFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Importing,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
