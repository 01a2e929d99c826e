package repositories

import (
	"fmt"
	"strings"

	"github.com/nodrake/ndh/internal/models"
)

// BatchArchiveAdapter implements tasks.HistoryStore using BatchRepository.
//
// Archiving is idempotent on the server batch ID: re-archiving an already
// stored batch refreshes its status and counts instead of inserting a
// duplicate row.
type BatchArchiveAdapter struct {
	repo *BatchRepository
}

// NewBatchArchiveAdapter creates a new BatchArchiveAdapter with the given repository
func NewBatchArchiveAdapter(repo *BatchRepository) *BatchArchiveAdapter {
	return &BatchArchiveAdapter{repo: repo}
}

// ArchiveBatch stores a terminal batch in the history archive.
func (a *BatchArchiveAdapter) ArchiveBatch(record *models.BatchRecord) error {
	existing, err := a.repo.GetByBatchID(record.BatchID())
	if err == nil && existing != nil {
		existing.SetStatus(record.Status())
		existing.SetSummary(
			record.TotalItems(),
			record.CompletedItems(),
			record.FailedItems(),
			record.SkippedItems(),
		)
		existing.SetErrorMessage(record.ErrorMessage())
		existing.SetCompletedAt(record.CompletedAt())
		return a.repo.Update(existing)
	}

	if err := a.repo.Create(record); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to archive batch: %w", err)
	}

	return nil
}

// MarkRolledBack flags the archived record for a server batch as rolled back.
func (a *BatchArchiveAdapter) MarkRolledBack(batchID string) error {
	return a.repo.MarkRolledBack(batchID)
}
