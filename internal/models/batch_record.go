package models

import (
	"fmt"
	"strings"
	"time"
)

// Batch statuses reported by the backend. Archived records keep the final
// status verbatim.
const (
	BatchPending   = "pending"
	BatchRunning   = "running"
	BatchCompleted = "completed"
	BatchFailed    = "failed"
	BatchCancelled = "cancelled"
)

var batchStatuses = map[string]bool{
	BatchPending:   true,
	BatchRunning:   true,
	BatchCompleted: true,
	BatchFailed:    true,
	BatchCancelled: true,
}

// BatchRecord is an archived enforcement batch. One record is written each
// time a batch reaches a terminal status, so enforcement history survives
// process exit.
type BatchRecord struct {
	id             string
	sequence       int
	batchID        string
	status         string
	dryRun         bool
	providers      []string
	totalItems     int
	completedItems int
	failedItems    int
	skippedItems   int
	options        string
	rolledBack     bool
	errorMessage   string
	startedAt      *time.Time
	completedAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

// NewBatchRecord creates an archive record for a server batch.
func NewBatchRecord(sequence int, batchID, status string, dryRun bool, providers []string) *BatchRecord {
	now := time.Now()
	return &BatchRecord{
		sequence:  sequence,
		batchID:   batchID,
		status:    status,
		dryRun:    dryRun,
		providers: providers,
		createdAt: now,
		updatedAt: now,
	}
}

func (b *BatchRecord) ID() string            { return b.id }
func (b *BatchRecord) Sequence() int         { return b.sequence }
func (b *BatchRecord) BatchID() string       { return b.batchID }
func (b *BatchRecord) Status() string        { return b.status }
func (b *BatchRecord) DryRun() bool          { return b.dryRun }
func (b *BatchRecord) Providers() []string   { return b.providers }
func (b *BatchRecord) TotalItems() int       { return b.totalItems }
func (b *BatchRecord) CompletedItems() int   { return b.completedItems }
func (b *BatchRecord) FailedItems() int      { return b.failedItems }
func (b *BatchRecord) SkippedItems() int     { return b.skippedItems }
func (b *BatchRecord) Options() string       { return b.options }
func (b *BatchRecord) RolledBack() bool      { return b.rolledBack }
func (b *BatchRecord) ErrorMessage() string  { return b.errorMessage }
func (b *BatchRecord) StartedAt() *time.Time { return b.startedAt }

// CompletedAt returns when the batch reached its terminal status, nil when
// unknown.
func (b *BatchRecord) CompletedAt() *time.Time { return b.completedAt }
func (b *BatchRecord) CreatedAt() time.Time    { return b.createdAt }
func (b *BatchRecord) UpdatedAt() time.Time    { return b.updatedAt }
func (b *BatchRecord) DeletedAt() *time.Time   { return b.deletedAt }

func (b *BatchRecord) SetID(id string)            { b.id = id }
func (b *BatchRecord) SetStatus(status string)    { b.status = status }
func (b *BatchRecord) SetOptions(options string)  { b.options = options }
func (b *BatchRecord) SetRolledBack(v bool)       { b.rolledBack = v }
func (b *BatchRecord) SetErrorMessage(msg string) { b.errorMessage = msg }
func (b *BatchRecord) SetStartedAt(t *time.Time)  { b.startedAt = t }
func (b *BatchRecord) SetCompletedAt(t *time.Time) {
	b.completedAt = t
}
func (b *BatchRecord) SetCreatedAt(t time.Time)  { b.createdAt = t }
func (b *BatchRecord) SetUpdatedAt(t time.Time)  { b.updatedAt = t }
func (b *BatchRecord) SetDeletedAt(t *time.Time) { b.deletedAt = t }

// SetSummary records the item counts reported by the backend.
func (b *BatchRecord) SetSummary(total, completed, failed, skipped int) {
	b.totalItems = total
	b.completedItems = completed
	b.failedItems = failed
	b.skippedItems = skipped
}

// ProviderList returns the providers joined for storage.
func (b *BatchRecord) ProviderList() string {
	return strings.Join(b.providers, ",")
}

// SetProviderList restores providers from their stored form.
func (b *BatchRecord) SetProviderList(list string) {
	if list == "" {
		b.providers = nil
		return
	}
	b.providers = strings.Split(list, ",")
}

// Validate checks that the record names a server batch and carries a known
// status with coherent counts.
func (b *BatchRecord) Validate() error {
	if b.batchID == "" {
		return fmt.Errorf("batch record requires a server batch id")
	}
	if !batchStatuses[b.status] {
		return fmt.Errorf("unknown batch status %q", b.status)
	}
	if b.totalItems < 0 || b.completedItems < 0 || b.failedItems < 0 || b.skippedItems < 0 {
		return fmt.Errorf("batch item counts cannot be negative")
	}
	if b.completedItems+b.failedItems+b.skippedItems > b.totalItems {
		return fmt.Errorf("batch item counts exceed total")
	}
	return nil
}
