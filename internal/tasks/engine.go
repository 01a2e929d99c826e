package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nodrake/ndh/internal/models"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
)

// defaultPollInterval matches the cadence the web client polls batch
// progress at. Overridable through SetPollInterval for config wiring.
const defaultPollInterval = 2 * time.Second

// RunResult contains all data from a full plan-execute-watch cycle.
type RunResult struct {
	Plan  *services.EnforcementPlan  // Plan the server computed for this run
	Batch *services.EnforcementBatch // Final batch state once the run settled
}

// HistoryStore persists finished batches so enforcement history survives
// process exit. Implemented by repositories.BatchArchiveAdapter; archiving
// must be idempotent on the server batch ID.
type HistoryStore interface {
	ArchiveBatch(record *models.BatchRecord) error
	MarkRolledBack(batchID string) error
}

// EnforcementRunner defines the long-running operations the CLI and TUI drive.
type EnforcementRunner interface {
	// Run performs a full enforcement cycle: plan, execute, watch to a terminal status.
	Run(ctx context.Context, providers []string, dryRun bool, opts services.EnforcementOptions, progress chan<- ProgressUpdate) (*RunResult, error)

	// Watch polls batch progress until the batch settles or ctx is cancelled.
	Watch(ctx context.Context, batchID string, progress chan<- ProgressUpdate) (*services.EnforcementBatch, error)

	// Rollback asks the server to reverse a finished batch.
	Rollback(ctx context.Context, batchID string) (*services.EnforcementBatch, error)

	// BulkImport adds many artists to the do-not-play list concurrently.
	BulkImport(ctx context.Context, entries []ImportEntry, opts BulkImportOpts, progress chan<- ProgressUpdate) (*BulkImportResult, error)
}

// EnforcementEngine implements EnforcementRunner against the backend's
// enforcement endpoints. The server owns all library mutation; the engine
// creates plans, submits executions, and observes progress until batches
// settle, archiving each finished batch into the history store.
//
// One active plan is held at a time. Executing it produces the current
// batch; when that batch reaches a terminal status both are cleared.
type EnforcementEngine struct {
	enforcement services.EnforcementAPI
	dnp         services.DNPAPI
	history     HistoryStore

	pollInterval time.Duration

	mu           sync.Mutex
	currentPlan  *services.EnforcementPlan
	currentBatch *services.EnforcementBatch
	recent       []services.EnforcementBatch // newest first, this process only
}

// NewEnforcementEngine creates an engine over the provided services. history
// may be nil, in which case finished batches are only kept in memory.
func NewEnforcementEngine(enforcement services.EnforcementAPI, dnp services.DNPAPI, history HistoryStore) *EnforcementEngine {
	return &EnforcementEngine{
		enforcement:  enforcement,
		dnp:          dnp,
		history:      history,
		pollInterval: defaultPollInterval,
	}
}

// SetPollInterval overrides how often Watch asks the server for progress.
// Non-positive values are ignored.
func (e *EnforcementEngine) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.pollInterval = d
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *EnforcementEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// CreatePlan asks the server to compute an enforcement plan and holds it as
// the active plan. Any previously held plan or batch is discarded.
func (e *EnforcementEngine) CreatePlan(ctx context.Context, providers []string, dryRun bool, opts services.EnforcementOptions) (*services.EnforcementPlan, error) {
	if e.enforcement == nil {
		return nil, fmt.Errorf("%w: enforcement service not initialized", shared.ErrServiceUnavailable)
	}

	plan, err := e.enforcement.CreatePlan(ctx, providers, dryRun, opts)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.currentPlan = plan
	e.currentBatch = nil
	e.mu.Unlock()
	return plan, nil
}

// Execute submits the active plan for execution. Each call sends a fresh
// idempotency key, so retrying a failed submission never double-executes on
// the server side. The returned batch becomes the current batch.
func (e *EnforcementEngine) Execute(ctx context.Context) (*services.EnforcementBatch, error) {
	if e.enforcement == nil {
		return nil, fmt.Errorf("%w: enforcement service not initialized", shared.ErrServiceUnavailable)
	}

	plan := e.Plan()
	if plan == nil {
		return nil, fmt.Errorf("%w: create a plan before executing", shared.ErrNoActivePlan)
	}

	batch, err := e.enforcement.Execute(ctx, plan.PlanID, shared.GenerateID())
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition("", batch.Status); err != nil {
		return nil, err
	}

	e.setBatch(batch)
	return batch, nil
}

// Watch polls the server for batch progress until the batch reaches a
// terminal status, sending a poll update per observation. The final batch is
// archived into history exactly once and the active plan and batch are
// cleared. Cancelling ctx stops the poll loop between requests; the ticker
// is released on every exit path.
//
// The server may report a status the previous observation cannot lead to
// (a regression or movement out of a terminal status); Watch rejects that
// with shared.ErrBatchState rather than trusting it.
func (e *EnforcementEngine) Watch(ctx context.Context, batchID string, progress chan<- ProgressUpdate) (*services.EnforcementBatch, error) {
	if e.enforcement == nil {
		return nil, fmt.Errorf("%w: enforcement service not initialized", shared.ErrServiceUnavailable)
	}
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id required", shared.ErrInvalidInput)
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	lastStatus := ""
	for {
		batch, err := e.enforcement.Progress(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if err := ValidateTransition(lastStatus, batch.Status); err != nil {
			return nil, err
		}
		lastStatus = batch.Status

		e.setBatch(batch)
		e.sendProgress(progress, pollUpdate(batch))

		if IsTerminal(batch.Status) {
			if err := e.finalize(batch); err != nil {
				return batch, fmt.Errorf("batch %s finished but archiving failed: %w", batch.ID, err)
			}
			e.sendProgress(progress, archivedUpdate(batch))
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Run performs a full enforcement cycle against the selected providers:
// create a plan, execute it, then watch the batch until it settles. Dry
// runs go through the same cycle; the server simulates the items instead
// of mutating libraries.
func (e *EnforcementEngine) Run(ctx context.Context, providers []string, dryRun bool, opts services.EnforcementOptions, progress chan<- ProgressUpdate) (*RunResult, error) {
	e.sendProgress(progress, planningUpdate(providers))

	plan, err := e.CreatePlan(ctx, providers, dryRun, opts)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, plannedUpdate(plan))

	batch, err := e.Execute(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, executingUpdate(batch))

	final, err := e.Watch(ctx, batch.ID, progress)
	if err != nil {
		return &RunResult{Plan: plan, Batch: final}, err
	}
	return &RunResult{Plan: plan, Batch: final}, nil
}

// Rollback asks the server to reverse a finished batch. The reversal is a
// new batch starting out pending; it is archived immediately so it shows up
// in history, and callers watch it like any other batch. The original
// history record is flagged as rolled back.
func (e *EnforcementEngine) Rollback(ctx context.Context, batchID string) (*services.EnforcementBatch, error) {
	if e.enforcement == nil {
		return nil, fmt.Errorf("%w: enforcement service not initialized", shared.ErrServiceUnavailable)
	}
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id required", shared.ErrInvalidInput)
	}

	reversal, err := e.enforcement.Rollback(ctx, batchID)
	if err != nil {
		return nil, err
	}

	e.setBatch(reversal)
	if err := e.recordBatch(reversal); err != nil {
		return reversal, fmt.Errorf("rollback accepted but archiving failed: %w", err)
	}
	if e.history != nil {
		if err := e.history.MarkRolledBack(batchID); err != nil {
			return reversal, fmt.Errorf("rollback accepted but history update failed: %w", err)
		}
	}
	return reversal, nil
}

// Plan returns a copy of the active plan, nil when none is held.
func (e *EnforcementEngine) Plan() *services.EnforcementPlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentPlan == nil {
		return nil
	}
	plan := *e.currentPlan
	return &plan
}

// Batch returns a copy of the current batch, nil when none is in flight.
func (e *EnforcementEngine) Batch() *services.EnforcementBatch {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentBatch == nil {
		return nil
	}
	batch := *e.currentBatch
	return &batch
}

// ClearPlan discards the active plan and batch without executing.
func (e *EnforcementEngine) ClearPlan() {
	e.mu.Lock()
	e.currentPlan = nil
	e.currentBatch = nil
	e.mu.Unlock()
}

// History returns the batches this process has seen settle, newest first.
// Cross-session history lives in the history store.
func (e *EnforcementEngine) History() []services.EnforcementBatch {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]services.EnforcementBatch, len(e.recent))
	copy(out, e.recent)
	return out
}

func (e *EnforcementEngine) setBatch(batch *services.EnforcementBatch) {
	e.mu.Lock()
	e.currentBatch = batch
	e.mu.Unlock()
}

// finalize records a settled batch and clears the active plan and batch.
func (e *EnforcementEngine) finalize(batch *services.EnforcementBatch) error {
	e.mu.Lock()
	e.currentBatch = nil
	e.currentPlan = nil
	e.mu.Unlock()
	return e.recordBatch(batch)
}

// recordBatch upserts a batch into in-memory history and the persistent
// store. Recording the same batch again refreshes the existing entry, so a
// batch never appears twice no matter how often it is watched.
func (e *EnforcementEngine) recordBatch(batch *services.EnforcementBatch) error {
	e.mu.Lock()
	replaced := false
	for i := range e.recent {
		if e.recent[i].ID == batch.ID {
			e.recent[i] = *batch
			replaced = true
			break
		}
	}
	if !replaced {
		e.recent = append([]services.EnforcementBatch{*batch}, e.recent...)
	}
	e.mu.Unlock()

	if e.history == nil {
		return nil
	}
	return e.history.ArchiveBatch(recordFromBatch(batch))
}

// recordFromBatch converts a server batch into its archive record.
func recordFromBatch(batch *services.EnforcementBatch) *models.BatchRecord {
	record := models.NewBatchRecord(0, batch.ID, batch.Status, batch.DryRun, batch.Providers)
	record.SetSummary(
		batch.Summary.TotalItems,
		batch.Summary.CompletedItems,
		batch.Summary.FailedItems,
		batch.Summary.SkippedItems,
	)
	record.SetErrorMessage(batch.ErrorMessage)
	if !batch.CreatedAt.IsZero() {
		started := batch.CreatedAt
		record.SetStartedAt(&started)
	}
	record.SetCompletedAt(batch.CompletedAt)
	if data, err := shared.MarshalJSON(batch.Options, false); err == nil {
		record.SetOptions(string(data))
	}
	return record
}
