package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
)

// ImportEntry is one artist to add to the do-not-play list. Either ArtistID
// names a backend artist directly or Query is resolved through search, the
// first match winning.
type ImportEntry struct {
	ArtistID string   // Backend artist ID, used as-is when set
	Query    string   // Artist name to resolve when ArtistID is empty
	Tags     []string // Per-entry tags, overriding BulkImportOpts.Tags
	Note     string   // Per-entry note, overriding BulkImportOpts.Note
}

// Label returns the name shown for this entry in progress messages.
func (e ImportEntry) Label() string {
	if e.Query != "" {
		return e.Query
	}
	return e.ArtistID
}

// BulkImportOpts contains configuration for bulk list imports.
type BulkImportOpts struct {
	NumWorkers int      // Concurrent workers (default: 5)
	RateLimit  float64  // Requests per second (default: 5)
	Tags       []string // Tags applied to entries without their own
	Note       string   // Note applied to entries without their own
}

// ImportOutcome is the result of importing a single entry.
type ImportOutcome struct {
	Entry   ImportEntry
	Added   *services.DNPEntry // List entry the server created, nil otherwise
	Skipped bool               // Artist was already on the list
	Error   error
}

// BulkImportResult summarizes a bulk import run.
type BulkImportResult struct {
	TotalEntries int
	Added        int
	Skipped      int
	Failed       int
	Outcomes     []ImportOutcome
}

type importJob struct {
	index int
	entry ImportEntry
}

// BulkImport adds multiple artists to the do-not-play list concurrently with
// rate limiting and progress tracking.
//
// This method implements a worker pool pattern so large list files import in
// reasonable time without hammering the backend. Entries that fail to
// resolve or add are collected per-item; an artist already on the list
// counts as skipped, not failed. Cancelling ctx stops feeding workers and
// returns the partial result with ctx's error.
func (e *EnforcementEngine) BulkImport(ctx context.Context, entries []ImportEntry, opts BulkImportOpts, progress chan<- ProgressUpdate) (*BulkImportResult, error) {
	if e.dnp == nil {
		return nil, fmt.Errorf("%w: list service not initialized", shared.ErrServiceUnavailable)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no artists to import", shared.ErrInvalidInput)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &BulkImportResult{
		TotalEntries: len(entries),
		Outcomes:     make([]ImportOutcome, 0, len(entries)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan importJob, len(entries))
	results := make(chan ImportOutcome, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.importWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, entry := range entries {
			select {
			case <-ctx.Done():
				return
			case jobs <- importJob{index: i, entry: entry}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	e.sendProgress(progress, importStartedUpdate(len(entries)))

	completed := 0
	for outcome := range results {
		completed++
		result.Outcomes = append(result.Outcomes, outcome)

		switch {
		case outcome.Error != nil:
			result.Failed++
			e.sendProgress(progress, importFailedUpdate(completed, len(entries), outcome.Entry.Label(), outcome.Error))
		case outcome.Skipped:
			result.Skipped++
			e.sendProgress(progress, importSkippedUpdate(completed, len(entries), outcome.Entry.Label()))
		default:
			result.Added++
			e.sendProgress(progress, importAddedUpdate(completed, len(entries), outcome.Entry.Label()))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// importWorker is a worker goroutine that imports entries from the jobs channel.
func (e *EnforcementEngine) importWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan importJob,
	results chan<- ImportOutcome,
	opts BulkImportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.importSingleEntry(ctx, limiter, job.entry, opts)
	}
}

// importSingleEntry resolves and adds one artist to the list.
func (e *EnforcementEngine) importSingleEntry(
	ctx context.Context,
	limiter *rate.Limiter,
	entry ImportEntry,
	opts BulkImportOpts,
) ImportOutcome {
	outcome := ImportOutcome{Entry: entry}

	artistID := entry.ArtistID
	if artistID == "" {
		if entry.Query == "" {
			outcome.Error = fmt.Errorf("%w: entry needs an artist id or name", shared.ErrInvalidInput)
			return outcome
		}
		if err := limiter.Wait(ctx); err != nil {
			outcome.Error = err
			return outcome
		}
		matches, err := e.dnp.SearchArtists(ctx, entry.Query, 1)
		if err != nil {
			outcome.Error = fmt.Errorf("search failed: %w", err)
			return outcome
		}
		if len(matches) == 0 {
			outcome.Error = fmt.Errorf("%w: no match for %q", shared.ErrArtistNotFound, entry.Query)
			return outcome
		}
		artistID = matches[0].ID
	}

	tags := entry.Tags
	if len(tags) == 0 {
		tags = opts.Tags
	}
	note := entry.Note
	if note == "" {
		note = opts.Note
	}

	if err := limiter.Wait(ctx); err != nil {
		outcome.Error = err
		return outcome
	}

	added, err := e.dnp.Add(ctx, artistID, tags, note)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			outcome.Skipped = true
			return outcome
		}
		outcome.Error = err
		return outcome
	}

	outcome.Added = added
	return outcome
}
