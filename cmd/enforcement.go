package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nodrake/ndh/internal/models"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
	"github.com/nodrake/ndh/internal/tasks"
	"github.com/urfave/cli/v3"
)

// EnforcementPlan previews what an enforcement run would touch.
func (r *Runner) EnforcementPlan(ctx context.Context, cmd *cli.Command) error {
	providers := splitList(cmd.String("providers"))
	dryRun := cmd.Bool("dry-run")
	useJSON := cmd.Bool("json")

	opts, err := r.enforcementOptions(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("planning enforcement", "providers", providers, "dry_run", dryRun)

	plan, err := r.engine.CreatePlan(ctx, providers, dryRun, opts)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(plan, true)
	}

	r.writePlainHeader("Enforcement Plan")
	r.writePlain("Plan ID: %s\n", plan.PlanID)
	r.writePlain("Providers: %s\n", strings.Join(plan.Providers, ", "))
	r.writePlain("Aggressiveness: %s\n", plan.Options.Aggressiveness)
	if plan.DryRun {
		r.writePlain("Mode: dry run\n")
	}
	r.writePlain("Estimated duration: %ds\n\n", plan.EstimatedDurationSeconds)

	for _, provider := range plan.Providers {
		impact := plan.Impact[provider]
		r.writePlain("%s:\n", provider)
		r.writePlain("  Liked songs to remove: %d\n", impact.LikedSongs)
		r.writePlain("  Playlists to purge: %d\n", impact.Playlists)
		r.writePlain("  Artists to unfollow: %d\n", impact.Following)
		r.writePlain("  Radio seeds to drop: %d\n", impact.RadioSeeds)
	}

	r.writePlain("\nRun 'ndh enforcement run' to apply.\n")
	return nil
}

// EnforcementRun performs a full enforcement cycle: plan, execute, and
// watch the batch until it settles.
func (r *Runner) EnforcementRun(ctx context.Context, cmd *cli.Command) error {
	providers := splitList(cmd.String("providers"))
	dryRun := cmd.Bool("dry-run")

	opts, err := r.enforcementOptions(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("starting enforcement", "providers", providers, "dry_run", dryRun)
	r.writePlain("Starting enforcement...\n\n")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.Planning:
				r.writePlain("📋 %s\n", update.Message)
			case tasks.Planned:
				r.writePlain("   %s\n", update.Message)
			case tasks.Executing:
				r.writePlain("\n🚀 %s\n", update.Message)
			case tasks.Polling:
				r.writePlain("   %s\n", update.Message)
			case tasks.Archiving:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Run(ctx, providers, dryRun, opts, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	title := "Enforcement Complete"
	if result.Batch.DryRun {
		title = "Dry Run Complete"
	}
	r.writePlain("\n")
	r.writePlainHeader(title)
	r.writeBatchSummary(result.Batch)

	if result.Batch.DryRun {
		r.writePlain("\nNo library changes were made.\n")
	}
	return nil
}

// EnforcementWatch follows an in-flight batch until it settles, e.g. after
// the terminal that started the run was closed.
func (r *Runner) EnforcementWatch(ctx context.Context, cmd *cli.Command) error {
	batchID := cmd.StringArg("batch-id")
	if batchID == "" {
		return fmt.Errorf("%w: batch-id argument is required", shared.ErrMissingArgument)
	}

	r.writePlain("Watching batch %s...\n\n", batchID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("   %s\n", update.Message)
		}
	}()

	batch, err := r.engine.Watch(ctx, batchID, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writeBatchSummary(batch)
	return nil
}

// EnforcementHistory lists archived batches from the local cache.
func (r *Runner) EnforcementHistory(ctx context.Context, cmd *cli.Command) error {
	if r.archive == nil {
		return fmt.Errorf("%w: history needs the cache database, run 'ndh setup database'", shared.ErrServiceUnavailable)
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	records, err := r.archive.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]historyRow, 0, len(records))
		for _, record := range records {
			rows = append(rows, newHistoryRow(record))
		}
		return r.writeJSON(rows, true)
	}

	if len(records) == 0 {
		return r.writePlain("No enforcement batches recorded yet.\n")
	}

	r.writePlain("Enforcement history (%d batches):\n\n", len(records))
	for _, record := range records {
		marker := "✓"
		if record.FailedItems() > 0 {
			marker = "⚠"
		}
		if record.RolledBack() {
			marker = "↩"
		}

		r.writePlain("%s %s  %s", marker, record.BatchID(), record.Status())
		if record.DryRun() {
			r.writePlain(" (dry run)")
		}
		r.writePlain("\n")
		r.writePlain("   Providers: %s\n", record.ProviderList())
		r.writePlain("   Items: %d completed, %d failed, %d skipped\n",
			record.CompletedItems(), record.FailedItems(), record.SkippedItems())
		if record.CompletedAt() != nil {
			r.writePlain("   Finished: %s\n", record.CompletedAt().Format(time.RFC1123))
		}
	}
	return nil
}

// EnforcementRollback asks the server to reverse a finished batch and
// watches the reversal until it settles.
func (r *Runner) EnforcementRollback(ctx context.Context, cmd *cli.Command) error {
	batchID := cmd.StringArg("batch-id")
	if batchID == "" {
		return fmt.Errorf("%w: batch-id argument is required", shared.ErrMissingArgument)
	}

	r.logger.Info("rolling back batch", "batch_id", batchID)
	r.writePlain("Rolling back batch %s...\n\n", batchID)

	reversal, err := r.engine.Rollback(ctx, batchID)
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("   %s\n", update.Message)
		}
	}()

	final, err := r.engine.Watch(ctx, reversal.ID, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n✓ Rollback complete\n")
	r.writeBatchSummary(final)
	return nil
}

// enforcementOptions builds run options from config, with flags layered on
// top. Bool flags only enable behaviors; disabling a config default means
// editing the config.
func (r *Runner) enforcementOptions(cmd *cli.Command) (services.EnforcementOptions, error) {
	opts := services.OptionsFromConfig(r.config.Enforcement)

	if aggressiveness := cmd.String("aggressiveness"); aggressiveness != "" {
		opts.Aggressiveness = aggressiveness
	}
	if cmd.Bool("block-collabs") {
		opts.BlockCollabs = true
	}
	if cmd.Bool("block-featuring") {
		opts.BlockFeaturing = true
	}
	if cmd.Bool("block-songwriter-only") {
		opts.BlockSongwriterOnly = true
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (r *Runner) writeBatchSummary(batch *services.EnforcementBatch) {
	if batch == nil {
		return
	}

	r.writePlain("Batch: %s\n", batch.ID)
	r.writePlain("Status: %s\n", batch.Status)
	r.writePlain("Completed: %d/%d\n", batch.Summary.CompletedItems, batch.Summary.TotalItems)
	if batch.Summary.SkippedItems > 0 {
		r.writePlain("Skipped: %d\n", batch.Summary.SkippedItems)
	}
	if batch.Summary.FailedItems > 0 {
		r.writePlain("Failed: %d\n", batch.Summary.FailedItems)
		for _, item := range batch.Items {
			if item.Status == "failed" {
				r.writePlain("  - %s %s: %s\n", item.Action, item.EntityName, item.ErrorMessage)
			}
		}
	}
	if batch.ErrorMessage != "" {
		r.writePlain("Error: %s\n", batch.ErrorMessage)
	}
}

// historyRow is the JSON shape for one archived batch.
type historyRow struct {
	BatchID     string     `json:"batch_id"`
	Status      string     `json:"status"`
	DryRun      bool       `json:"dry_run"`
	Providers   []string   `json:"providers"`
	Total       int        `json:"total_items"`
	Completed   int        `json:"completed_items"`
	Failed      int        `json:"failed_items"`
	Skipped     int        `json:"skipped_items"`
	RolledBack  bool       `json:"rolled_back"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newHistoryRow(record *models.BatchRecord) historyRow {
	return historyRow{
		BatchID:     record.BatchID(),
		Status:      record.Status(),
		DryRun:      record.DryRun(),
		Providers:   record.Providers(),
		Total:       record.TotalItems(),
		Completed:   record.CompletedItems(),
		Failed:      record.FailedItems(),
		Skipped:     record.SkippedItems(),
		RolledBack:  record.RolledBack(),
		CompletedAt: record.CompletedAt(),
		CreatedAt:   record.CreatedAt(),
	}
}
