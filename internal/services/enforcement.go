package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/shared"
)

// EnforcementService implements [EnforcementAPI]. All heavy lifting
// (library diffing, provider mutation) happens server-side; these calls
// create plans, start batches, and observe progress.
type EnforcementService struct {
	client api.Doer
}

var _ EnforcementAPI = (*EnforcementService)(nil)

// NewEnforcementService creates an enforcement service speaking through
// client.
func NewEnforcementService(client api.Doer) *EnforcementService {
	return &EnforcementService{client: client}
}

// CreatePlan asks the backend to compute an enforcement plan for the given
// providers. Planning never mutates libraries regardless of dryRun; the
// flag is echoed into the plan so execution knows the intent.
func (s *EnforcementService) CreatePlan(ctx context.Context, providers []string, dryRun bool, opts EnforcementOptions) (*EnforcementPlan, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: providers", shared.ErrMissingArgument)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"providers": providers,
		"dry_run":   dryRun,
		"options":   opts,
	}

	var plan EnforcementPlan
	if err := s.client.Post(ctx, "/api/v1/spotify/library/plan", body, &plan); err != nil {
		return nil, err
	}
	if plan.PlanID == "" {
		return nil, fmt.Errorf("%w: plan response carried no plan id", shared.ErrAPIRequest)
	}

	return &plan, nil
}

// Execute starts a real enforcement run for a previously created plan. The
// idempotency key makes retried submissions safe: the backend returns the
// existing batch instead of starting a second run.
func (s *EnforcementService) Execute(ctx context.Context, planID, idempotencyKey string) (*EnforcementBatch, error) {
	if planID == "" {
		return nil, fmt.Errorf("%w: plan id", shared.ErrMissingArgument)
	}

	body := map[string]string{"plan_id": planID}
	if idempotencyKey != "" {
		body["idempotency_key"] = idempotencyKey
	}

	var batch EnforcementBatch
	if err := s.client.Post(ctx, "/api/v1/spotify/enforcement/execute", body, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Progress fetches the current state of a batch.
func (s *EnforcementService) Progress(ctx context.Context, batchID string) (*EnforcementBatch, error) {
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id", shared.ErrMissingArgument)
	}

	var batch EnforcementBatch
	endpoint := "/api/v1/spotify/enforcement/progress/" + url.PathEscape(batchID)
	if err := s.client.Get(ctx, endpoint, &batch); err != nil {
		return nil, notFoundAsBatch(err, batchID)
	}
	return &batch, nil
}

// Rollback asks the backend to reverse a finished batch. The reversal runs
// as a batch of its own and is returned for watching.
func (s *EnforcementService) Rollback(ctx context.Context, batchID string) (*EnforcementBatch, error) {
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id", shared.ErrMissingArgument)
	}

	body := map[string]string{"batch_id": batchID}

	var batch EnforcementBatch
	if err := s.client.Post(ctx, "/api/v1/spotify/enforcement/rollback", body, &batch); err != nil {
		return nil, notFoundAsBatch(err, batchID)
	}
	return &batch, nil
}

// notFoundAsBatch converts a backend 404 into the batch sentinel so callers
// can distinguish "no such batch" from transport failures.
func notFoundAsBatch(err error, batchID string) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status == 404 {
		return fmt.Errorf("%w: %s", shared.ErrBatchNotFound, batchID)
	}
	return err
}
