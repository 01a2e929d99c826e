package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/nodrake/ndh/internal/shared"
)

func moderateOptions() EnforcementOptions {
	return EnforcementOptions{
		Aggressiveness: AggressivenessModerate,
		BlockCollabs:   true,
		BlockFeaturing: true,
	}
}

func TestEnforcementServiceCreatePlan(t *testing.T) {
	t.Run("posts providers and options", func(t *testing.T) {
		svc := NewEnforcementService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/v1/spotify/library/plan" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			body := decodeBody(t, r)
			if body["dry_run"] != true {
				t.Errorf("expected dry_run true, got %+v", body)
			}
			opts, ok := body["options"].(map[string]any)
			if !ok || opts["aggressiveness"] != "moderate" {
				t.Errorf("unexpected options %+v", body["options"])
			}
			w.Write([]byte(`{"success":true,"data":{
				"plan_id":"plan_1","providers":["spotify"],"dry_run":true,"resumable":true,
				"estimated_duration_seconds":42,
				"impact":{"spotify":{"liked_songs":12,"playlists":3,"following":1,"radio_seeds":0}},
				"capabilities":{"spotify":{"liked_songs":"full","radio_seeds":"unsupported"}}}}`))
		})))

		plan, err := svc.CreatePlan(context.Background(), []string{"spotify"}, true, moderateOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if plan.PlanID != "plan_1" || !plan.DryRun {
			t.Errorf("unexpected plan %+v", plan)
		}
		if plan.Impact["spotify"].LikedSongs != 12 {
			t.Errorf("unexpected impact %+v", plan.Impact)
		}
		if plan.Capabilities["spotify"]["radio_seeds"] != "unsupported" {
			t.Errorf("unexpected capabilities %+v", plan.Capabilities)
		}
	})

	t.Run("validates input before the wire", func(t *testing.T) {
		svc := NewEnforcementService(refuseDoer(t))

		if _, err := svc.CreatePlan(context.Background(), nil, true, moderateOptions()); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument for empty providers, got %v", err)
		}

		bad := moderateOptions()
		bad.Aggressiveness = "nuclear"
		if _, err := svc.CreatePlan(context.Background(), []string{"spotify"}, true, bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for bad aggressiveness, got %v", err)
		}
	})

	t.Run("rejects a plan without an id", func(t *testing.T) {
		svc := NewEnforcementService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":{"providers":["spotify"]}}`))
		})))

		if _, err := svc.CreatePlan(context.Background(), []string{"spotify"}, true, moderateOptions()); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestEnforcementServiceExecute(t *testing.T) {
	t.Run("submits the plan with an idempotency key", func(t *testing.T) {
		svc := NewEnforcementService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/spotify/enforcement/execute" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			body := decodeBody(t, r)
			if body["plan_id"] != "plan_1" || body["idempotency_key"] != "key_1" {
				t.Errorf("unexpected body %+v", body)
			}
			w.Write([]byte(`{"success":true,"data":{"id":"batch_1","status":"pending","summary":{"total_items":16}}}`))
		})))

		batch, err := svc.Execute(context.Background(), "plan_1", "key_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if batch.ID != "batch_1" || batch.Status != "pending" {
			t.Errorf("unexpected batch %+v", batch)
		}
		if batch.Summary.TotalItems != 16 {
			t.Errorf("unexpected summary %+v", batch.Summary)
		}
	})

	t.Run("requires a plan id", func(t *testing.T) {
		svc := NewEnforcementService(refuseDoer(t))
		if _, err := svc.Execute(context.Background(), "", "key"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestEnforcementServiceProgress(t *testing.T) {
	t.Run("fetches batch state", func(t *testing.T) {
		svc := NewEnforcementService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/api/v1/spotify/enforcement/progress/batch_1" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.Write([]byte(`{"success":true,"data":{"id":"batch_1","status":"running",
				"summary":{"total_items":16,"completed_items":7,"failed_items":1},
				"items":[{"action":"remove","entity_type":"liked_song","entity_id":"t_1","status":"completed"}]}}`))
		})))

		batch, err := svc.Progress(context.Background(), "batch_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if batch.Status != "running" || batch.Summary.CompletedItems != 7 {
			t.Errorf("unexpected batch %+v", batch)
		}
		if len(batch.Items) != 1 || batch.Items[0].EntityType != "liked_song" {
			t.Errorf("unexpected items %+v", batch.Items)
		}
	})

	t.Run("maps 404 onto the batch sentinel", func(t *testing.T) {
		svc := NewEnforcementService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"unknown batch"}`))
		})))

		if _, err := svc.Progress(context.Background(), "batch_9"); !errors.Is(err, shared.ErrBatchNotFound) {
			t.Errorf("expected ErrBatchNotFound, got %v", err)
		}
	})
}

func TestEnforcementServiceRollback(t *testing.T) {
	t.Run("starts a reversal batch", func(t *testing.T) {
		svc := NewEnforcementService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/spotify/enforcement/rollback" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			body := decodeBody(t, r)
			if body["batch_id"] != "batch_1" {
				t.Errorf("unexpected body %+v", body)
			}
			w.Write([]byte(`{"success":true,"data":{"id":"batch_2","status":"pending"}}`))
		})))

		reversal, err := svc.Rollback(context.Background(), "batch_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reversal.ID != "batch_2" {
			t.Errorf("unexpected reversal %+v", reversal)
		}
	})

	t.Run("maps 404 onto the batch sentinel", func(t *testing.T) {
		svc := NewEnforcementService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"unknown batch"}`))
		})))

		if _, err := svc.Rollback(context.Background(), "batch_9"); !errors.Is(err, shared.ErrBatchNotFound) {
			t.Errorf("expected ErrBatchNotFound, got %v", err)
		}
	})
}
