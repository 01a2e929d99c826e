package tasks

import (
	"errors"
	"testing"

	"github.com/nodrake/ndh/internal/models"
	"github.com/nodrake/ndh/internal/shared"
)

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{models.BatchPending, false},
		{models.BatchRunning, false},
		{models.BatchCompleted, true},
		{models.BatchFailed, true},
		{models.BatchCancelled, true},
		{"exploded", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := IsTerminal(tt.status); got != tt.want {
				t.Errorf("IsTerminal(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{
		models.BatchPending,
		models.BatchRunning,
		models.BatchCompleted,
		models.BatchFailed,
		models.BatchCancelled,
	} {
		if !ValidStatus(status) {
			t.Errorf("ValidStatus(%q) = false, want true", status)
		}
	}

	if ValidStatus("exploded") {
		t.Error(`ValidStatus("exploded") = true, want false`)
	}
	if ValidStatus("") {
		t.Error(`ValidStatus("") = true, want false`)
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{"first observation", "", models.BatchPending, false},
		{"first observation of settled batch", "", models.BatchCompleted, false},
		{"pending starts running", models.BatchPending, models.BatchRunning, false},
		{"pending settles without an observed running state", models.BatchPending, models.BatchCompleted, false},
		{"pending cancelled", models.BatchPending, models.BatchCancelled, false},
		{"running completes", models.BatchRunning, models.BatchCompleted, false},
		{"running fails", models.BatchRunning, models.BatchFailed, false},
		{"repeat observation", models.BatchRunning, models.BatchRunning, false},
		{"regression to pending", models.BatchRunning, models.BatchPending, true},
		{"completed cannot restart", models.BatchCompleted, models.BatchRunning, true},
		{"failed cannot complete", models.BatchFailed, models.BatchCompleted, true},
		{"cancelled cannot run", models.BatchCancelled, models.BatchRunning, true},
		{"unknown destination", models.BatchRunning, "exploded", true},
		{"unknown origin", "exploded", models.BatchRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTransition(%q, %q) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, shared.ErrBatchState) {
				t.Errorf("ValidateTransition(%q, %q) should wrap ErrBatchState, got %v", tt.from, tt.to, err)
			}
		})
	}
}
