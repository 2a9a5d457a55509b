package ports

import (
	"context"
	"errors"

	"github.com/aretw0/xstack/pkg/domain"
)

// ErrRunNotFound is returned when a run ID is not present in the history.
var ErrRunNotFound = errors.New("run not found")

// RunHistory keeps the results of recent runs for introspection.
// It lives as long as the host process; nothing is resumed from it.
type RunHistory interface {
	// Save records a finished run under its RunID.
	Save(ctx context.Context, result *domain.RunResult) error

	// Get retrieves a run by ID.
	// Returns ErrRunNotFound if the run is unknown or was evicted.
	Get(ctx context.Context, runID string) (*domain.RunResult, error)

	// List returns the IDs of the retained runs, most recent first.
	List(ctx context.Context) ([]string, error)
}
