package driven

import (
	"context"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// SyncRunStore defines the driven port for the sync audit log.
type SyncRunStore interface {
	// Insert records a new sync run, typically with status running.
	Insert(ctx context.Context, run model.SyncRun) error

	// Update replaces the stored run with the same ID. Used to mark a run
	// finished with its final status, counts, and error.
	Update(ctx context.Context, run model.SyncRun) error

	// Latest returns the most recently started run, or nil, nil when no sync
	// has ever run.
	Latest(ctx context.Context) (*model.SyncRun, error)

	// List returns up to limit runs ordered by start time descending.
	List(ctx context.Context, limit int) ([]model.SyncRun, error)
}
