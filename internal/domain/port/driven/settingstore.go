package driven

import (
	"context"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// SettingStore defines the driven port for persisted analysis assumptions.
type SettingStore interface {
	// Set stores or replaces the setting for the given key.
	Set(ctx context.Context, key, value string) error

	// Get retrieves the value for a key. Returns ("", nil) if unset.
	Get(ctx context.Context, key string) (string, error)

	// List returns all settings ordered by key.
	List(ctx context.Context) ([]model.Setting, error)
}
