// Package driven defines the driven (outbound) port interfaces of the
// application core. Adapters implement these; services depend only on them.
package driven

import (
	"context"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// SheetClient defines the driven port for reading the portfolio spreadsheet.
type SheetClient interface {
	// FetchSnapshot reads the configured sheet range and returns the parsed
	// investment, total-shares, and loan blocks.
	FetchSnapshot(ctx context.Context) (*model.SheetSnapshot, error)
}
