package driven

import (
	"context"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// InvestmentStore defines the driven port for investment persistence.
// The spreadsheet is the source of truth, so writes happen only through
// ReplaceAll during a sync cycle.
type InvestmentStore interface {
	// ReplaceAll atomically replaces all stored investments with the given
	// slice, in one transaction.
	ReplaceAll(ctx context.Context, investments []model.Investment) error

	// ListAll returns all investments ordered by date, then row number.
	ListAll(ctx context.Context) ([]model.Investment, error)

	// ListByCompany returns the investments in the given company ordered by
	// date. Returns an empty slice for unknown companies.
	ListByCompany(ctx context.Context, company string) ([]model.Investment, error)

	// Companies returns the distinct company names, ordered alphabetically.
	Companies(ctx context.Context) ([]string, error)
}
