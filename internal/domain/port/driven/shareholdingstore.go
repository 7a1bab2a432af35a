package driven

import (
	"context"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// ShareholdingStore defines the driven port for total-shares persistence.
type ShareholdingStore interface {
	// ReplaceAll atomically replaces all stored shareholdings.
	ReplaceAll(ctx context.Context, shareholdings []model.Shareholding) error

	// ListAll returns all shareholdings ordered by company.
	ListAll(ctx context.Context) ([]model.Shareholding, error)

	// GetByCompany returns the shareholding for a company.
	// Returns nil, nil if the company is not in the total-shares block.
	GetByCompany(ctx context.Context, company string) (*model.Shareholding, error)
}
