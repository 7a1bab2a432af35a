package driven

import (
	"context"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// LoanStore defines the driven port for loan persistence.
type LoanStore interface {
	// ReplaceAll atomically replaces all stored loans.
	ReplaceAll(ctx context.Context, loans []model.Loan) error

	// ListAll returns all loans ordered by interest rate descending, the
	// order the repayment plan presents them in.
	ListAll(ctx context.Context) ([]model.Loan, error)
}
