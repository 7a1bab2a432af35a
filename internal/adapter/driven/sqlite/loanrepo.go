package sqlite

import (
	"context"
	"fmt"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LoanStore = (*LoanRepo)(nil)

// LoanRepo is the SQLite implementation of the LoanStore port interface.
type LoanRepo struct {
	db *DB
}

// NewLoanRepo creates a new LoanRepo backed by the given DB.
func NewLoanRepo(db *DB) *LoanRepo {
	return &LoanRepo{db: db}
}

// ReplaceAll replaces the entire loans table in one transaction.
func (r *LoanRepo) ReplaceAll(ctx context.Context, loans []model.Loan) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace loans: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM loans`); err != nil {
		return fmt.Errorf("clear loans: %w", err)
	}

	const query = `INSERT INTO loans (name, interest_rate, amount) VALUES (?, ?, ?)`

	for _, loan := range loans {
		if _, err := tx.ExecContext(ctx, query, loan.Name, loan.InterestRate, loan.Amount); err != nil {
			return fmt.Errorf("insert loan %s: %w", loan.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace loans: %w", err)
	}

	return nil
}

// ListAll returns all loans ordered by interest rate descending, the order
// the avalanche repayment plan presents them in.
func (r *LoanRepo) ListAll(ctx context.Context) ([]model.Loan, error) {
	const query = `SELECT id, name, interest_rate, amount FROM loans ORDER BY interest_rate DESC, name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		var loan model.Loan
		if err := rows.Scan(&loan.ID, &loan.Name, &loan.InterestRate, &loan.Amount); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}

	return loans, nil
}
