package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ShareholdingStore = (*ShareholdingRepo)(nil)

// ShareholdingRepo is the SQLite implementation of the ShareholdingStore port interface.
type ShareholdingRepo struct {
	db *DB
}

// NewShareholdingRepo creates a new ShareholdingRepo backed by the given DB.
func NewShareholdingRepo(db *DB) *ShareholdingRepo {
	return &ShareholdingRepo{db: db}
}

// ReplaceAll replaces the entire shareholdings table in one transaction.
func (r *ShareholdingRepo) ReplaceAll(ctx context.Context, shareholdings []model.Shareholding) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace shareholdings: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM shareholdings`); err != nil {
		return fmt.Errorf("clear shareholdings: %w", err)
	}

	const query = `INSERT INTO shareholdings (company, org_no, total_shares) VALUES (?, ?, ?)`

	for _, sh := range shareholdings {
		if _, err := tx.ExecContext(ctx, query, sh.Company, sh.OrgNo, sh.TotalShares); err != nil {
			return fmt.Errorf("insert shareholding %s: %w", sh.Company, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace shareholdings: %w", err)
	}

	return nil
}

// ListAll returns all shareholdings ordered by company.
func (r *ShareholdingRepo) ListAll(ctx context.Context) ([]model.Shareholding, error) {
	const query = `SELECT id, company, org_no, total_shares FROM shareholdings ORDER BY company`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query shareholdings: %w", err)
	}
	defer rows.Close()

	var shareholdings []model.Shareholding
	for rows.Next() {
		var sh model.Shareholding
		if err := rows.Scan(&sh.ID, &sh.Company, &sh.OrgNo, &sh.TotalShares); err != nil {
			return nil, fmt.Errorf("scan shareholding: %w", err)
		}
		shareholdings = append(shareholdings, sh)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shareholdings: %w", err)
	}

	return shareholdings, nil
}

// GetByCompany returns the shareholding for a company, or nil, nil if the
// company is not in the total-shares block.
func (r *ShareholdingRepo) GetByCompany(ctx context.Context, company string) (*model.Shareholding, error) {
	const query = `SELECT id, company, org_no, total_shares FROM shareholdings WHERE company = ?`

	var sh model.Shareholding
	err := r.db.Reader.QueryRowContext(ctx, query, company).Scan(&sh.ID, &sh.Company, &sh.OrgNo, &sh.TotalShares)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shareholding %q: %w", company, err)
	}

	return &sh, nil
}
