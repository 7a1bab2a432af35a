package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.InvestmentStore = (*InvestmentRepo)(nil)

// InvestmentRepo is the SQLite implementation of the InvestmentStore port interface.
type InvestmentRepo struct {
	db *DB
}

// NewInvestmentRepo creates a new InvestmentRepo backed by the given DB.
func NewInvestmentRepo(db *DB) *InvestmentRepo {
	return &InvestmentRepo{db: db}
}

// ReplaceAll replaces the entire investments table with the given rows in one
// transaction. The sheet is the source of truth, so a partial merge would only
// let deleted rows linger.
func (r *InvestmentRepo) ReplaceAll(ctx context.Context, investments []model.Investment) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace investments: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM investments`); err != nil {
		return fmt.Errorf("clear investments: %w", err)
	}

	const query = `
		INSERT INTO investments (
			row_no, date, company, source, shares, price_paid, invested,
			current_market_price, current_value, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, inv := range investments {
		_, err := tx.ExecContext(ctx, query,
			inv.RowNo, inv.Date.UTC().Format(timeFormat), inv.Company, inv.Source,
			inv.Shares, inv.PricePaid, inv.Invested,
			inv.CurrentMarketPrice, inv.CurrentValue, inv.SyncedAt.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("insert investment %s row %d: %w", inv.Company, inv.RowNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace investments: %w", err)
	}

	return nil
}

// ListAll returns all investments ordered by date, then row number.
func (r *InvestmentRepo) ListAll(ctx context.Context) ([]model.Investment, error) {
	const query = `
		SELECT id, row_no, date, company, source, shares, price_paid, invested,
		       current_market_price, current_value, synced_at
		FROM investments
		ORDER BY date, row_no
	`

	return r.queryInvestments(ctx, query)
}

// ListByCompany returns the investments in the given company ordered by date.
func (r *InvestmentRepo) ListByCompany(ctx context.Context, company string) ([]model.Investment, error) {
	const query = `
		SELECT id, row_no, date, company, source, shares, price_paid, invested,
		       current_market_price, current_value, synced_at
		FROM investments
		WHERE company = ?
		ORDER BY date, row_no
	`

	return r.queryInvestments(ctx, query, company)
}

// Companies returns the distinct company names, ordered alphabetically.
func (r *InvestmentRepo) Companies(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT company FROM investments ORDER BY company`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	companies := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}

	return companies, nil
}

func (r *InvestmentRepo) queryInvestments(ctx context.Context, query string, args ...any) ([]model.Investment, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query investments: %w", err)
	}
	defer rows.Close()

	var investments []model.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		investments = append(investments, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investments: %w", err)
	}

	return investments, nil
}

func scanInvestment(s scanner) (*model.Investment, error) {
	var inv model.Investment
	var date, syncedAt string

	err := s.Scan(
		&inv.ID, &inv.RowNo, &date, &inv.Company, &inv.Source, &inv.Shares,
		&inv.PricePaid, &inv.Invested, &inv.CurrentMarketPrice, &inv.CurrentValue, &syncedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Date, err = parseTime(date)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}

	inv.SyncedAt, err = parseTime(syncedAt)
	if err != nil {
		return nil, fmt.Errorf("parse synced_at: %w", err)
	}

	return &inv, nil
}

// timeFormat is the canonical storage format for timestamps.
const timeFormat = "2006-01-02T15:04:05Z"

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// parseTime parses timestamps in the formats SQLite hands back, depending on
// whether the value was written by Go or by CURRENT_TIMESTAMP.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
