package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SyncRunStore = (*SyncRunRepo)(nil)

// SyncRunRepo is the SQLite implementation of the SyncRunStore port interface.
type SyncRunRepo struct {
	db *DB
}

// NewSyncRunRepo creates a new SyncRunRepo backed by the given DB.
func NewSyncRunRepo(db *DB) *SyncRunRepo {
	return &SyncRunRepo{db: db}
}

// Insert records a new sync run.
func (r *SyncRunRepo) Insert(ctx context.Context, run model.SyncRun) error {
	const query = `
		INSERT INTO sync_runs (id, status, started_at, finished_at, investments, shareholdings, loans, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID, string(run.Status), run.StartedAt.UTC().Format(timeFormat),
		formatNullableTime(run.FinishedAt), run.Investments, run.Shareholdings, run.Loans, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert sync run %s: %w", run.ID, err)
	}

	return nil
}

// Update replaces the stored run with the same ID.
func (r *SyncRunRepo) Update(ctx context.Context, run model.SyncRun) error {
	const query = `
		UPDATE sync_runs
		SET status = ?, finished_at = ?, investments = ?, shareholdings = ?, loans = ?, error = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		string(run.Status), formatNullableTime(run.FinishedAt),
		run.Investments, run.Shareholdings, run.Loans, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update sync run %s: %w", run.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run %s not found", run.ID)
	}

	return nil
}

// Latest returns the most recently started run, or nil, nil when no sync has ever run.
func (r *SyncRunRepo) Latest(ctx context.Context) (*model.SyncRun, error) {
	const query = `
		SELECT id, status, started_at, finished_at, investments, shareholdings, loans, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	run, err := scanSyncRun(r.db.Reader.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest sync run: %w", err)
	}

	return run, nil
}

// List returns up to limit runs ordered by start time descending.
func (r *SyncRunRepo) List(ctx context.Context, limit int) ([]model.SyncRun, error) {
	const query = `
		SELECT id, status, started_at, finished_at, investments, shareholdings, loans, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}

	return runs, nil
}

func scanSyncRun(s scanner) (*model.SyncRun, error) {
	var run model.SyncRun
	var status, startedAt string
	var finishedAt sql.NullString

	err := s.Scan(&run.ID, &status, &startedAt, &finishedAt,
		&run.Investments, &run.Shareholdings, &run.Loans, &run.Error)
	if err != nil {
		return nil, err
	}

	run.Status = model.SyncStatus(status)

	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}

	if finishedAt.Valid && finishedAt.String != "" {
		run.FinishedAt, err = parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
	}

	return &run, nil
}

// formatNullableTime stores zero times as NULL so running syncs have no finished_at.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}
