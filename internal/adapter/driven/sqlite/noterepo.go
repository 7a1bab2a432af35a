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
var _ driven.NoteStore = (*NoteRepo)(nil)

// NoteRepo is the SQLite implementation of the NoteStore port interface.
type NoteRepo struct {
	db *DB
}

// NewNoteRepo creates a new NoteRepo backed by the given DB.
func NewNoteRepo(db *DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// Upsert stores or replaces the note for a company.
func (r *NoteRepo) Upsert(ctx context.Context, note model.CompanyNote) error {
	const query = `
		INSERT INTO company_notes (company, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(company) DO UPDATE SET
			body = excluded.body,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, note.Company, note.Body); err != nil {
		return fmt.Errorf("upsert note for %q: %w", note.Company, err)
	}

	return nil
}

// GetByCompany returns the note for a company, or nil, nil if none exists.
func (r *NoteRepo) GetByCompany(ctx context.Context, company string) (*model.CompanyNote, error) {
	const query = `SELECT id, company, body, updated_at FROM company_notes WHERE company = ?`

	note, err := scanNote(r.db.Reader.QueryRowContext(ctx, query, company))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note for %q: %w", company, err)
	}

	return note, nil
}

// ListAll returns all notes ordered by company.
func (r *NoteRepo) ListAll(ctx context.Context) ([]model.CompanyNote, error) {
	const query = `SELECT id, company, body, updated_at FROM company_notes ORDER BY company`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []model.CompanyNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

// Delete removes the note for a company. Returns an error if no note exists.
func (r *NoteRepo) Delete(ctx context.Context, company string) error {
	const query = `DELETE FROM company_notes WHERE company = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, company)
	if err != nil {
		return fmt.Errorf("delete note for %q: %w", company, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("note for %q: %w", company, driven.ErrNoteNotFound)
	}

	return nil
}

func scanNote(s scanner) (*model.CompanyNote, error) {
	var note model.CompanyNote
	var updatedAt string

	if err := s.Scan(&note.ID, &note.Company, &note.Body, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	note.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &note, nil
}
