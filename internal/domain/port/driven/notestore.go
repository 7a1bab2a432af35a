package driven

import (
	"context"
	"errors"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// ErrNoteNotFound is returned when deleting a note that does not exist.
var ErrNoteNotFound = errors.New("note not found")

// NoteStore defines the driven port for company note persistence.
// Notes are service-owned and are never touched by sheet syncs.
type NoteStore interface {
	// Upsert stores or replaces the note for a company.
	Upsert(ctx context.Context, note model.CompanyNote) error

	// GetByCompany returns the note for a company, or nil, nil if none exists.
	GetByCompany(ctx context.Context, company string) (*model.CompanyNote, error)

	// ListAll returns all notes ordered by company.
	ListAll(ctx context.Context) ([]model.CompanyNote, error)

	// Delete removes the note for a company. Deleting a missing note is an error.
	Delete(ctx context.Context, company string) error
}
