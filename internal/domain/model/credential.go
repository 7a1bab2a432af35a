package model

import "time"

// Credential is a stored secret for an external service (e.g. the Google
// Sheets API key). Values are encrypted at rest by the storage adapter.
type Credential struct {
	ID        int64
	Service   string
	Value     string // Plaintext in memory; encrypted in storage.
	UpdatedAt time.Time
}
