package model

import "time"

// SyncStatus represents the outcome of a sheet sync cycle.
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusSucceeded SyncStatus = "succeeded"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncRun is the audit record of a single sheet sync cycle.
type SyncRun struct {
	ID            string // UUID assigned by the sync service.
	Status        SyncStatus
	StartedAt     time.Time
	FinishedAt    time.Time
	Investments   int
	Shareholdings int
	Loans         int
	Error         string // Empty unless Status is failed.
}

// Duration returns how long the sync cycle took. Zero for runs still in progress.
func (r SyncRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
