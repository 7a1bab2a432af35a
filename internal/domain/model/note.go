package model

import "time"

// CompanyNote is a freeform markdown note attached to a portfolio company.
// Notes are owned by this service and survive sheet syncs.
type CompanyNote struct {
	ID        int64
	Company   string
	Body      string // Raw markdown; rendering happens in the driving adapter.
	UpdatedAt time.Time
}
