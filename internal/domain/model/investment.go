package model

import "time"

// Investment represents a single purchase of shares in a portfolio company,
// as recorded in one row of the investment sheet.
type Investment struct {
	ID                 int64
	RowNo              int // "No." column; preserves the sheet's own ordering.
	Date               time.Time
	Company            string
	Source             string // Where the money came from (savings, loan, ...).
	Shares             int64  // "My Shares" bought in this round.
	PricePaid          float64
	Invested           float64
	CurrentMarketPrice float64
	CurrentValue       float64
	SyncedAt           time.Time
}

// Gain returns the absolute value change of this investment.
func (inv Investment) Gain() float64 {
	return inv.CurrentValue - inv.Invested
}

// ReturnPct returns the percentage return on this investment.
// Returns 0 when nothing was invested to avoid division by zero.
func (inv Investment) ReturnPct() float64 {
	if inv.Invested <= 0 {
		return 0
	}
	return inv.Gain() / inv.Invested * 100
}
