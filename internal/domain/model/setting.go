package model

import "time"

// Setting is a persisted analysis assumption, keyed by name.
type Setting struct {
	ID        int64
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Setting keys understood by the analytics services.
const (
	SettingCostOfEquity = "cost_of_equity" // Fraction, e.g. "0.10".
	SettingTaxRate      = "tax_rate"       // Fraction, e.g. "0.22".
)
