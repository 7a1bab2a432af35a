package model

// SheetSnapshot is one complete read of the portfolio spreadsheet, split into
// its three column blocks. The sheet is the source of truth for all three
// slices; a sync replaces the stored rows wholesale.
type SheetSnapshot struct {
	Investments   []Investment
	Shareholdings []Shareholding
	Loans         []Loan
}
