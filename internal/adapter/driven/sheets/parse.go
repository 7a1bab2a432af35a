package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// The spreadsheet is one wide sheet holding three column blocks side by side:
// investments in columns 0-9 (named by the header row), total shares in
// columns 11-13, and loans in columns 15-17. Columns 10 and 14 are spacers.
const (
	investmentBlockWidth = 10

	sharesCompanyCol = 11
	sharesOrgNoCol   = 12
	sharesTotalCol   = 13

	loansNameCol   = 15
	loansRateCol   = 16
	loansAmountCol = 17
)

// Investment block header names as they appear in the sheet.
const (
	headerNo                 = "No."
	headerDate               = "Date"
	headerCompany            = "Company"
	headerSource             = "Source"
	headerMyShares           = "My Shares"
	headerPricePaid          = "Price Paid"
	headerInvested           = "Invested"
	headerCurrentMarketPrice = "Current Market Price"
	headerCurrentValue       = "Current Value"
)

// sheetDateLayout matches dates like "15-Mar-2023".
const sheetDateLayout = "02-Jan-2006"

// parseSnapshot splits raw sheet values into the three column blocks and
// coerces cell values into domain types. The first row must be the header row.
func parseSnapshot(values [][]any, syncedAt time.Time) (*model.SheetSnapshot, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("sheet has no data rows (%d rows total)", len(values))
	}

	cols, err := mapInvestmentColumns(values[0])
	if err != nil {
		return nil, err
	}

	snapshot := &model.SheetSnapshot{
		Investments:   []model.Investment{},
		Shareholdings: []model.Shareholding{},
		Loans:         []model.Loan{},
	}

	for i, row := range values[1:] {
		// Rows missing investment columns are spacer/summary rows, not data.
		if len(row) >= investmentBlockWidth {
			inv, err := parseInvestmentRow(row, cols, syncedAt)
			if err != nil {
				return nil, fmt.Errorf("investment row %d: %w", i+2, err)
			}
			snapshot.Investments = append(snapshot.Investments, *inv)
		}

		if len(row) > sharesTotalCol && cellString(row[sharesCompanyCol]) != "" {
			snapshot.Shareholdings = append(snapshot.Shareholdings, model.Shareholding{
				Company:     cellString(row[sharesCompanyCol]),
				OrgNo:       cellString(row[sharesOrgNoCol]),
				TotalShares: parseShareCount(row[sharesTotalCol]),
			})
		}

		if len(row) > loansAmountCol && cellString(row[loansNameCol]) != "" {
			snapshot.Loans = append(snapshot.Loans, model.Loan{
				Name:         cellString(row[loansNameCol]),
				InterestRate: parseRate(row[loansRateCol]),
				Amount:       parseCurrency(row[loansAmountCol]),
			})
		}
	}

	return snapshot, nil
}

// investmentColumns maps investment block fields to their column index.
// An index of -1 means the sheet does not carry that column.
type investmentColumns struct {
	no, date, company, source, myShares            int
	pricePaid, invested, marketPrice, currentValue int
}

// mapInvestmentColumns resolves the investment block's column positions from
// the header row. Company and Date are required; the rest default to zero
// values when absent, matching how the dashboard tolerates partial sheets.
func mapInvestmentColumns(header []any) (*investmentColumns, error) {
	cols := &investmentColumns{
		no: -1, date: -1, company: -1, source: -1, myShares: -1,
		pricePaid: -1, invested: -1, marketPrice: -1, currentValue: -1,
	}

	width := len(header)
	if width > investmentBlockWidth {
		width = investmentBlockWidth
	}

	for i := 0; i < width; i++ {
		switch cellString(header[i]) {
		case headerNo:
			cols.no = i
		case headerDate:
			cols.date = i
		case headerCompany:
			cols.company = i
		case headerSource:
			cols.source = i
		case headerMyShares:
			cols.myShares = i
		case headerPricePaid:
			cols.pricePaid = i
		case headerInvested:
			cols.invested = i
		case headerCurrentMarketPrice:
			cols.marketPrice = i
		case headerCurrentValue:
			cols.currentValue = i
		}
	}

	if cols.company == -1 || cols.date == -1 {
		return nil, fmt.Errorf("header row missing %q or %q column", headerCompany, headerDate)
	}

	return cols, nil
}

func parseInvestmentRow(row []any, cols *investmentColumns, syncedAt time.Time) (*model.Investment, error) {
	date, err := parseDate(cell(row, cols.date))
	if err != nil {
		return nil, err
	}

	return &model.Investment{
		RowNo:              int(parseShareCount(cell(row, cols.no))),
		Date:               date,
		Company:            cellString(cell(row, cols.company)),
		Source:             cellString(cell(row, cols.source)),
		Shares:             parseShareCount(cell(row, cols.myShares)),
		PricePaid:          parseCurrency(cell(row, cols.pricePaid)),
		Invested:           parseCurrency(cell(row, cols.invested)),
		CurrentMarketPrice: parseCurrency(cell(row, cols.marketPrice)),
		CurrentValue:       parseCurrency(cell(row, cols.currentValue)),
		SyncedAt:           syncedAt,
	}, nil
}

// cell returns row[idx], or nil for absent columns.
func cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// cellString returns the trimmed string form of a sheet cell.
func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// parseCurrency coerces Swedish-formatted currency cells ("12 500 kr",
// "1,250.50") to a float. Unparseable values become 0, as in the source sheet
// rows that hold dashes or notes.
func parseCurrency(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}

	s := cellString(v)
	if s == "" {
		return 0
	}

	s = strings.TrimSuffix(s, " kr")
	s = strings.TrimSuffix(s, "kr")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "") // Non-breaking space from Sheets number formatting.

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseRate coerces percentage cells ("5.5%", "5.5") to a float in percent.
func parseRate(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}

	s := strings.TrimSuffix(cellString(v), "%")
	if s == "" {
		return 0
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseShareCount coerces integer count cells, tolerating the same grouping
// separators as currency cells.
func parseShareCount(v any) int64 {
	return int64(parseCurrency(v))
}

// parseDate parses the sheet's DD-Mon-YYYY date format.
func parseDate(v any) (time.Time, error) {
	s := cellString(v)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}

	t, err := time.Parse(sheetDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
