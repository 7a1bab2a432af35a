package model

// Loan is an outstanding loan that financed part of the portfolio.
type Loan struct {
	ID           int64
	Name         string
	InterestRate float64 // Annual rate in percent, e.g. 5.5 for 5.5%.
	Amount       float64
}

// MonthlyInterestCost returns the interest accrued per month at the loan's
// current rate and principal.
func (l Loan) MonthlyInterestCost() float64 {
	return l.Amount * (l.InterestRate / 100) / 12
}
