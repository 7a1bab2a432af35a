package application

import (
	"context"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// RepaymentStep is one loan's position in the avalanche repayment order.
type RepaymentStep struct {
	Priority            int
	Name                string
	InterestRate        float64
	Amount              float64
	MonthlyInterestCost float64
}

// LoanAnalysis is the liabilities view: totals, the blended rate, and the
// highest-rate-first repayment plan.
type LoanAnalysis struct {
	TotalAmount          float64
	TotalMonthlyInterest float64
	WeightedAvgRate      float64
	Loans                []model.Loan
	RepaymentPlan        []RepaymentStep
}

// LoanService computes the liabilities view from stored loan rows.
type LoanService struct {
	loans driven.LoanStore
}

// NewLoanService creates a new LoanService.
func NewLoanService(loans driven.LoanStore) *LoanService {
	return &LoanService{loans: loans}
}

// Analysis computes loan totals and the repayment plan. Loans arrive from the
// store ordered by interest rate descending, which is the avalanche order:
// pay down the most expensive debt first. An empty loan table yields an
// analysis with empty slices and zero totals.
func (s *LoanService) Analysis(ctx context.Context) (*LoanAnalysis, error) {
	loans, err := s.loans.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	analysis := &LoanAnalysis{
		Loans:         loans,
		RepaymentPlan: make([]RepaymentStep, 0, len(loans)),
	}

	var weightedRate float64
	for i, loan := range loans {
		analysis.TotalAmount += loan.Amount
		analysis.TotalMonthlyInterest += loan.MonthlyInterestCost()
		weightedRate += loan.Amount * loan.InterestRate

		analysis.RepaymentPlan = append(analysis.RepaymentPlan, RepaymentStep{
			Priority:            i + 1,
			Name:                loan.Name,
			InterestRate:        loan.InterestRate,
			Amount:              loan.Amount,
			MonthlyInterestCost: loan.MonthlyInterestCost(),
		})
	}

	if analysis.TotalAmount > 0 {
		analysis.WeightedAvgRate = weightedRate / analysis.TotalAmount
	}

	return analysis, nil
}
