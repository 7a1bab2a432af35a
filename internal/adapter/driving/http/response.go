package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/arjunmk/dhanarjan/internal/application"
	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// InvestmentResponse is the JSON representation of a single investment row.
type InvestmentResponse struct {
	RowNo              int     `json:"row_no"`
	Date               string  `json:"date"`
	Company            string  `json:"company"`
	Source             string  `json:"source"`
	Shares             int64   `json:"shares"`
	PricePaid          float64 `json:"price_paid"`
	Invested           float64 `json:"invested"`
	CurrentMarketPrice float64 `json:"current_market_price"`
	CurrentValue       float64 `json:"current_value"`
	Gain               float64 `json:"gain"`
	ReturnPct          float64 `json:"return_pct"`
}

// CompanyBreakdownResponse is one company's position within the portfolio.
type CompanyBreakdownResponse struct {
	Company      string  `json:"company"`
	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"current_value"`
	Shares       int64   `json:"shares"`
	ReturnPct    float64 `json:"return_pct"`
}

// SourceSliceResponse is one funding source's share of invested capital.
type SourceSliceResponse struct {
	Source   string  `json:"source"`
	Invested float64 `json:"invested"`
	Pct      float64 `json:"pct"`
}

// OverviewResponse is the JSON representation of the portfolio overview.
type OverviewResponse struct {
	TotalInvested   float64                    `json:"total_invested"`
	CurrentValue    float64                    `json:"current_value"`
	ChangePct       float64                    `json:"change_pct"`
	InvestedInvalid bool                       `json:"invested_invalid"`
	Companies       []CompanyBreakdownResponse `json:"companies"`
	Sources         []SourceSliceResponse      `json:"sources"`
}

// ConcentrationSliceResponse is one name's percentage of current value.
type ConcentrationSliceResponse struct {
	Name string  `json:"name"`
	Pct  float64 `json:"pct"`
}

// AnalyticsResponse is the JSON representation of the capital-structure view.
type AnalyticsResponse struct {
	WACC                 float64                      `json:"wacc"`
	CostOfEquity         float64                      `json:"cost_of_equity"`
	CostOfDebt           float64                      `json:"cost_of_debt"`
	TaxRate              float64                      `json:"tax_rate"`
	EquityWeight         float64                      `json:"equity_weight"`
	DebtWeight           float64                      `json:"debt_weight"`
	DebtEquityRatio      float64                      `json:"debt_equity_ratio"`
	CompanyConcentration []ConcentrationSliceResponse `json:"company_concentration"`
	SourceConcentration  []ConcentrationSliceResponse `json:"source_concentration"`
}

// TimelinePointResponse is one investment event with running totals.
type TimelinePointResponse struct {
	Date               string  `json:"date"`
	Company            string  `json:"company"`
	Invested           float64 `json:"invested"`
	CurrentValue       float64 `json:"current_value"`
	CumulativeInvested float64 `json:"cumulative_invested"`
	CumulativeValue    float64 `json:"cumulative_value"`
}

// AllocationFlowResponse is the invested amount from one source to one company.
type AllocationFlowResponse struct {
	Source       string  `json:"source"`
	Company      string  `json:"company"`
	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"current_value"`
}

// AllocationResponse is the JSON representation of the allocation view.
type AllocationResponse struct {
	Flows         []AllocationFlowResponse `json:"flows"`
	TotalInvested float64                  `json:"total_invested"`
	TotalValue    float64                  `json:"total_value"`
}

// PricePointResponse is one month in a company's price history.
type PricePointResponse struct {
	Month              string  `json:"month"`
	PricePaid          float64 `json:"price_paid"`
	CurrentMarketPrice float64 `json:"current_market_price"`
}

// CompanyResponse is the JSON representation of the single-company view.
type CompanyResponse struct {
	Company            string               `json:"company"`
	OrgNo              string               `json:"org_no,omitempty"`
	TotalInvested      float64              `json:"total_invested"`
	CurrentValue       float64              `json:"current_value"`
	ReturnPct          float64              `json:"return_pct"`
	Shares             int64                `json:"shares"`
	TotalShares        int64                `json:"total_shares"`
	OwnershipPct       float64              `json:"ownership_pct"`
	CurrentMarketPrice float64              `json:"current_market_price"`
	PriceHistory       []PricePointResponse `json:"price_history"`
	Investments        []InvestmentResponse `json:"investments"`
	Note               *NoteResponse        `json:"note,omitempty"`
}

// NoteResponse is the JSON representation of a company note. BodyHTML carries
// the sanitized rendering of the markdown body.
type NoteResponse struct {
	Company   string `json:"company"`
	Body      string `json:"body"`
	BodyHTML  string `json:"body_html"`
	UpdatedAt string `json:"updated_at"`
}

// PutNoteRequest is the JSON body for the note upsert endpoint.
type PutNoteRequest struct {
	Body string `json:"body"`
}

// LoanResponse is the JSON representation of a single loan.
type LoanResponse struct {
	Name                string  `json:"name"`
	InterestRate        float64 `json:"interest_rate"`
	Amount              float64 `json:"amount"`
	MonthlyInterestCost float64 `json:"monthly_interest_cost"`
}

// RepaymentStepResponse is one loan's position in the repayment order.
type RepaymentStepResponse struct {
	Priority            int     `json:"priority"`
	Name                string  `json:"name"`
	InterestRate        float64 `json:"interest_rate"`
	Amount              float64 `json:"amount"`
	MonthlyInterestCost float64 `json:"monthly_interest_cost"`
}

// LoanAnalysisResponse is the JSON representation of the liabilities view.
type LoanAnalysisResponse struct {
	TotalAmount          float64                 `json:"total_amount"`
	TotalMonthlyInterest float64                 `json:"total_monthly_interest"`
	WeightedAvgRate      float64                 `json:"weighted_avg_rate"`
	Loans                []LoanResponse          `json:"loans"`
	RepaymentPlan        []RepaymentStepResponse `json:"repayment_plan"`
}

// SyncRunResponse is the JSON representation of one sync audit record.
type SyncRunResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at,omitempty"`
	Investments   int    `json:"investments"`
	Shareholdings int    `json:"shareholdings"`
	Loans         int    `json:"loans"`
	Error         string `json:"error,omitempty"`
}

// SettingsResponse is the JSON representation of the analysis assumptions.
type SettingsResponse struct {
	CostOfEquity float64 `json:"cost_of_equity"`
	TaxRate      float64 `json:"tax_rate"`
}

// PutSettingsRequest is the JSON body for the settings update endpoint.
// Pointer fields distinguish "omitted" from zero.
type PutSettingsRequest struct {
	CostOfEquity *float64 `json:"cost_of_equity"`
	TaxRate      *float64 `json:"tax_rate"`
}

// PutCredentialsRequest is the JSON body for the Google credentials endpoint.
type PutCredentialsRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetRange    string `json:"sheet_range"`
	APIKey        string `json:"api_key"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status   string           `json:"status"`
	Time     string           `json:"time"`
	LastSync *SyncRunResponse `json:"last_sync,omitempty"`
}

// toInvestmentResponse converts a domain Investment to its JSON representation.
func toInvestmentResponse(inv model.Investment) InvestmentResponse {
	return InvestmentResponse{
		RowNo:              inv.RowNo,
		Date:               inv.Date.UTC().Format("2006-01-02"),
		Company:            inv.Company,
		Source:             inv.Source,
		Shares:             inv.Shares,
		PricePaid:          inv.PricePaid,
		Invested:           inv.Invested,
		CurrentMarketPrice: inv.CurrentMarketPrice,
		CurrentValue:       inv.CurrentValue,
		Gain:               inv.Gain(),
		ReturnPct:          inv.ReturnPct(),
	}
}

// toOverviewResponse converts a PortfolioOverview to its JSON representation.
func toOverviewResponse(o *application.PortfolioOverview) OverviewResponse {
	companies := make([]CompanyBreakdownResponse, 0, len(o.Companies))
	for _, cb := range o.Companies {
		companies = append(companies, CompanyBreakdownResponse{
			Company:      cb.Company,
			Invested:     cb.Invested,
			CurrentValue: cb.CurrentValue,
			Shares:       cb.Shares,
			ReturnPct:    cb.ReturnPct,
		})
	}

	sources := make([]SourceSliceResponse, 0, len(o.Sources))
	for _, s := range o.Sources {
		sources = append(sources, SourceSliceResponse{
			Source:   s.Source,
			Invested: s.Invested,
			Pct:      s.Pct,
		})
	}

	return OverviewResponse{
		TotalInvested:   o.TotalInvested,
		CurrentValue:    o.CurrentValue,
		ChangePct:       o.ChangePct,
		InvestedInvalid: o.InvestedInvalid,
		Companies:       companies,
		Sources:         sources,
	}
}

// toAnalyticsResponse converts a PortfolioAnalytics to its JSON representation.
func toAnalyticsResponse(a *application.PortfolioAnalytics) AnalyticsResponse {
	return AnalyticsResponse{
		WACC:                 a.WACC,
		CostOfEquity:         a.CostOfEquity,
		CostOfDebt:           a.CostOfDebt,
		TaxRate:              a.TaxRate,
		EquityWeight:         a.EquityWeight,
		DebtWeight:           a.DebtWeight,
		DebtEquityRatio:      a.DebtEquityRatio,
		CompanyConcentration: toConcentrationResponses(a.CompanyConcentration),
		SourceConcentration:  toConcentrationResponses(a.SourceConcentration),
	}
}

func toConcentrationResponses(slices []application.ConcentrationSlice) []ConcentrationSliceResponse {
	resp := make([]ConcentrationSliceResponse, 0, len(slices))
	for _, s := range slices {
		resp = append(resp, ConcentrationSliceResponse{Name: s.Name, Pct: s.Pct})
	}
	return resp
}

// toTimelineResponse converts a PortfolioTimeline to its JSON representation.
func toTimelineResponse(t *application.PortfolioTimeline) []TimelinePointResponse {
	resp := make([]TimelinePointResponse, 0, len(t.Points))
	for _, p := range t.Points {
		resp = append(resp, TimelinePointResponse{
			Date:               p.Date.UTC().Format("2006-01-02"),
			Company:            p.Company,
			Invested:           p.Invested,
			CurrentValue:       p.CurrentValue,
			CumulativeInvested: p.CumulativeInvested,
			CumulativeValue:    p.CumulativeValue,
		})
	}
	return resp
}

// toAllocationResponse converts a PortfolioAllocation to its JSON representation.
func toAllocationResponse(a *application.PortfolioAllocation) AllocationResponse {
	flows := make([]AllocationFlowResponse, 0, len(a.Flows))
	for _, f := range a.Flows {
		flows = append(flows, AllocationFlowResponse{
			Source:       f.Source,
			Company:      f.Company,
			Invested:     f.Invested,
			CurrentValue: f.CurrentValue,
		})
	}

	return AllocationResponse{
		Flows:         flows,
		TotalInvested: a.TotalInvested,
		TotalValue:    a.TotalValue,
	}
}

// toCompanyResponse converts a CompanyPerformance to its JSON representation.
// The note is attached separately by the handler.
func toCompanyResponse(p *application.CompanyPerformance) CompanyResponse {
	history := make([]PricePointResponse, 0, len(p.PriceHistory))
	for _, pp := range p.PriceHistory {
		history = append(history, PricePointResponse{
			Month:              pp.Month.UTC().Format("2006-01"),
			PricePaid:          pp.PricePaid,
			CurrentMarketPrice: pp.CurrentMarketPrice,
		})
	}

	investments := make([]InvestmentResponse, 0, len(p.Investments))
	for _, inv := range p.Investments {
		investments = append(investments, toInvestmentResponse(inv))
	}

	return CompanyResponse{
		Company:            p.Company,
		OrgNo:              p.OrgNo,
		TotalInvested:      p.TotalInvested,
		CurrentValue:       p.CurrentValue,
		ReturnPct:          p.ReturnPct,
		Shares:             p.Shares,
		TotalShares:        p.TotalShares,
		OwnershipPct:       p.OwnershipPct,
		CurrentMarketPrice: p.CurrentMarketPrice,
		PriceHistory:       history,
		Investments:        investments,
	}
}

// toNoteResponse converts a domain CompanyNote to its JSON representation,
// rendering the markdown body to sanitized HTML.
func toNoteResponse(note model.CompanyNote) NoteResponse {
	return NoteResponse{
		Company:   note.Company,
		Body:      note.Body,
		BodyHTML:  RenderMarkdown(note.Body),
		UpdatedAt: note.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toLoanAnalysisResponse converts a LoanAnalysis to its JSON representation.
func toLoanAnalysisResponse(a *application.LoanAnalysis) LoanAnalysisResponse {
	loans := make([]LoanResponse, 0, len(a.Loans))
	for _, l := range a.Loans {
		loans = append(loans, LoanResponse{
			Name:                l.Name,
			InterestRate:        l.InterestRate,
			Amount:              l.Amount,
			MonthlyInterestCost: l.MonthlyInterestCost(),
		})
	}

	plan := make([]RepaymentStepResponse, 0, len(a.RepaymentPlan))
	for _, step := range a.RepaymentPlan {
		plan = append(plan, RepaymentStepResponse{
			Priority:            step.Priority,
			Name:                step.Name,
			InterestRate:        step.InterestRate,
			Amount:              step.Amount,
			MonthlyInterestCost: step.MonthlyInterestCost,
		})
	}

	return LoanAnalysisResponse{
		TotalAmount:          a.TotalAmount,
		TotalMonthlyInterest: a.TotalMonthlyInterest,
		WeightedAvgRate:      a.WeightedAvgRate,
		Loans:                loans,
		RepaymentPlan:        plan,
	}
}

// toSyncRunResponse converts a domain SyncRun to its JSON representation.
func toSyncRunResponse(run model.SyncRun) SyncRunResponse {
	resp := SyncRunResponse{
		ID:            run.ID,
		Status:        string(run.Status),
		StartedAt:     run.StartedAt.UTC().Format(time.RFC3339),
		Investments:   run.Investments,
		Shareholdings: run.Shareholdings,
		Loans:         run.Loans,
		Error:         run.Error,
	}
	if !run.FinishedAt.IsZero() {
		resp.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
