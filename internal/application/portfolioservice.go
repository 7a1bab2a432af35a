package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// ErrCompanyNotFound is returned when analytics are requested for a company
// with no recorded investments.
var ErrCompanyNotFound = errors.New("company not found")

// Default analysis assumptions, overridable through the settings store.
const (
	defaultCostOfEquity = 0.10
	defaultTaxRate      = 0.22
)

// Cache keys for the computed views. Flushed wholesale after each sync and
// after assumption changes.
const (
	cacheKeyOverview   = "overview"
	cacheKeyAnalytics  = "analytics"
	cacheKeyTimeline   = "timeline"
	cacheKeyAllocation = "allocation"
)

// CompanyBreakdown summarizes one company's position within the portfolio.
type CompanyBreakdown struct {
	Company      string
	Invested     float64
	CurrentValue float64
	Shares       int64
	ReturnPct    float64
}

// SourceSlice is one funding source's share of total invested capital.
type SourceSlice struct {
	Source   string
	Invested float64
	Pct      float64
}

// PortfolioOverview is the top-level dashboard view: headline totals plus
// per-company and per-source distributions.
type PortfolioOverview struct {
	TotalInvested float64
	CurrentValue  float64
	ChangePct     float64
	// InvestedInvalid flags a zero or negative invested total, in which case
	// ChangePct is reported as 0 rather than a division artifact.
	InvestedInvalid bool
	Companies       []CompanyBreakdown
	Sources         []SourceSlice
}

// ConcentrationSlice is one name's percentage of total current value.
type ConcentrationSlice struct {
	Name string
	Pct  float64
}

// PortfolioAnalytics is the capital-structure view: WACC inputs and outputs
// plus concentration distributions.
type PortfolioAnalytics struct {
	WACC            float64
	CostOfEquity    float64
	CostOfDebt      float64
	TaxRate         float64
	EquityWeight    float64
	DebtWeight      float64
	DebtEquityRatio float64

	CompanyConcentration []ConcentrationSlice
	SourceConcentration  []ConcentrationSlice
}

// TimelinePoint is one investment event with running totals.
type TimelinePoint struct {
	Date               time.Time
	Company            string
	Invested           float64
	CurrentValue       float64
	CumulativeInvested float64
	CumulativeValue    float64
}

// PortfolioTimeline is the chronological growth view.
type PortfolioTimeline struct {
	Points []TimelinePoint
}

// AllocationFlow is the invested amount flowing from one source to one company.
type AllocationFlow struct {
	Source       string
	Company      string
	Invested     float64
	CurrentValue float64
}

// PortfolioAllocation feeds the treemap and sankey renderings: money flows
// grouped by (source, company).
type PortfolioAllocation struct {
	Flows         []AllocationFlow
	TotalInvested float64
	TotalValue    float64
}

// PricePoint is one month in a company's price history.
type PricePoint struct {
	Month              time.Time
	PricePaid          float64
	CurrentMarketPrice float64
}

// CompanyPerformance is the single-company view: position metrics, ownership,
// and a monthly price history from first investment to now.
type CompanyPerformance struct {
	Company            string
	OrgNo              string
	TotalInvested      float64
	CurrentValue       float64
	ReturnPct          float64
	Shares             int64
	TotalShares        int64
	OwnershipPct       float64
	CurrentMarketPrice float64
	PriceHistory       []PricePoint
	Investments        []model.Investment
}

// PortfolioService computes the dashboard views from stored sheet rows.
// Results are cached until the next sync or assumption change.
type PortfolioService struct {
	investments   driven.InvestmentStore
	shareholdings driven.ShareholdingStore
	loans         driven.LoanStore
	settings      driven.SettingStore
	cache         *gocache.Cache
	now           func() time.Time // Injectable clock for price-history tests.
}

// NewPortfolioService creates a new PortfolioService with the required dependencies.
func NewPortfolioService(
	investments driven.InvestmentStore,
	shareholdings driven.ShareholdingStore,
	loans driven.LoanStore,
	settings driven.SettingStore,
) *PortfolioService {
	return &PortfolioService{
		investments:   investments,
		shareholdings: shareholdings,
		loans:         loans,
		settings:      settings,
		cache:         gocache.New(10*time.Minute, 30*time.Minute),
		now:           time.Now,
	}
}

// InvalidateCache drops all cached views. Called after each sync and after
// assumption updates.
func (s *PortfolioService) InvalidateCache() {
	s.cache.Flush()
}

// Overview computes the headline totals and per-company/per-source breakdowns.
func (s *PortfolioService) Overview(ctx context.Context) (*PortfolioOverview, error) {
	if cached, ok := s.cache.Get(cacheKeyOverview); ok {
		return cached.(*PortfolioOverview), nil
	}

	investments, err := s.investments.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	overview := &PortfolioOverview{
		Companies: []CompanyBreakdown{},
		Sources:   []SourceSlice{},
	}

	byCompany := make(map[string]*CompanyBreakdown)
	bySource := make(map[string]float64)

	for _, inv := range investments {
		overview.TotalInvested += inv.Invested
		overview.CurrentValue += inv.CurrentValue

		cb, ok := byCompany[inv.Company]
		if !ok {
			cb = &CompanyBreakdown{Company: inv.Company}
			byCompany[inv.Company] = cb
		}
		cb.Invested += inv.Invested
		cb.CurrentValue += inv.CurrentValue
		cb.Shares += inv.Shares

		bySource[inv.Source] += inv.Invested
	}

	if overview.TotalInvested > 0 {
		overview.ChangePct = (overview.CurrentValue - overview.TotalInvested) / overview.TotalInvested * 100
	} else {
		overview.InvestedInvalid = true
	}

	for _, cb := range byCompany {
		if cb.Invested > 0 {
			cb.ReturnPct = (cb.CurrentValue - cb.Invested) / cb.Invested * 100
		}
		overview.Companies = append(overview.Companies, *cb)
	}
	sort.Slice(overview.Companies, func(i, j int) bool {
		return overview.Companies[i].Company < overview.Companies[j].Company
	})

	for source, invested := range bySource {
		slice := SourceSlice{Source: source, Invested: invested}
		if overview.TotalInvested > 0 {
			slice.Pct = invested / overview.TotalInvested * 100
		}
		overview.Sources = append(overview.Sources, slice)
	}
	sort.Slice(overview.Sources, func(i, j int) bool {
		return overview.Sources[i].Source < overview.Sources[j].Source
	})

	s.cache.SetDefault(cacheKeyOverview, overview)
	return overview, nil
}

// Analytics computes the capital-structure view. Cost of equity and tax rate
// come from the settings store, falling back to 10% and 22% respectively.
func (s *PortfolioService) Analytics(ctx context.Context) (*PortfolioAnalytics, error) {
	if cached, ok := s.cache.Get(cacheKeyAnalytics); ok {
		return cached.(*PortfolioAnalytics), nil
	}

	investments, err := s.investments.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := s.loans.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	analytics := &PortfolioAnalytics{
		CostOfEquity:         s.assumption(ctx, model.SettingCostOfEquity, defaultCostOfEquity),
		TaxRate:              s.assumption(ctx, model.SettingTaxRate, defaultTaxRate),
		CompanyConcentration: []ConcentrationSlice{},
		SourceConcentration:  []ConcentrationSlice{},
	}

	var totalEquity float64
	companyValue := make(map[string]float64)
	sourceValue := make(map[string]float64)
	for _, inv := range investments {
		totalEquity += inv.CurrentValue
		companyValue[inv.Company] += inv.CurrentValue
		sourceValue[inv.Source] += inv.CurrentValue
	}

	var totalDebt, weightedRate float64
	for _, loan := range loans {
		totalDebt += loan.Amount
		weightedRate += loan.Amount * loan.InterestRate
	}
	if totalDebt > 0 {
		analytics.CostOfDebt = weightedRate / totalDebt / 100
	}

	totalCapital := totalEquity + totalDebt
	if totalCapital > 0 {
		analytics.EquityWeight = totalEquity / totalCapital
		analytics.DebtWeight = totalDebt / totalCapital
	}
	if analytics.EquityWeight > 0 {
		analytics.DebtEquityRatio = analytics.DebtWeight / analytics.EquityWeight
	}

	analytics.WACC = analytics.EquityWeight*analytics.CostOfEquity +
		analytics.DebtWeight*analytics.CostOfDebt*(1-analytics.TaxRate)

	analytics.CompanyConcentration = concentration(companyValue, totalEquity)
	analytics.SourceConcentration = concentration(sourceValue, totalEquity)

	s.cache.SetDefault(cacheKeyAnalytics, analytics)
	return analytics, nil
}

// Timeline computes the chronological growth view with cumulative series.
func (s *PortfolioService) Timeline(ctx context.Context) (*PortfolioTimeline, error) {
	if cached, ok := s.cache.Get(cacheKeyTimeline); ok {
		return cached.(*PortfolioTimeline), nil
	}

	investments, err := s.investments.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	timeline := &PortfolioTimeline{Points: make([]TimelinePoint, 0, len(investments))}

	var cumInvested, cumValue float64
	for _, inv := range investments {
		cumInvested += inv.Invested
		cumValue += inv.CurrentValue
		timeline.Points = append(timeline.Points, TimelinePoint{
			Date:               inv.Date,
			Company:            inv.Company,
			Invested:           inv.Invested,
			CurrentValue:       inv.CurrentValue,
			CumulativeInvested: cumInvested,
			CumulativeValue:    cumValue,
		})
	}

	s.cache.SetDefault(cacheKeyTimeline, timeline)
	return timeline, nil
}

// Allocation computes source→company flows, optionally restricted to
// investments dated within [from, to]. Zero bounds mean unbounded; only the
// unfiltered view is cached.
func (s *PortfolioService) Allocation(ctx context.Context, from, to time.Time) (*PortfolioAllocation, error) {
	unfiltered := from.IsZero() && to.IsZero()
	if unfiltered {
		if cached, ok := s.cache.Get(cacheKeyAllocation); ok {
			return cached.(*PortfolioAllocation), nil
		}
	}

	investments, err := s.investments.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	allocation := &PortfolioAllocation{Flows: []AllocationFlow{}}

	type flowKey struct{ source, company string }
	flows := make(map[flowKey]*AllocationFlow)

	for _, inv := range investments {
		if !from.IsZero() && inv.Date.Before(from) {
			continue
		}
		if !to.IsZero() && inv.Date.After(to) {
			continue
		}

		allocation.TotalInvested += inv.Invested
		allocation.TotalValue += inv.CurrentValue

		key := flowKey{source: inv.Source, company: inv.Company}
		flow, ok := flows[key]
		if !ok {
			flow = &AllocationFlow{Source: inv.Source, Company: inv.Company}
			flows[key] = flow
		}
		flow.Invested += inv.Invested
		flow.CurrentValue += inv.CurrentValue
	}

	for _, flow := range flows {
		allocation.Flows = append(allocation.Flows, *flow)
	}
	sort.Slice(allocation.Flows, func(i, j int) bool {
		if allocation.Flows[i].Source != allocation.Flows[j].Source {
			return allocation.Flows[i].Source < allocation.Flows[j].Source
		}
		return allocation.Flows[i].Company < allocation.Flows[j].Company
	})

	if unfiltered {
		s.cache.SetDefault(cacheKeyAllocation, allocation)
	}
	return allocation, nil
}

// CompanyPerformance computes the single-company view. Returns
// ErrCompanyNotFound when the company has no investments.
func (s *PortfolioService) CompanyPerformance(ctx context.Context, company string) (*CompanyPerformance, error) {
	cacheKey := "company:" + company
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*CompanyPerformance), nil
	}

	investments, err := s.investments.ListByCompany(ctx, company)
	if err != nil {
		return nil, err
	}
	if len(investments) == 0 {
		return nil, fmt.Errorf("%q: %w", company, ErrCompanyNotFound)
	}

	perf := &CompanyPerformance{
		Company:     company,
		Investments: investments,
	}

	for _, inv := range investments {
		perf.TotalInvested += inv.Invested
		perf.CurrentValue += inv.CurrentValue
		perf.Shares += inv.Shares
	}
	if perf.TotalInvested > 0 {
		perf.ReturnPct = (perf.CurrentValue - perf.TotalInvested) / perf.TotalInvested * 100
	}

	// Latest row carries the current market price; rows are date-ordered.
	perf.CurrentMarketPrice = investments[len(investments)-1].CurrentMarketPrice

	shareholding, err := s.shareholdings.GetByCompany(ctx, company)
	if err != nil {
		return nil, err
	}
	if shareholding != nil {
		perf.OrgNo = shareholding.OrgNo
		perf.TotalShares = shareholding.TotalShares
		perf.OwnershipPct = shareholding.OwnershipPct(perf.Shares)
	}

	perf.PriceHistory = priceHistory(investments, perf.CurrentMarketPrice, s.now().UTC())

	s.cache.SetDefault(cacheKey, perf)
	return perf, nil
}

// priceHistory builds a month-by-month series from the first investment to
// now. The purchase price is forward-filled between investment dates; the
// current market price is constant across the series.
func priceHistory(investments []model.Investment, currentPrice float64, now time.Time) []PricePoint {
	if len(investments) == 0 {
		return []PricePoint{}
	}

	start := investments[0].Date
	month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	history := []PricePoint{}
	pricePaid := investments[0].PricePaid

	for !month.After(end) {
		// Forward-fill from the latest investment on or before this month's end.
		monthEnd := month.AddDate(0, 1, 0).Add(-time.Nanosecond)
		for _, inv := range investments {
			if !inv.Date.After(monthEnd) {
				pricePaid = inv.PricePaid
			}
		}

		history = append(history, PricePoint{
			Month:              month,
			PricePaid:          pricePaid,
			CurrentMarketPrice: currentPrice,
		})

		month = month.AddDate(0, 1, 0)
	}

	return history
}

// concentration converts a value-by-name map into percentage slices sorted
// descending, the order the concentration charts present them in.
func concentration(values map[string]float64, total float64) []ConcentrationSlice {
	slices := make([]ConcentrationSlice, 0, len(values))
	for name, value := range values {
		slice := ConcentrationSlice{Name: name}
		if total > 0 {
			slice.Pct = value / total * 100
		}
		slices = append(slices, slice)
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Pct != slices[j].Pct {
			return slices[i].Pct > slices[j].Pct
		}
		return slices[i].Name < slices[j].Name
	})

	return slices
}

// assumption reads a float setting, falling back to def when unset or invalid.
func (s *PortfolioService) assumption(ctx context.Context, key string, def float64) float64 {
	value, err := s.settings.Get(ctx, key)
	if err != nil || value == "" {
		return def
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return f
}
