package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/arjunmk/dhanarjan/internal/adapter/driving/http"
	"github.com/arjunmk/dhanarjan/internal/application"
	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockInvestmentStore struct {
	investments []model.Investment
	err         error
}

func (m *mockInvestmentStore) ReplaceAll(_ context.Context, _ []model.Investment) error { return nil }
func (m *mockInvestmentStore) ListAll(_ context.Context) ([]model.Investment, error) {
	return m.investments, m.err
}
func (m *mockInvestmentStore) ListByCompany(_ context.Context, company string) ([]model.Investment, error) {
	var out []model.Investment
	for _, inv := range m.investments {
		if inv.Company == company {
			out = append(out, inv)
		}
	}
	return out, m.err
}
func (m *mockInvestmentStore) Companies(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, inv := range m.investments {
		if !seen[inv.Company] {
			seen[inv.Company] = true
			out = append(out, inv.Company)
		}
	}
	return out, m.err
}

type mockShareholdingStore struct {
	shareholdings []model.Shareholding
}

func (m *mockShareholdingStore) ReplaceAll(_ context.Context, _ []model.Shareholding) error {
	return nil
}
func (m *mockShareholdingStore) ListAll(_ context.Context) ([]model.Shareholding, error) {
	return m.shareholdings, nil
}
func (m *mockShareholdingStore) GetByCompany(_ context.Context, company string) (*model.Shareholding, error) {
	for _, sh := range m.shareholdings {
		if sh.Company == company {
			out := sh
			return &out, nil
		}
	}
	return nil, nil
}

type mockLoanStore struct {
	loans []model.Loan
}

func (m *mockLoanStore) ReplaceAll(_ context.Context, _ []model.Loan) error { return nil }
func (m *mockLoanStore) ListAll(_ context.Context) ([]model.Loan, error)    { return m.loans, nil }

type mockNoteStore struct {
	notes     map[string]model.CompanyNote
	upserted  *model.CompanyNote
	deleteErr error
}

func (m *mockNoteStore) Upsert(_ context.Context, note model.CompanyNote) error {
	m.upserted = &note
	return nil
}
func (m *mockNoteStore) GetByCompany(_ context.Context, company string) (*model.CompanyNote, error) {
	if note, ok := m.notes[company]; ok {
		return &note, nil
	}
	return nil, nil
}
func (m *mockNoteStore) ListAll(_ context.Context) ([]model.CompanyNote, error) { return nil, nil }
func (m *mockNoteStore) Delete(_ context.Context, _ string) error               { return m.deleteErr }

type mockSettingStore struct {
	values map[string]string
}

func (m *mockSettingStore) Set(_ context.Context, key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}
func (m *mockSettingStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}
func (m *mockSettingStore) List(_ context.Context) ([]model.Setting, error) { return nil, nil }

type mockSyncRunStore struct {
	runs []model.SyncRun
}

func (m *mockSyncRunStore) Insert(_ context.Context, _ model.SyncRun) error { return nil }
func (m *mockSyncRunStore) Update(_ context.Context, _ model.SyncRun) error { return nil }
func (m *mockSyncRunStore) Latest(_ context.Context) (*model.SyncRun, error) {
	if len(m.runs) == 0 {
		return nil, nil
	}
	return &m.runs[0], nil
}
func (m *mockSyncRunStore) List(_ context.Context, limit int) ([]model.SyncRun, error) {
	if len(m.runs) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

type mockCredentialStore struct {
	values map[string]string
	setErr error
}

func (m *mockCredentialStore) Set(_ context.Context, service, plaintext string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[service] = plaintext
	return nil
}
func (m *mockCredentialStore) Get(_ context.Context, service string) (string, error) {
	return m.values[service], nil
}
func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) { return nil, nil }
func (m *mockCredentialStore) Delete(_ context.Context, _ string) error           { return nil }

type mockSyncTrigger struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockSyncTrigger) Refresh(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *mockSyncTrigger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Test fixture ---

type fixture struct {
	investments *mockInvestmentStore
	notes       *mockNoteStore
	settings    *mockSettingStore
	syncRuns    *mockSyncRunStore
	credentials *mockCredentialStore
	trigger     *mockSyncTrigger
	server      http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		investments: &mockInvestmentStore{
			investments: []model.Investment{
				{
					RowNo:              1,
					Date:               time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC),
					Company:            "Acme AB",
					Source:             "Savings",
					Shares:             100,
					PricePaid:          100,
					Invested:           10000,
					CurrentMarketPrice: 150,
					CurrentValue:       15000,
				},
				{
					RowNo:              2,
					Date:               time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC),
					Company:            "Nordic Tech AB",
					Source:             "Loan",
					Shares:             50,
					PricePaid:          200,
					Invested:           10000,
					CurrentMarketPrice: 180,
					CurrentValue:       9000,
				},
			},
		},
		notes:       &mockNoteStore{notes: map[string]model.CompanyNote{}},
		settings:    &mockSettingStore{},
		syncRuns:    &mockSyncRunStore{},
		credentials: &mockCredentialStore{},
		trigger:     &mockSyncTrigger{},
	}

	shareholdings := &mockShareholdingStore{
		shareholdings: []model.Shareholding{
			{Company: "Acme AB", OrgNo: "556123-4567", TotalShares: 10000},
		},
	}
	loans := &mockLoanStore{
		loans: []model.Loan{
			{Name: "Bank loan", InterestRate: 4.5, Amount: 200000},
		},
	}

	portfolioSvc := application.NewPortfolioService(f.investments, shareholdings, loans, f.settings)
	loanSvc := application.NewLoanService(loans)

	handler := httphandler.NewHandler(
		portfolioSvc,
		loanSvc,
		f.trigger,
		f.investments,
		f.notes,
		f.settings,
		f.syncRuns,
		f.credentials,
		nil,
		0.10,
		0.22,
		slog.Default(),
	)
	f.server = httphandler.NewServeMux(handler, slog.Default())

	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Tests ---

func TestGetPortfolio(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.OverviewResponse](t, rec)
	assert.InDelta(t, 20000, resp.TotalInvested, 1e-9)
	assert.InDelta(t, 24000, resp.CurrentValue, 1e-9)
	assert.InDelta(t, 20, resp.ChangePct, 1e-9)
	require.Len(t, resp.Companies, 2)
	require.Len(t, resp.Sources, 2)
}

func TestGetAnalytics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.AnalyticsResponse](t, rec)
	assert.Greater(t, resp.WACC, 0.0)
	assert.InDelta(t, 0.10, resp.CostOfEquity, 1e-9)
	assert.NotEmpty(t, resp.CompanyConcentration)
}

func TestGetTimeline(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]httphandler.TimelinePointResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "2022-01-15", resp[0].Date)
	assert.InDelta(t, 20000, resp[1].CumulativeInvested, 1e-9)
}

func TestGetAllocation_DateFilter(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/allocation?from=2023-01-01", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.AllocationResponse](t, rec)
	require.Len(t, resp.Flows, 1)
	assert.Equal(t, "Nordic Tech AB", resp.Flows[0].Company)
}

func TestGetAllocation_BadDate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/allocation?from=January", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInvestments(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/investments", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]httphandler.InvestmentResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "Acme AB", resp[0].Company)
	assert.InDelta(t, 50, resp[0].ReturnPct, 1e-9)
}

func TestListCompanies(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/companies", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]string](t, rec)
	assert.Equal(t, []string{"Acme AB", "Nordic Tech AB"}, resp)
}

func TestGetCompany(t *testing.T) {
	f := newFixture(t)
	f.notes.notes["Acme AB"] = model.CompanyNote{
		Company:   "Acme AB",
		Body:      "**Strong** quarter",
		UpdatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	rec := f.do(t, http.MethodGet, "/api/v1/companies/Acme%20AB", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.CompanyResponse](t, rec)
	assert.Equal(t, "Acme AB", resp.Company)
	assert.Equal(t, "556123-4567", resp.OrgNo)
	assert.InDelta(t, 1.0, resp.OwnershipPct, 1e-9)
	assert.NotEmpty(t, resp.PriceHistory)
	require.NotNil(t, resp.Note)
	assert.Contains(t, resp.Note.BodyHTML, "<strong>Strong</strong>")
}

func TestGetCompany_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/companies/NoSuchCo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutNote(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/companies/Acme%20AB/note", `{"body":"# Thesis\nLong term hold."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, f.notes.upserted)
	assert.Equal(t, "Acme AB", f.notes.upserted.Company)

	resp := decode[httphandler.NoteResponse](t, rec)
	assert.Contains(t, resp.BodyHTML, "<h1>")
}

func TestPutNote_EmptyBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/companies/Acme%20AB/note", `{"body":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetNote_Missing(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/companies/Acme%20AB/note", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteNote_Missing(t *testing.T) {
	f := newFixture(t)
	f.notes.deleteErr = driven.ErrNoteNotFound

	rec := f.do(t, http.MethodDelete, "/api/v1/companies/Acme%20AB/note", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteNote(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/companies/Acme%20AB/note", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetLoans(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/loans", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.LoanAnalysisResponse](t, rec)
	assert.InDelta(t, 200000, resp.TotalAmount, 1e-9)
	require.Len(t, resp.RepaymentPlan, 1)
	assert.Equal(t, 1, resp.RepaymentPlan[0].Priority)
}

func TestTriggerSync(t *testing.T) {
	f := newFixture(t)
	f.syncRuns.runs = []model.SyncRun{{
		ID:        "run-1",
		Status:    model.SyncStatusSucceeded,
		StartedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	rec := f.do(t, http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.trigger.callCount())

	resp := decode[httphandler.SyncRunResponse](t, rec)
	assert.Equal(t, "run-1", resp.ID)
}

func TestTriggerSync_NoCredentials(t *testing.T) {
	f := newFixture(t)
	f.trigger.err = application.ErrNoSheetClient

	rec := f.do(t, http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerSync_Failure(t *testing.T) {
	f := newFixture(t)
	f.trigger.err = errors.New("sheet unavailable")

	rec := f.do(t, http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListSyncRuns(t *testing.T) {
	f := newFixture(t)
	f.syncRuns.runs = []model.SyncRun{
		{ID: "run-2", Status: model.SyncStatusSucceeded, StartedAt: time.Now().UTC()},
		{ID: "run-1", Status: model.SyncStatusFailed, StartedAt: time.Now().UTC().Add(-time.Hour)},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/sync/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]httphandler.SyncRunResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "run-2", resp[0].ID)
}

func TestListSyncRuns_BadLimit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/sync/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSettings_Defaults(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.SettingsResponse](t, rec)
	assert.InDelta(t, 0.10, resp.CostOfEquity, 1e-9)
	assert.InDelta(t, 0.22, resp.TaxRate, 1e-9)
}

func TestPutSettings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/settings", `{"cost_of_equity":0.12,"tax_rate":0.206}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.SettingsResponse](t, rec)
	assert.InDelta(t, 0.12, resp.CostOfEquity, 1e-9)
	assert.InDelta(t, 0.206, resp.TaxRate, 1e-9)
	assert.Equal(t, "0.12", f.settings.values[model.SettingCostOfEquity])
}

func TestPutSettings_OutOfRange(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/settings", `{"tax_rate":1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutGoogleCredentials(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/credentials/google",
		`{"spreadsheet_id":"1abcDEF","api_key":"AIza123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "1abcDEF", f.credentials.values["google_spreadsheet_id"])
	assert.Equal(t, "AIza123", f.credentials.values["google_api_key"])
	assert.Equal(t, "Investment", f.credentials.values["google_sheet_range"])
}

func TestPutGoogleCredentials_MissingFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/credentials/google", `{"spreadsheet_id":"1abcDEF"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutGoogleCredentials_NoEncryptionKey(t *testing.T) {
	f := newFixture(t)
	f.credentials.setErr = driven.ErrEncryptionKeyNotSet

	rec := f.do(t, http.MethodPut, "/api/v1/credentials/google",
		`{"spreadsheet_id":"1abcDEF","api_key":"AIza123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.syncRuns.runs = []model.SyncRun{{
		ID:        "run-1",
		Status:    model.SyncStatusSucceeded,
		StartedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	rec := f.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.LastSync)
	assert.Equal(t, "run-1", resp.LastSync.ID)
}
