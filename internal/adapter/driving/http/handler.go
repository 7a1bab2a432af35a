// Package httphandler is the HTTP driving adapter serving the JSON API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/arjunmk/dhanarjan/internal/application"
	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// allocationDateLayout is the format of the from/to query parameters on the
// allocation endpoint.
const allocationDateLayout = "2006-01-02"

// SyncTrigger triggers a manual sheet sync. Implemented by the sync service.
type SyncTrigger interface {
	Refresh(ctx context.Context) error
}

// CredentialUpdateFunc applies new Google credentials: it builds a fresh sheet
// client and swaps it into the provider. Supplied by the composition root.
type CredentialUpdateFunc func(ctx context.Context, spreadsheetID, sheetRange, apiKey string) error

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	portfolio    *application.PortfolioService
	loans        *application.LoanService
	syncTrigger  SyncTrigger
	investments  driven.InvestmentStore
	notes        driven.NoteStore
	settings     driven.SettingStore
	syncRuns     driven.SyncRunStore
	credentials  driven.CredentialStore
	updateCreds  CredentialUpdateFunc
	costOfEquity float64 // Config default, used when no setting overrides it.
	taxRate      float64
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. syncTrigger and
// updateCreds may be nil in tests.
func NewHandler(
	portfolio *application.PortfolioService,
	loans *application.LoanService,
	syncTrigger SyncTrigger,
	investments driven.InvestmentStore,
	notes driven.NoteStore,
	settings driven.SettingStore,
	syncRuns driven.SyncRunStore,
	credentials driven.CredentialStore,
	updateCreds CredentialUpdateFunc,
	costOfEquity float64,
	taxRate float64,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		portfolio:    portfolio,
		loans:        loans,
		syncTrigger:  syncTrigger,
		investments:  investments,
		notes:        notes,
		settings:     settings,
		syncRuns:     syncRuns,
		credentials:  credentials,
		updateCreds:  updateCreds,
		costOfEquity: costOfEquity,
		taxRate:      taxRate,
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all API routes registered and
// wrapped with logging, metrics, and recovery middleware. Additional route
// registrars (web GUI, Prometheus endpoint) are applied to the same mux.
func NewServeMux(h *Handler, logger *slog.Logger, extra ...func(*http.ServeMux)) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)
	for _, register := range extra {
		register(mux)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = metricsMiddleware(mux, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// RegisterRoutes registers the API routes on the provided mux without
// middleware, so the composition root can share one mux with the web adapter.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/portfolio", h.GetPortfolio)
	mux.HandleFunc("GET /api/v1/analytics", h.GetAnalytics)
	mux.HandleFunc("GET /api/v1/timeline", h.GetTimeline)
	mux.HandleFunc("GET /api/v1/allocation", h.GetAllocation)
	mux.HandleFunc("GET /api/v1/investments", h.ListInvestments)
	mux.HandleFunc("GET /api/v1/companies", h.ListCompanies)
	mux.HandleFunc("GET /api/v1/companies/{company}", h.GetCompany)
	mux.HandleFunc("GET /api/v1/companies/{company}/note", h.GetNote)
	mux.HandleFunc("PUT /api/v1/companies/{company}/note", h.PutNote)
	mux.HandleFunc("DELETE /api/v1/companies/{company}/note", h.DeleteNote)
	mux.HandleFunc("GET /api/v1/loans", h.GetLoans)
	mux.HandleFunc("POST /api/v1/sync", h.TriggerSync)
	mux.HandleFunc("GET /api/v1/sync/runs", h.ListSyncRuns)
	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.PutSettings)
	mux.HandleFunc("PUT /api/v1/credentials/google", h.PutGoogleCredentials)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// GetPortfolio returns the headline overview with per-company and per-source
// breakdowns.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	overview, err := h.portfolio.Overview(r.Context())
	if err != nil {
		h.logger.Error("failed to compute overview", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toOverviewResponse(overview))
}

// GetAnalytics returns the capital-structure view: WACC and concentrations.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.portfolio.Analytics(r.Context())
	if err != nil {
		h.logger.Error("failed to compute analytics", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toAnalyticsResponse(analytics))
}

// GetTimeline returns the chronological growth view.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := h.portfolio.Timeline(r.Context())
	if err != nil {
		h.logger.Error("failed to compute timeline", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toTimelineResponse(timeline))
}

// GetAllocation returns source-to-company money flows, optionally filtered by
// ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(allocationDateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(allocationDateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	allocation, err := h.portfolio.Allocation(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to compute allocation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toAllocationResponse(allocation))
}

// ListInvestments returns all stored investment rows.
func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.investments.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list investments", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]InvestmentResponse, 0, len(investments))
	for _, inv := range investments {
		resp = append(resp, toInvestmentResponse(inv))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListCompanies returns the distinct portfolio company names.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.investments.Companies(r.Context())
	if err != nil {
		h.logger.Error("failed to list companies", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if companies == nil {
		companies = []string{}
	}
	writeJSON(w, http.StatusOK, companies)
}

// GetCompany returns the single-company performance view, including the
// rendered note when one exists.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company := r.PathValue("company")

	perf, err := h.portfolio.CompanyPerformance(r.Context(), company)
	if errors.Is(err, application.ErrCompanyNotFound) {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to compute company performance", "company", company, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toCompanyResponse(perf)

	note, err := h.notes.GetByCompany(r.Context(), company)
	if err != nil {
		h.logger.Error("failed to load note", "company", company, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if note != nil {
		noteResp := toNoteResponse(*note)
		resp.Note = &noteResp
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetNote returns the note for a company.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	company := r.PathValue("company")

	note, err := h.notes.GetByCompany(r.Context(), company)
	if err != nil {
		h.logger.Error("failed to load note", "company", company, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}

	writeJSON(w, http.StatusOK, toNoteResponse(*note))
}

// PutNote creates or replaces the note for a company.
func (h *Handler) PutNote(w http.ResponseWriter, r *http.Request) {
	company := r.PathValue("company")

	var req PutNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "note body must not be empty")
		return
	}

	note := model.CompanyNote{
		Company:   company,
		Body:      req.Body,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.notes.Upsert(r.Context(), note); err != nil {
		h.logger.Error("failed to save note", "company", company, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

// DeleteNote removes the note for a company.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	company := r.PathValue("company")

	if err := h.notes.Delete(r.Context(), company); err != nil {
		if errors.Is(err, driven.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error("failed to delete note", "company", company, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLoans returns the liabilities view with the repayment plan.
func (h *Handler) GetLoans(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.loans.Analysis(r.Context())
	if err != nil {
		h.logger.Error("failed to compute loan analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toLoanAnalysisResponse(analysis))
}

// TriggerSync runs a manual sheet sync and waits for it to finish.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.syncTrigger == nil {
		writeError(w, http.StatusServiceUnavailable, "sync service not running")
		return
	}

	if err := h.syncTrigger.Refresh(r.Context()); err != nil {
		if errors.Is(err, application.ErrNoSheetClient) {
			writeError(w, http.StatusConflict, "no google credentials configured")
			return
		}
		h.logger.Error("manual sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "sync failed: "+err.Error())
		return
	}

	run, err := h.syncRuns.Latest(r.Context())
	if err != nil || run == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	writeJSON(w, http.StatusOK, toSyncRunResponse(*run))
}

// ListSyncRuns returns the sync audit log, newest first. ?limit= caps the
// result, default 20.
func (h *Handler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := h.syncRuns.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sync runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SyncRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toSyncRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSettings returns the effective analysis assumptions.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SettingsResponse{
		CostOfEquity: h.effectiveSetting(r.Context(), model.SettingCostOfEquity, h.costOfEquity),
		TaxRate:      h.effectiveSetting(r.Context(), model.SettingTaxRate, h.taxRate),
	})
}

// PutSettings updates the analysis assumptions. Omitted fields keep their
// current value.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req PutSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CostOfEquity != nil {
		if *req.CostOfEquity < 0 || *req.CostOfEquity > 1 {
			writeError(w, http.StatusBadRequest, "cost_of_equity must be a fraction between 0 and 1")
			return
		}
		value := strconv.FormatFloat(*req.CostOfEquity, 'f', -1, 64)
		if err := h.settings.Set(r.Context(), model.SettingCostOfEquity, value); err != nil {
			h.logger.Error("failed to save setting", "key", model.SettingCostOfEquity, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	if req.TaxRate != nil {
		if *req.TaxRate < 0 || *req.TaxRate > 1 {
			writeError(w, http.StatusBadRequest, "tax_rate must be a fraction between 0 and 1")
			return
		}
		value := strconv.FormatFloat(*req.TaxRate, 'f', -1, 64)
		if err := h.settings.Set(r.Context(), model.SettingTaxRate, value); err != nil {
			h.logger.Error("failed to save setting", "key", model.SettingTaxRate, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	h.portfolio.InvalidateCache()
	h.GetSettings(w, r)
}

// PutGoogleCredentials stores new Google Sheets credentials and hot-swaps the
// sheet client so the next sync uses them.
func (h *Handler) PutGoogleCredentials(w http.ResponseWriter, r *http.Request) {
	var req PutCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpreadsheetID == "" || req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "spreadsheet_id and api_key are required")
		return
	}
	if req.SheetRange == "" {
		req.SheetRange = "Investment"
	}

	pairs := map[string]string{
		"google_spreadsheet_id": req.SpreadsheetID,
		"google_sheet_range":    req.SheetRange,
		"google_api_key":        req.APIKey,
	}
	for service, value := range pairs {
		if err := h.credentials.Set(r.Context(), service, value); err != nil {
			if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			h.logger.Error("failed to store credential", "service", service, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	if h.updateCreds != nil {
		if err := h.updateCreds(r.Context(), req.SpreadsheetID, req.SheetRange, req.APIKey); err != nil {
			h.logger.Error("failed to apply new credentials", "error", err)
			writeError(w, http.StatusBadGateway, "credentials stored but client creation failed: "+err.Error())
			return
		}
	}

	// Fire-and-forget sync with background context since the HTTP request
	// context will be cancelled after the response is sent.
	if h.syncTrigger != nil {
		go func() {
			if err := h.syncTrigger.Refresh(context.Background()); err != nil {
				h.logger.Error("post-credential sync failed", "error", err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health returns a simple health check response with the last sync outcome.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	run, err := h.syncRuns.Latest(r.Context())
	if err == nil && run != nil {
		last := toSyncRunResponse(*run)
		resp.LastSync = &last
	}

	writeJSON(w, http.StatusOK, resp)
}

// effectiveSetting reads a float setting, falling back to def when unset or
// unparseable.
func (h *Handler) effectiveSetting(ctx context.Context, key string, def float64) float64 {
	value, err := h.settings.Get(ctx, key)
	if err != nil || value == "" {
		return def
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return f
}
