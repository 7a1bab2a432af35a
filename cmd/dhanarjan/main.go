package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sheetsadapter "github.com/arjunmk/dhanarjan/internal/adapter/driven/sheets"
	sqliteadapter "github.com/arjunmk/dhanarjan/internal/adapter/driven/sqlite"
	httphandler "github.com/arjunmk/dhanarjan/internal/adapter/driving/http"
	"github.com/arjunmk/dhanarjan/internal/adapter/driving/web"
	"github.com/arjunmk/dhanarjan/internal/application"
	"github.com/arjunmk/dhanarjan/internal/config"
	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sync_interval", cfg.SyncInterval,
		"sheet_range", cfg.SheetRange,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	investmentStore := sqliteadapter.NewInvestmentRepo(db)
	shareholdingStore := sqliteadapter.NewShareholdingRepo(db)
	loanStore := sqliteadapter.NewLoanRepo(db)
	noteStore := sqliteadapter.NewNoteRepo(db)
	settingStore := sqliteadapter.NewSettingRepo(db)
	syncRunStore := sqliteadapter.NewSyncRunRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	// 5b. Seed analysis assumptions from env vars when not already stored.
	seedSetting(ctx, settingStore, model.SettingCostOfEquity, cfg.CostOfEquity)
	seedSetting(ctx, settingStore, model.SettingTaxRate, cfg.TaxRate)

	// 6. Resolve Google credentials: stored credentials take priority over env vars.
	sheetCfg := sheetsadapter.Config{
		SpreadsheetID:   cfg.SpreadsheetID,
		ReadRange:       cfg.SheetRange,
		APIKey:          cfg.GoogleAPIKey,
		CredentialsFile: cfg.GoogleCredentialsFile,
	}
	if stored, err := credentialStore.Get(ctx, "google_spreadsheet_id"); err == nil && stored != "" {
		sheetCfg.SpreadsheetID = stored
	}
	if stored, err := credentialStore.Get(ctx, "google_sheet_range"); err == nil && stored != "" {
		sheetCfg.ReadRange = stored
	}
	if stored, err := credentialStore.Get(ctx, "google_api_key"); err == nil && stored != "" {
		sheetCfg.APIKey = stored
	}

	// 6b. Create sheet client (may be nil if no credentials configured).
	var sheetClient *sheetsadapter.Client
	if sheetCfg.SpreadsheetID != "" && (sheetCfg.APIKey != "" || sheetCfg.CredentialsFile != "") {
		sheetClient, err = sheetsadapter.NewClient(ctx, sheetCfg)
		if err != nil {
			return err
		}
		slog.Info("sheets client created", "spreadsheet", sheetCfg.SpreadsheetID, "range", sheetCfg.ReadRange)
	} else {
		slog.Info("no google credentials configured, syncing disabled until credentials are provided via the API")
	}

	// 6c. Create SheetClientProvider for hot-swap. The nil check happens before
	// the interface conversion so an absent client stays a true nil.
	provider := application.NewSheetClientProvider(nil)
	if sheetClient != nil {
		provider.Replace(sheetClient)
	}

	// 7. Create analytics services.
	portfolioSvc := application.NewPortfolioService(investmentStore, shareholdingStore, loanStore, settingStore)
	loanSvc := application.NewLoanService(loanStore)

	// 7b. Create and start sync service. Each successful sync flushes the
	// computed view cache.
	syncSvc := application.NewSyncService(
		provider,
		investmentStore,
		shareholdingStore,
		loanStore,
		syncRunStore,
		cfg.SyncInterval,
		cfg.SyncSchedule,
		portfolioSvc.InvalidateCache,
	)
	go syncSvc.Start(ctx)

	// 7c. Credential updates build a fresh client and swap it into the provider.
	updateCreds := func(ctx context.Context, spreadsheetID, sheetRange, apiKey string) error {
		client, err := sheetsadapter.NewClient(ctx, sheetsadapter.Config{
			SpreadsheetID: spreadsheetID,
			ReadRange:     sheetRange,
			APIKey:        apiKey,
		})
		if err != nil {
			return err
		}
		provider.Replace(client)
		slog.Info("sheets client replaced", "spreadsheet", spreadsheetID, "range", sheetRange)
		return nil
	}

	// 8. Create HTTP handler; register API, GUI, and metrics routes on one mux.
	apiHandler := httphandler.NewHandler(
		portfolioSvc,
		loanSvc,
		syncSvc,
		investmentStore,
		noteStore,
		settingStore,
		syncRunStore,
		credentialStore,
		updateCreds,
		cfg.CostOfEquity,
		cfg.TaxRate,
		slog.Default(),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default(),
		web.RegisterRoutes,
		func(mux *http.ServeMux) {
			mux.Handle("GET /metrics", promhttp.Handler())
		},
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("dhanarjan started",
		"listen_addr", cfg.ListenAddr,
		"sync_interval", cfg.SyncInterval,
		"sync_schedule", cfg.SyncSchedule,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// seedSetting stores a config-supplied assumption unless a value is already
// persisted, so API updates survive restarts.
func seedSetting(ctx context.Context, store *sqliteadapter.SettingRepo, key string, value float64) {
	existing, err := store.Get(ctx, key)
	if err != nil {
		slog.Error("failed to read setting", "key", key, "error", err)
		return
	}
	if existing != "" {
		return
	}
	if err := store.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
		slog.Error("failed to seed setting", "key", key, "error", err)
	}
}
