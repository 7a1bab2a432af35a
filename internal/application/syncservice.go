// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
	"github.com/arjunmk/dhanarjan/internal/metrics"
)

// ErrNoSheetClient is returned when a sync is requested before Google
// credentials have been configured.
var ErrNoSheetClient = errors.New("no sheet client configured")

// refreshRequest represents a manual sync trigger.
type refreshRequest struct {
	done chan error
}

// SyncService orchestrates periodic spreadsheet syncing: fetching a snapshot,
// replacing the stored rows, and recording the cycle in the sync audit log.
type SyncService struct {
	provider      *SheetClientProvider
	investments   driven.InvestmentStore
	shareholdings driven.ShareholdingStore
	loans         driven.LoanStore
	syncRuns      driven.SyncRunStore
	interval      time.Duration
	schedule      string // Optional cron spec; empty means interval only.
	onSynced      func() // Invoked after each successful cycle (cache flush).
	refreshCh     chan refreshRequest
}

// NewSyncService creates a new SyncService with all required dependencies.
// onSynced may be nil.
func NewSyncService(
	provider *SheetClientProvider,
	investments driven.InvestmentStore,
	shareholdings driven.ShareholdingStore,
	loans driven.LoanStore,
	syncRuns driven.SyncRunStore,
	interval time.Duration,
	schedule string,
	onSynced func(),
) *SyncService {
	return &SyncService{
		provider:      provider,
		investments:   investments,
		shareholdings: shareholdings,
		loans:         loans,
		syncRuns:      syncRuns,
		interval:      interval,
		schedule:      schedule,
		onSynced:      onSynced,
		refreshCh:     make(chan refreshRequest),
	}
}

// Start begins the sync loop. It runs an immediate sync, then syncs on the
// configured interval and, when a cron schedule is set, on each cron firing.
// It also listens for manual refresh requests. Start blocks until the context
// is canceled.
func (s *SyncService) Start(ctx context.Context) {
	if err := s.syncOnce(ctx); err != nil && !errors.Is(err, ErrNoSheetClient) {
		slog.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cronCh := make(chan struct{}, 1)
	if s.schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(s.schedule, func() {
			select {
			case cronCh <- struct{}{}:
			default: // A sync is already queued.
			}
		})
		if err != nil {
			slog.Error("invalid sync schedule, falling back to interval only", "schedule", s.schedule, "error", err)
		} else {
			c.Start()
			defer c.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if err := s.syncOnce(ctx); err != nil && !errors.Is(err, ErrNoSheetClient) {
				slog.Error("sync cycle failed", "error", err)
			}
		case <-cronCh:
			if err := s.syncOnce(ctx); err != nil && !errors.Is(err, ErrNoSheetClient) {
				slog.Error("scheduled sync failed", "error", err)
			}
		case req := <-s.refreshCh:
			req.done <- s.syncOnce(ctx)
		}
	}
}

// Refresh triggers a manual sync, bypassing the interval. It blocks until the
// cycle completes or the context is canceled.
func (s *SyncService) Refresh(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.refreshCh <- refreshRequest{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncOnce performs one full sync cycle: fetch, replace, record.
func (s *SyncService) syncOnce(ctx context.Context) error {
	client := s.provider.Get()
	if client == nil {
		slog.Info("no google credentials configured, sync skipped until credentials are provided via the API")
		metrics.SyncRunsTotal.WithLabelValues("skipped").Inc()
		return ErrNoSheetClient
	}

	run := model.SyncRun{
		ID:        uuid.NewString(),
		Status:    model.SyncStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.syncRuns.Insert(ctx, run); err != nil {
		slog.Error("record sync start failed", "run", run.ID, "error", err)
	}

	snapshot, err := client.FetchSnapshot(ctx)
	if err != nil {
		return s.finishRun(ctx, run, err)
	}

	if err := s.investments.ReplaceAll(ctx, snapshot.Investments); err != nil {
		return s.finishRun(ctx, run, err)
	}
	if err := s.shareholdings.ReplaceAll(ctx, snapshot.Shareholdings); err != nil {
		return s.finishRun(ctx, run, err)
	}
	if err := s.loans.ReplaceAll(ctx, snapshot.Loans); err != nil {
		return s.finishRun(ctx, run, err)
	}

	run.Investments = len(snapshot.Investments)
	run.Shareholdings = len(snapshot.Shareholdings)
	run.Loans = len(snapshot.Loans)

	if err := s.finishRun(ctx, run, nil); err != nil {
		return err
	}

	metrics.SheetRows.WithLabelValues("investments").Set(float64(run.Investments))
	metrics.SheetRows.WithLabelValues("shareholdings").Set(float64(run.Shareholdings))
	metrics.SheetRows.WithLabelValues("loans").Set(float64(run.Loans))

	if s.onSynced != nil {
		s.onSynced()
	}

	slog.Info("sync cycle complete",
		"run", run.ID,
		"investments", run.Investments,
		"shareholdings", run.Shareholdings,
		"loans", run.Loans,
		"duration", time.Since(run.StartedAt).Round(time.Millisecond),
	)

	return nil
}

// finishRun marks the run finished with its final status and updates metrics.
// It returns syncErr so callers can propagate the original failure.
func (s *SyncService) finishRun(ctx context.Context, run model.SyncRun, syncErr error) error {
	run.FinishedAt = time.Now().UTC()

	if syncErr != nil {
		run.Status = model.SyncStatusFailed
		run.Error = syncErr.Error()
		metrics.SyncRunsTotal.WithLabelValues("failed").Inc()
	} else {
		run.Status = model.SyncStatusSucceeded
		metrics.SyncRunsTotal.WithLabelValues("succeeded").Inc()
	}
	metrics.SyncDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	if err := s.syncRuns.Update(ctx, run); err != nil {
		slog.Error("record sync finish failed", "run", run.ID, "error", err)
	}

	return syncErr
}
