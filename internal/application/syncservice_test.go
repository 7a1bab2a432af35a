package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmk/dhanarjan/internal/application"
	"github.com/arjunmk/dhanarjan/internal/domain/model"
)

// --- Mock implementations ---

type mockSheetClient struct {
	mu       sync.Mutex
	snapshot *model.SheetSnapshot
	err      error
	calls    int
}

func (m *mockSheetClient) FetchSnapshot(_ context.Context) (*model.SheetSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

type mockInvestmentStore struct {
	mu       sync.Mutex
	stored   []model.Investment
	replaces int
	err      error
}

func (m *mockInvestmentStore) ReplaceAll(_ context.Context, investments []model.Investment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.replaces++
	m.stored = investments
	return nil
}

func (m *mockInvestmentStore) ListAll(_ context.Context) ([]model.Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored, nil
}

func (m *mockInvestmentStore) ListByCompany(_ context.Context, company string) ([]model.Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Investment
	for _, inv := range m.stored {
		if inv.Company == company {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvestmentStore) Companies(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, inv := range m.stored {
		if !seen[inv.Company] {
			seen[inv.Company] = true
			out = append(out, inv.Company)
		}
	}
	return out, nil
}

type mockShareholdingStore struct {
	mu     sync.Mutex
	stored []model.Shareholding
}

func (m *mockShareholdingStore) ReplaceAll(_ context.Context, shareholdings []model.Shareholding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = shareholdings
	return nil
}

func (m *mockShareholdingStore) ListAll(_ context.Context) ([]model.Shareholding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored, nil
}

func (m *mockShareholdingStore) GetByCompany(_ context.Context, company string) (*model.Shareholding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sh := range m.stored {
		if sh.Company == company {
			out := sh
			return &out, nil
		}
	}
	return nil, nil
}

type mockLoanStore struct {
	mu     sync.Mutex
	stored []model.Loan
}

func (m *mockLoanStore) ReplaceAll(_ context.Context, loans []model.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = loans
	return nil
}

func (m *mockLoanStore) ListAll(_ context.Context) ([]model.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored, nil
}

type mockSyncRunStore struct {
	mu       sync.Mutex
	inserted []model.SyncRun
	updated  []model.SyncRun
}

func (m *mockSyncRunStore) Insert(_ context.Context, run model.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, run)
	return nil
}

func (m *mockSyncRunStore) Update(_ context.Context, run model.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, run)
	return nil
}

func (m *mockSyncRunStore) Latest(_ context.Context) (*model.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updated) > 0 {
		out := m.updated[len(m.updated)-1]
		return &out, nil
	}
	if len(m.inserted) > 0 {
		out := m.inserted[len(m.inserted)-1]
		return &out, nil
	}
	return nil, nil
}

func (m *mockSyncRunStore) List(_ context.Context, limit int) ([]model.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.updated
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// --- Helpers ---

func testSnapshot() *model.SheetSnapshot {
	return &model.SheetSnapshot{
		Investments: []model.Investment{
			{RowNo: 1, Company: "Acme AB", Source: "Savings", Invested: 12500, CurrentValue: 15000},
		},
		Shareholdings: []model.Shareholding{
			{Company: "Acme AB", OrgNo: "556123-4567", TotalShares: 10000},
		},
		Loans: []model.Loan{
			{Name: "Bank loan", InterestRate: 4.5, Amount: 200000},
		},
	}
}

// startSyncService starts svc in the background and returns a stop function
// that cancels it and waits for shutdown.
func startSyncService(t *testing.T, svc *application.SyncService) (context.Context, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	// Let the initial sync settle.
	time.Sleep(50 * time.Millisecond)

	return ctx, func() {
		cancel()
		<-done
	}
}

// --- Tests ---

func TestSyncService_RefreshReplacesAllStores(t *testing.T) {
	client := &mockSheetClient{snapshot: testSnapshot()}
	provider := application.NewSheetClientProvider(client)
	investments := &mockInvestmentStore{}
	shareholdings := &mockShareholdingStore{}
	loans := &mockLoanStore{}
	runs := &mockSyncRunStore{}

	svc := application.NewSyncService(provider, investments, shareholdings, loans, runs, time.Hour, "", nil)
	ctx, stop := startSyncService(t, svc)
	defer stop()

	require.NoError(t, svc.Refresh(ctx))

	stored, err := investments.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Acme AB", stored[0].Company)

	sh, err := shareholdings.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, sh, 1)

	ln, err := loans.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, ln, 1)
}

func TestSyncService_RecordsSucceededRun(t *testing.T) {
	client := &mockSheetClient{snapshot: testSnapshot()}
	provider := application.NewSheetClientProvider(client)
	runs := &mockSyncRunStore{}

	svc := application.NewSyncService(provider, &mockInvestmentStore{}, &mockShareholdingStore{}, &mockLoanStore{}, runs, time.Hour, "", nil)
	ctx, stop := startSyncService(t, svc)
	defer stop()

	require.NoError(t, svc.Refresh(ctx))

	latest, err := runs.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, model.SyncStatusSucceeded, latest.Status)
	assert.Equal(t, 1, latest.Investments)
	assert.Equal(t, 1, latest.Shareholdings)
	assert.Equal(t, 1, latest.Loans)
	assert.False(t, latest.FinishedAt.IsZero())
	assert.NotEmpty(t, latest.ID)
}

func TestSyncService_NoClientReturnsSentinel(t *testing.T) {
	provider := application.NewSheetClientProvider(nil)
	runs := &mockSyncRunStore{}

	svc := application.NewSyncService(provider, &mockInvestmentStore{}, &mockShareholdingStore{}, &mockLoanStore{}, runs, time.Hour, "", nil)
	ctx, stop := startSyncService(t, svc)
	defer stop()

	err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, application.ErrNoSheetClient)

	// Skipped cycles leave no audit record.
	latest, err := runs.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSyncService_FetchFailureMarksRunFailed(t *testing.T) {
	client := &mockSheetClient{err: errors.New("403 Forbidden")}
	provider := application.NewSheetClientProvider(client)
	runs := &mockSyncRunStore{}
	investments := &mockInvestmentStore{}

	svc := application.NewSyncService(provider, investments, &mockShareholdingStore{}, &mockLoanStore{}, runs, time.Hour, "", nil)
	ctx, stop := startSyncService(t, svc)
	defer stop()

	err := svc.Refresh(ctx)
	require.Error(t, err)

	latest, lerr := runs.Latest(ctx)
	require.NoError(t, lerr)
	require.NotNil(t, latest)
	assert.Equal(t, model.SyncStatusFailed, latest.Status)
	assert.Contains(t, latest.Error, "403 Forbidden")

	// Stores are untouched on fetch failure.
	assert.Equal(t, 0, investments.replaces)
}

func TestSyncService_OnSyncedCallbackFires(t *testing.T) {
	client := &mockSheetClient{snapshot: testSnapshot()}
	provider := application.NewSheetClientProvider(client)

	var mu sync.Mutex
	callbacks := 0
	onSynced := func() {
		mu.Lock()
		defer mu.Unlock()
		callbacks++
	}

	svc := application.NewSyncService(provider, &mockInvestmentStore{}, &mockShareholdingStore{}, &mockLoanStore{}, &mockSyncRunStore{}, time.Hour, "", onSynced)
	ctx, stop := startSyncService(t, svc)
	defer stop()

	require.NoError(t, svc.Refresh(ctx))

	mu.Lock()
	defer mu.Unlock()
	// Initial sync plus the manual refresh.
	assert.Equal(t, 2, callbacks)
}

func TestSyncService_ClientHotSwapEnablesSync(t *testing.T) {
	provider := application.NewSheetClientProvider(nil)
	investments := &mockInvestmentStore{}

	svc := application.NewSyncService(provider, investments, &mockShareholdingStore{}, &mockLoanStore{}, &mockSyncRunStore{}, time.Hour, "", nil)
	ctx, stop := startSyncService(t, svc)
	defer stop()

	assert.ErrorIs(t, svc.Refresh(ctx), application.ErrNoSheetClient)

	provider.Replace(&mockSheetClient{snapshot: testSnapshot()})
	require.NoError(t, svc.Refresh(ctx))

	stored, err := investments.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
