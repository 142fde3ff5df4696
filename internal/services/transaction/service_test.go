package transaction_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"amlguard/internal/events"
	"amlguard/internal/metrics"
	"amlguard/internal/models"
	"amlguard/internal/recipients"
	"amlguard/internal/repositories"
	"amlguard/internal/repositories/cache"
	"amlguard/internal/services/risk"
	"amlguard/internal/services/transaction"
	"amlguard/internal/testutil"
	"amlguard/internal/validation"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAssessment(ctx context.Context, ev events.AssessmentEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyAlert(ctx context.Context, a *models.Alert) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockNotifier) Close() error { return nil }

type fixture struct {
	svc       transaction.Service
	store     *repositories.Store
	publisher *mockPublisher
	notifier  *mockNotifier
}

func newFixture(t *testing.T, cfg risk.Config) *fixture {
	t.Helper()
	engine, err := risk.NewEngine(cfg)
	require.NoError(t, err)

	store := repositories.NewStore(testutil.NewSQLiteDB(t), nil)
	f := &fixture{store: store, publisher: new(mockPublisher), notifier: new(mockNotifier)}
	f.publisher.On("PublishAssessment", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.notifier.On("NotifyAlert", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = transaction.NewService(transaction.Dependencies{
		Store: store,
		Processor: transaction.NewProcessor(transaction.ProcessorConfig{
			Engine:  engine,
			Tracker: recipients.NewMemoryTracker(0),
		}),
		Publisher: f.publisher,
		Notifier:  f.notifier,
		Metrics:   metrics.Noop{},
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func TestService_CreatePersistsAssessment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	tx, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-05", risk.SentinelRecipient, "55000", "offshore cash transfer"))
	require.NoError(t, err)
	assert.Equal(t, 9.0, tx.RiskScore)
	assert.Equal(t, risk.StatusFlagged, tx.Status)
	assert.Len(t, tx.Flags, 4)

	stored, err := f.svc.Get(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, tx.RiskScore, stored.RiskScore)
	assert.Equal(t, tx.Flags, stored.Flags)
	assert.Equal(t, tx.Status, stored.Status)

	alert, err := f.store.Alerts.GetByTransactionID(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertActive, alert.Status)

	f.publisher.AssertCalled(t, "PublishAssessment", mock.Anything, mock.MatchedBy(func(ev events.AssessmentEvent) bool {
		return ev.Type == events.AssessmentCreated && ev.TransactionID == "T-1" && ev.Status == risk.StatusFlagged
	}))
	f.notifier.AssertNumberOfCalls(t, "NotifyAlert", 1)
}

func TestService_CreateNormalRaisesNoAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	tx, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-02", "ACC-000", "60000", "payment for services"))
	require.NoError(t, err)
	assert.Equal(t, 3.0, tx.RiskScore)
	assert.Equal(t, models.Flags{risk.FlagLargeAmount}, tx.Flags)
	assert.Equal(t, risk.StatusNormal, tx.Status)

	_, err = f.store.Alerts.GetByTransactionID(ctx, "T-1")
	assert.ErrorIs(t, err, repositories.ErrAlertNotFound)
	f.notifier.AssertNotCalled(t, "NotifyAlert", mock.Anything, mock.Anything)
}

func TestService_CreateErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	_, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-02", "X", "10", ""))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, testutil.Input("T-1", "2024-03-03", "Y", "20", ""))
	assert.ErrorIs(t, err, transaction.ErrDuplicateTransaction)

	_, err = f.svc.Create(ctx, testutil.Input("T-2", "2024/03/03", "Y", "20", ""))
	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Contains(t, errs, "date")
}

func TestService_UpdateRecomputesFromScratch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	_, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-05", risk.SentinelRecipient, "55000", "offshore cash transfer"))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, "T-1", testutil.Input("", "2024-03-06", "X", "5000", "grocery"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.RiskScore)
	assert.Empty(t, updated.Flags)
	assert.Equal(t, risk.StatusNormal, updated.Status)
	assert.Equal(t, "T-1", updated.ID)

	stored, err := f.svc.Get(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, "grocery", stored.Description)
	assert.Equal(t, risk.StatusNormal, stored.Status)

	alert, err := f.store.Alerts.GetByTransactionID(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, alert.Status)
}

func TestService_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	_, err := f.svc.Update(ctx, "missing", testutil.Input("", "2024-03-06", "X", "5000", "grocery"))
	assert.ErrorIs(t, err, transaction.ErrTransactionNotFound)

	_, err = f.svc.Update(ctx, "T-1", testutil.Input("T-2", "2024-03-06", "X", "5000", "grocery"))
	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Contains(t, errs, "id")
}

func TestService_Patch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	_, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-02", "ACC-000", "60000", "payment for services"))
	require.NoError(t, err)

	patched, err := f.svc.Patch(ctx, "T-1", &models.TransactionPatch{Description: ptr("loan repayment")})
	require.NoError(t, err)
	assert.Equal(t, 5.5, patched.RiskScore)
	assert.Equal(t, risk.StatusSuspicious, patched.Status)
	assert.Equal(t, "ACC-000", patched.ToAccount)

	patched, err = f.svc.Patch(ctx, "T-1", &models.TransactionPatch{Amount: ptr(decimal.RequireFromString("100"))})
	require.NoError(t, err)
	assert.Equal(t, models.Flags{risk.FlagHighRiskKeyword}, patched.Flags)
	assert.Equal(t, "loan repayment", patched.Description)

	_, err = f.svc.Patch(ctx, "T-1", &models.TransactionPatch{Date: ptr("tomorrow")})
	_, ok := validation.AsErrors(err)
	assert.True(t, ok)

	_, err = f.svc.Patch(ctx, "nope", &models.TransactionPatch{})
	assert.ErrorIs(t, err, transaction.ErrTransactionNotFound)
}

func TestService_ConcurrentPatchesSerialize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())
	_, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-02", "X", "10", ""))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, desc := range []string{"cash", "rent", "loan", "groceries"} {
		wg.Add(1)
		go func(desc string) {
			defer wg.Done()
			_, err := f.svc.Patch(ctx, "T-1", &models.TransactionPatch{Description: &desc})
			assert.NoError(t, err)
		}(desc)
	}
	wg.Wait()

	stored, err := f.store.Transactions.GetByID(ctx, "T-1")
	require.NoError(t, err)
	want := risk.NewDefaultEngine().Evaluate(stored.RiskInput())
	assert.Equal(t, want.RiskScore, stored.RiskScore)
	assert.Equal(t, want.Status, stored.Status)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	_, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-05", risk.SentinelRecipient, "55000", "cash"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, testutil.Input("T-2", "2024-03-06", "X", "1", "rent"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "T-1"))
	_, err = f.svc.Get(ctx, "T-1")
	assert.ErrorIs(t, err, transaction.ErrTransactionNotFound)
	_, err = f.store.Alerts.GetByTransactionID(ctx, "T-1")
	assert.ErrorIs(t, err, repositories.ErrAlertNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "T-1"), transaction.ErrTransactionNotFound)

	n, err := f.svc.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	summary, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}

func TestService_ListAndSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	for _, in := range []*models.TransactionInput{
		testutil.Input("T-1", "2024-03-05", risk.SentinelRecipient, "55000", "offshore cash transfer"),
		testutil.Input("T-2", "2024-03-04", "ACC-1", "50000.01", "Loan repayment"),
		testutil.Input("T-3", "2024-03-07", "X", "5000", "grocery"),
	} {
		_, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
	}

	txs, total, err := f.svc.List(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "T-3", txs[0].ID)

	_, total, err = f.svc.List(ctx, models.TransactionFilter{Status: risk.StatusSuspicious})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, err = f.svc.List(ctx, models.TransactionFilter{Status: "weird"})
	_, ok := validation.AsErrors(err)
	assert.True(t, ok)

	summary, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(1), summary.ByStatus[risk.StatusFlagged])
	assert.Equal(t, int64(1), summary.ByStatus[risk.StatusSuspicious])
	assert.Equal(t, int64(1), summary.ByStatus[risk.StatusNormal])
	assert.InDelta(t, (9.0+5.5+0.0)/3, summary.AverageRiskScore, 1e-9)
}

func TestService_EvaluateDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	a, err := f.svc.Evaluate(ctx, testutil.Input("", "2024-03-15", risk.SentinelRecipient, "25000", ""))
	require.NoError(t, err)
	assert.Equal(t, 3.5, a.RiskScore)
	assert.Equal(t, []string{risk.FlagRepeatRecipient, risk.FlagUnusualTiming}, a.Flags)

	summary, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	f.publisher.AssertNotCalled(t, "PublishAssessment", mock.Anything, mock.Anything)
}

func TestService_RecipientHistory(t *testing.T) {
	ctx := context.Background()
	cfg := risk.DefaultConfig()
	cfg.RepeatRecipientMin = 2
	f := newFixture(t, cfg)

	var last *models.Transaction
	for i, id := range []string{"T-1", "T-2", "T-3"} {
		tx, err := f.svc.Create(ctx, testutil.Input(id, "2024-03-0"+string(rune('2'+2*i)), "ACC-42", "25000", ""))
		require.NoError(t, err)
		last = tx
		if i < 2 {
			assert.Empty(t, tx.Flags, id)
		}
	}
	assert.Equal(t, models.Flags{risk.FlagRepeatRecipient}, last.Flags)

	// moving the record away from the recipient clears the history entry
	_, err := f.svc.Patch(ctx, "T-1", &models.TransactionPatch{ToAccount: ptr("ACC-7")})
	require.NoError(t, err)
	again, err := f.svc.Patch(ctx, "T-3", &models.TransactionPatch{Description: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, again.Flags)
}

func TestService_Reassess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	for _, in := range []*models.TransactionInput{
		testutil.Input("T-1", "2024-03-02", "X", "30000", "rent"),
		testutil.Input("T-2", "2024-03-02", "X", "100", "rent"),
	} {
		_, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
	}

	cfg := risk.DefaultConfig()
	cfg.LargeAmount = decimal.NewFromInt(25000)
	cfg.LargeAmountWeight = 7
	engine, err := risk.NewEngine(cfg)
	require.NoError(t, err)

	stricter := transaction.NewService(transaction.Dependencies{
		Store:     f.store,
		Processor: transaction.NewProcessor(transaction.ProcessorConfig{Engine: engine}),
		Publisher: f.publisher,
		Notifier:  f.notifier,
	})

	result, err := stricter.Reassess(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 1, result.ByStatus[risk.StatusFlagged])
	assert.Equal(t, 1, result.ByStatus[risk.StatusNormal])

	stored, err := f.store.Transactions.GetByID(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, 7.0, stored.RiskScore)
	alert, err := f.store.Alerts.GetByTransactionID(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertActive, alert.Status)

	f.publisher.AssertCalled(t, "PublishAssessment", mock.Anything, mock.MatchedBy(func(ev events.AssessmentEvent) bool {
		return ev.Type == events.AssessmentReassessed && ev.TransactionID == "T-1"
	}))
}

func TestService_GetUsesCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cacheSvc := cache.NewCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	store := repositories.NewStore(testutil.NewSQLiteDB(t), cacheSvc)

	svc := transaction.NewService(transaction.Dependencies{
		Store:     store,
		Cache:     cacheSvc,
		Processor: transaction.NewProcessor(transaction.ProcessorConfig{Engine: risk.NewDefaultEngine()}),
	})

	_, err := svc.Create(ctx, testutil.Input("T-1", "2024-03-02", "X", "60000", "rent"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, "T-1")
	require.NoError(t, err)
	cached, err := cacheSvc.GetTransaction(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, cached.RiskScore)

	_, err = svc.Patch(ctx, "T-1", &models.TransactionPatch{Description: ptr("cash")})
	require.NoError(t, err)
	cached, err = cacheSvc.GetTransaction(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, 5.5, cached.RiskScore)

	got, err := svc.Get(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, 5.5, got.RiskScore)

	require.NoError(t, svc.Delete(ctx, "T-1"))
	_, err = cacheSvc.GetTransaction(ctx, "T-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

// slowReadRepo holds the first GetByID after its read until resume closes.
type slowReadRepo struct {
	repositories.TransactionRepository
	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func (r *slowReadRepo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := r.TransactionRepository.GetByID(ctx, id)
	r.once.Do(func() {
		close(r.read)
		<-r.resume
	})
	return tx, err
}

func TestService_GetDoesNotCacheRowOlderThanUpdate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cacheSvc := cache.NewCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	store := repositories.NewStore(testutil.NewSQLiteDB(t), cacheSvc)

	svc := transaction.NewService(transaction.Dependencies{
		Store:     store,
		Cache:     cacheSvc,
		Processor: transaction.NewProcessor(transaction.ProcessorConfig{Engine: risk.NewDefaultEngine()}),
	})

	_, err := svc.Create(ctx, testutil.Input("T-1", "2024-03-02", "X", "5000", "rent"))
	require.NoError(t, err)
	require.NoError(t, cacheSvc.InvalidateTransaction(ctx, "T-1"))

	repo := &slowReadRepo{
		TransactionRepository: store.Transactions,
		read:                  make(chan struct{}),
		resume:                make(chan struct{}),
	}
	store.Transactions = repo

	done := make(chan *models.Transaction)
	go func() {
		tx, err := svc.Get(ctx, "T-1")
		assert.NoError(t, err)
		done <- tx
	}()

	<-repo.read
	patched, err := svc.Patch(ctx, "T-1", &models.TransactionPatch{Description: ptr("offshore cash")})
	require.NoError(t, err)
	require.Equal(t, models.Flags{risk.FlagHighRiskKeyword}, patched.Flags)
	close(repo.resume)

	stale := <-done
	require.NotNil(t, stale)
	assert.Empty(t, stale.Flags)

	got, err := svc.Get(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.RiskScore)
	assert.Equal(t, models.Flags{risk.FlagHighRiskKeyword}, got.Flags)
	assert.Equal(t, risk.StatusNormal, got.Status)
}

func TestService_PublishHasDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())

	_, err := f.svc.Create(ctx, testutil.Input("T-1", "2024-03-02", "X", "10", ""))
	require.NoError(t, err)

	f.publisher.AssertCalled(t, "PublishAssessment", mock.MatchedBy(func(c context.Context) bool {
		deadline, ok := c.Deadline()
		return ok && time.Until(deadline) <= transaction.PublishTimeout
	}), mock.Anything)
}

func TestProcessor_Backfill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultConfig())
	for _, id := range []string{"T-1", "T-2"} {
		_, err := f.svc.Create(ctx, testutil.Input(id, "2024-03-02", "ACC-42", "25000", ""))
		require.NoError(t, err)
	}

	cfg := risk.DefaultConfig()
	cfg.RepeatRecipientMin = 2
	engine, err := risk.NewEngine(cfg)
	require.NoError(t, err)
	tracker := recipients.NewMemoryTracker(0)
	processor := transaction.NewProcessor(transaction.ProcessorConfig{Engine: engine, Tracker: tracker})

	next := &models.Transaction{
		ID:        "T-3",
		Date:      time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		ToAccount: "ACC-42",
		Amount:    decimal.RequireFromString("25000"),
	}
	assert.Empty(t, processor.Evaluate(ctx, next).Flags)

	n, err := processor.Backfill(ctx, f.store.Transactions)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := tracker.CountPrior(ctx, "ACC-42", "T-3", next.Date)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{risk.FlagRepeatRecipient}, processor.Evaluate(ctx, next).Flags)
}
