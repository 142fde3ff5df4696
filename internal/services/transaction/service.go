package transaction

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"amlguard/internal/events"
	"amlguard/internal/metrics"
	"amlguard/internal/models"
	"amlguard/internal/repositories"
	"amlguard/internal/repositories/cache"
	"amlguard/internal/services/alert"
	"amlguard/internal/services/risk"
	"amlguard/internal/validation"
)

// Dependencies wires a Service. Store and Processor are required; the
// rest fall back to no-ops.
type Dependencies struct {
	Store     *repositories.Store
	Cache     *cache.CacheService
	Processor *Processor
	Publisher events.Publisher
	Notifier  events.Notifier
	Metrics   metrics.Collector
}

type service struct {
	store     *repositories.Store
	cache     *cache.CacheService
	processor *Processor
	publisher events.Publisher
	notifier  events.Notifier
	metrics   metrics.Collector
}

// NewService creates a new transaction service
func NewService(deps Dependencies) Service {
	if deps.Store == nil {
		panic("store is required")
	}
	if deps.Processor == nil {
		panic("processor is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Notifier == nil {
		deps.Notifier = events.LogNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}

	return &service{
		store:     deps.Store,
		cache:     deps.Cache,
		processor: deps.Processor,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
	}
}

func (s *service) Create(ctx context.Context, in *models.TransactionInput) (*models.Transaction, error) {
	v := validation.New()
	v.Transaction(in)
	if err := v.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	tx := fromInput(in)
	s.processor.Assess(ctx, tx)

	var raised *models.Alert
	err := s.store.InTx(ctx, func(st *repositories.Store) error {
		if err := st.Transactions.Create(ctx, tx); err != nil {
			return err
		}
		var err error
		raised, err = alert.Sync(ctx, st.Alerts, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.processor.Track(ctx, tx, "")
	s.refresh(ctx, tx)
	s.afterWrite(ctx, events.AssessmentCreated, tx, raised, start)
	return tx, nil
}

func (s *service) Update(ctx context.Context, id string, in *models.TransactionInput) (*models.Transaction, error) {
	if in.ID == "" {
		in.ID = id
	}
	v := validation.New()
	v.Transaction(in)
	v.Check(in.ID == id, "id", ErrIDMismatch.Error())
	if err := v.Err(); err != nil {
		return nil, err
	}

	replacement := fromInput(in)
	return s.modify(ctx, id, func(tx *models.Transaction) {
		tx.Date = replacement.Date
		tx.FromAccount = replacement.FromAccount
		tx.ToAccount = replacement.ToAccount
		tx.Amount = replacement.Amount
		tx.Description = replacement.Description
	})
}

func (s *service) Patch(ctx context.Context, id string, patch *models.TransactionPatch) (*models.Transaction, error) {
	v := validation.New()
	v.TransactionPatch(patch)
	if err := v.Err(); err != nil {
		return nil, err
	}

	return s.modify(ctx, id, func(tx *models.Transaction) {
		if patch.Date != nil {
			tx.Date, _ = time.Parse(models.DateLayout, *patch.Date)
		}
		if patch.FromAccount != nil {
			tx.FromAccount = *patch.FromAccount
		}
		if patch.ToAccount != nil {
			tx.ToAccount = *patch.ToAccount
		}
		if patch.Amount != nil {
			tx.Amount = *patch.Amount
		}
		if patch.Description != nil {
			tx.Description = *patch.Description
		}
	})
}

// modify applies change to the locked row and recomputes its assessment
// from scratch before saving.
func (s *service) modify(ctx context.Context, id string, change func(*models.Transaction)) (*models.Transaction, error) {
	start := time.Now()

	var (
		updated    *models.Transaction
		previousTo string
		raised     *models.Alert
	)
	err := s.store.InTx(ctx, func(st *repositories.Store) error {
		tx, err := st.Transactions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previousTo = tx.ToAccount

		change(tx)
		s.processor.Assess(ctx, tx)

		if err := st.Transactions.Save(ctx, tx); err != nil {
			return err
		}
		raised, err = alert.Sync(ctx, st.Alerts, tx)
		if err != nil {
			return err
		}
		updated = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.processor.Track(ctx, updated, previousTo)
	s.refresh(ctx, updated)
	s.afterWrite(ctx, events.AssessmentUpdated, updated, raised, start)
	return updated, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Transaction, error) {
	if s.cache != nil {
		if tx, err := s.cache.GetTransaction(ctx, id); err == nil {
			return tx, nil
		}
	}

	tx, err := s.store.Transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.FillTransaction(ctx, tx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("transaction_id", id).Msg("failed to cache transaction")
		}
	}
	return tx, nil
}

func (s *service) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, validation.Errors{"status": "must be one of: normal, suspicious, flagged"}
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.Transactions.List(ctx, filter)
}

func (s *service) Delete(ctx context.Context, id string) error {
	var deleted *models.Transaction
	err := s.store.InTx(ctx, func(st *repositories.Store) error {
		tx, err := st.Transactions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := st.Transactions.Delete(ctx, id); err != nil {
			return err
		}
		deleted = tx
		return st.Alerts.DeleteByTransactionID(ctx, id)
	})
	if err != nil {
		return err
	}

	s.processor.Forget(ctx, deleted)
	s.invalidate(ctx, id)
	log.Ctx(ctx).Info().Str("transaction_id", id).Msg("transaction deleted")
	return nil
}

func (s *service) DeleteAll(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(st *repositories.Store) error {
		var err error
		if n, err = st.Transactions.DeleteAll(ctx); err != nil {
			return err
		}
		return st.Alerts.DeleteAll(ctx)
	})
	if err != nil {
		return 0, err
	}

	s.processor.Reset(ctx)
	if s.cache != nil {
		if err := s.cache.InvalidateAllTransactions(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to invalidate transaction cache")
		}
	}
	log.Ctx(ctx).Info().Int64("deleted", n).Msg("all transactions deleted")
	return n, nil
}

func (s *service) Summary(ctx context.Context) (*models.StatusSummary, error) {
	return s.store.Transactions.Summary(ctx)
}

func (s *service) Evaluate(ctx context.Context, in *models.TransactionInput) (risk.Assessment, error) {
	if in.ID == "" {
		in.ID = "dry-run"
	}
	v := validation.New()
	v.Transaction(in)
	if err := v.Err(); err != nil {
		return risk.Assessment{}, err
	}
	return s.processor.Evaluate(ctx, fromInput(in)), nil
}

func (s *service) Reassess(ctx context.Context) (*ReassessResult, error) {
	result := &ReassessResult{
		ByStatus: map[risk.Status]int{
			risk.StatusNormal:     0,
			risk.StatusSuspicious: 0,
			risk.StatusFlagged:    0,
		},
	}

	err := s.store.Transactions.FindInBatches(ctx, ReassessBatch, func(batch []models.Transaction) error {
		for _, row := range batch {
			changed, status, err := s.reassessOne(ctx, row.ID)
			if errors.Is(err, ErrTransactionNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("reassess %s: %w", row.ID, err)
			}
			result.Processed++
			result.ByStatus[status]++
			if changed {
				result.Changed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Int("processed", result.Processed).
		Int("changed", result.Changed).
		Msg("reassessment finished")
	return result, nil
}

func (s *service) reassessOne(ctx context.Context, id string) (bool, risk.Status, error) {
	start := time.Now()

	var (
		tx      *models.Transaction
		changed bool
		raised  *models.Alert
	)
	err := s.store.InTx(ctx, func(st *repositories.Store) error {
		var err error
		tx, err = st.Transactions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		before := *tx
		s.processor.Assess(ctx, tx)
		changed = before.RiskScore != tx.RiskScore ||
			before.Status != tx.Status ||
			!slices.Equal(before.Flags, tx.Flags)
		if !changed {
			return nil
		}

		if err := st.Transactions.Save(ctx, tx); err != nil {
			return err
		}
		raised, err = alert.Sync(ctx, st.Alerts, tx)
		return err
	})
	if err != nil {
		return false, "", err
	}

	if changed {
		s.refresh(ctx, tx)
		s.afterWrite(ctx, events.AssessmentReassessed, tx, raised, start)
	}
	return changed, tx.Status, nil
}

func (s *service) Rules() []risk.RuleInfo {
	return s.processor.Rules()
}

// afterWrite runs the side effects of a committed assessment. None of
// them fail the request.
func (s *service) afterWrite(ctx context.Context, eventType string, tx *models.Transaction, raised *models.Alert, start time.Time) {
	s.metrics.ObserveEvaluation(tx.Status, tx.Flags, time.Since(start))

	pubCtx, cancel := context.WithTimeout(ctx, PublishTimeout)
	err := s.publisher.PublishAssessment(pubCtx, events.NewAssessmentEvent(eventType, tx))
	cancel()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("transaction_id", tx.ID).Msg("failed to publish assessment")
	}

	if raised != nil {
		s.metrics.ObserveAlert(raised.Status)
		if err := s.notifier.NotifyAlert(ctx, raised); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("transaction_id", tx.ID).Msg("failed to send alert notification")
		}
	}

	log.Ctx(ctx).Info().
		Str("transaction_id", tx.ID).
		Str("event", eventType).
		Float64("risk_score", tx.RiskScore).
		Str("status", string(tx.Status)).
		Msg("transaction assessed")
}

// refresh writes a committed row to the cache. Reads only fill empty
// keys, so a read that raced this write cannot put the older row back.
func (s *service) refresh(ctx context.Context, tx *models.Transaction) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheTransaction(ctx, tx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("transaction_id", tx.ID).Msg("failed to cache transaction")
		s.invalidate(ctx, tx.ID)
	}
}

func (s *service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTransaction(ctx, id); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("transaction_id", id).Msg("failed to invalidate transaction cache")
	}
}

// fromInput builds an unassessed record from a validated body.
func fromInput(in *models.TransactionInput) *models.Transaction {
	date, _ := time.Parse(models.DateLayout, in.Date)
	description := ""
	if in.Description != nil {
		description = *in.Description
	}
	return &models.Transaction{
		ID:          in.ID,
		Date:        date,
		FromAccount: in.FromAccount,
		ToAccount:   in.ToAccount,
		Amount:      *in.Amount,
		Description: description,
		Flags:       models.Flags{},
		Status:      risk.StatusNormal,
	}
}
