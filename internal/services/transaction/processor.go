package transaction

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"amlguard/internal/models"
	"amlguard/internal/recipients"
	"amlguard/internal/repositories"
	"amlguard/internal/services/risk"
)

type ProcessorConfig struct {
	Engine  *risk.Engine
	Tracker recipients.Tracker
}

// Processor runs the rule engine for one record, supplying the
// recipient history feature when the engine uses it.
type Processor struct {
	engine  *risk.Engine
	tracker recipients.Tracker
}

func NewProcessor(config ProcessorConfig) *Processor {
	if config.Engine == nil {
		panic("engine is required")
	}
	if config.Tracker == nil {
		config.Tracker = recipients.Noop{}
	}

	return &Processor{
		engine:  config.Engine,
		tracker: config.Tracker,
	}
}

// Assess evaluates tx and overwrites its stored assessment.
func (p *Processor) Assess(ctx context.Context, tx *models.Transaction) risk.Assessment {
	a := p.Evaluate(ctx, tx)
	tx.ApplyAssessment(a)
	return a
}

// Evaluate scores tx without touching it.
func (p *Processor) Evaluate(ctx context.Context, tx *models.Transaction) risk.Assessment {
	in := tx.RiskInput()
	if p.engine.Config().RepeatRecipientMin > 0 {
		n, err := p.tracker.CountPrior(ctx, tx.ToAccount, tx.ID, tx.Date)
		if err != nil {
			// the rule then falls back to the watch list alone
			log.Ctx(ctx).Warn().Err(err).Str("to_account", tx.ToAccount).Msg("recipient history unavailable")
		}
		in.RecipientTransfers = n
	}
	return p.engine.Evaluate(in)
}

// Track records tx in the recipient history, dropping its previous
// recipient when the record moved.
func (p *Processor) Track(ctx context.Context, tx *models.Transaction, previousTo string) {
	if previousTo != "" && previousTo != tx.ToAccount {
		if err := p.tracker.Forget(ctx, previousTo, tx.ID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("transaction_id", tx.ID).Msg("failed to forget recipient transfer")
		}
	}
	if err := p.tracker.Record(ctx, tx.ToAccount, tx.ID, tx.Date); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("transaction_id", tx.ID).Msg("failed to record recipient transfer")
	}
}

// Backfill records every stored transaction in the recipient history.
// A process-local tracker starts empty, so it is rebuilt from the store
// before the first request.
func (p *Processor) Backfill(ctx context.Context, repo repositories.TransactionRepository) (int, error) {
	n := 0
	err := repo.FindInBatches(ctx, ReassessBatch, func(batch []models.Transaction) error {
		for i := range batch {
			tx := &batch[i]
			if err := p.tracker.Record(ctx, tx.ToAccount, tx.ID, tx.Date); err != nil {
				return fmt.Errorf("record %s: %w", tx.ID, err)
			}
			n++
		}
		return nil
	})
	return n, err
}

func (p *Processor) Forget(ctx context.Context, tx *models.Transaction) {
	if err := p.tracker.Forget(ctx, tx.ToAccount, tx.ID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("transaction_id", tx.ID).Msg("failed to forget recipient transfer")
	}
}

func (p *Processor) Reset(ctx context.Context) {
	if err := p.tracker.Reset(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to reset recipient history")
	}
}

func (p *Processor) Rules() []risk.RuleInfo {
	return p.engine.Rules()
}
