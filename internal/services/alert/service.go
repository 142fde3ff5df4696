// Package alert manages the analyst follow-up of flagged transactions.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"amlguard/internal/metrics"
	"amlguard/internal/models"
	"amlguard/internal/repositories"
	"amlguard/internal/services/risk"
	"amlguard/internal/validation"
)

var (
	ErrAlertNotFound     = repositories.ErrAlertNotFound
	ErrInvalidTransition = errors.New("invalid alert transition")
)

var transitions = map[string][]string{
	models.AlertActive:        {models.AlertInvestigating},
	models.AlertInvestigating: {models.AlertResolved, models.AlertActive},
}

// CanTransition reports whether an analyst may move an alert from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sync reconciles the alert of tx with its latest assessment. A flagged
// transaction gets an active alert, reopening a resolved one; an active
// alert is resolved once the transaction stops being flagged. The alert is
// returned when it was raised or reopened by this call.
func Sync(ctx context.Context, repo repositories.AlertRepository, tx *models.Transaction) (*models.Alert, error) {
	existing, err := repo.GetByTransactionID(ctx, tx.ID)
	if err != nil && !errors.Is(err, repositories.ErrAlertNotFound) {
		return nil, err
	}

	flagged := tx.Status == risk.StatusFlagged
	if existing == nil {
		if !flagged {
			return nil, nil
		}
		alert := &models.Alert{
			TransactionID: tx.ID,
			RiskScore:     tx.RiskScore,
			Flags:         append(models.Flags{}, tx.Flags...),
			Status:        models.AlertActive,
		}
		if err := repo.Create(ctx, alert); err != nil {
			return nil, err
		}
		return alert, nil
	}

	existing.RiskScore = tx.RiskScore
	existing.Flags = append(models.Flags{}, tx.Flags...)

	var raised bool
	switch {
	case flagged && existing.Status == models.AlertResolved:
		existing.Status = models.AlertActive
		existing.Note = "reopened: transaction flagged again"
		raised = true
	case !flagged && existing.Status == models.AlertActive:
		existing.Status = models.AlertResolved
		existing.Note = fmt.Sprintf("auto-resolved: status is now %s", tx.Status)
	}

	if err := repo.Save(ctx, existing); err != nil {
		return nil, err
	}
	if raised {
		return existing, nil
	}
	return nil, nil
}

type Service struct {
	store   *repositories.Store
	metrics metrics.Collector
}

func NewService(store *repositories.Store, m metrics.Collector) *Service {
	if store == nil {
		panic("store is required")
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Service{store: store, metrics: m}
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]models.Alert, int64, error) {
	switch status {
	case "", models.AlertActive, models.AlertInvestigating, models.AlertResolved:
	default:
		return nil, 0, validation.Errors{"status": "must be one of: active, investigating, resolved"}
	}
	return s.store.Alerts.List(ctx, status, limit, offset)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Alert, error) {
	return s.store.Alerts.GetByID(ctx, id)
}

// Transition moves an alert along its lifecycle on behalf of actor.
func (s *Service) Transition(ctx context.Context, id uint, in *models.AlertTransitionInput, actor string) (*models.Alert, error) {
	v := validation.New()
	v.Struct(in)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var updated *models.Alert
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		alert, err := tx.Alerts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(alert.Status, in.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, alert.Status, in.Status)
		}

		alert.Status = in.Status
		if in.Status == models.AlertInvestigating {
			alert.Assignee = actor
		}
		if in.Note != "" {
			alert.Note = in.Note
		}
		if err := tx.Alerts.Save(ctx, alert); err != nil {
			return err
		}
		updated = alert
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveAlert(updated.Status)
	log.Ctx(ctx).Info().
		Uint("alert_id", updated.ID).
		Str("transaction_id", updated.TransactionID).
		Str("status", updated.Status).
		Str("actor", actor).
		Msg("alert transitioned")
	return updated, nil
}
