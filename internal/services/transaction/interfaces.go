package transaction

import (
	"context"

	"amlguard/internal/models"
	"amlguard/internal/services/risk"
)

// Service stores transactions together with the assessment the rule
// engine produced for their current field values.
type Service interface {
	Create(ctx context.Context, in *models.TransactionInput) (*models.Transaction, error)
	// Update replaces every field of an existing record and re-evaluates it.
	Update(ctx context.Context, id string, in *models.TransactionInput) (*models.Transaction, error)
	// Patch changes the given fields only and re-evaluates the record.
	Patch(ctx context.Context, id string, patch *models.TransactionPatch) (*models.Transaction, error)
	Get(ctx context.Context, id string) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	Summary(ctx context.Context) (*models.StatusSummary, error)
	// Evaluate scores a transaction without storing it.
	Evaluate(ctx context.Context, in *models.TransactionInput) (risk.Assessment, error)
	// Reassess re-runs the engine over every stored record.
	Reassess(ctx context.Context) (*ReassessResult, error)
	Rules() []risk.RuleInfo
}
