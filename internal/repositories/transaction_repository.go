package repositories

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"amlguard/internal/models"
	"amlguard/internal/services/risk"
)

// TransactionRepository persists transactions and their assessments.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	// GetForUpdate loads a row and locks it until the surrounding DB
	// transaction ends. Dialects without row locks ignore the lock.
	GetForUpdate(ctx context.Context, id string) (*models.Transaction, error)
	Save(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error)
	Summary(ctx context.Context) (*models.StatusSummary, error)
	FindInBatches(ctx context.Context, size int, fn func(batch []models.Transaction) error) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new instance of TransactionRepository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.ID)
		}
		return fmt.Errorf("%w: create transaction: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *transactionRepository) GetForUpdate(ctx context.Context, id string) (*models.Transaction, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *transactionRepository) get(db *gorm.DB, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Where("id = ?", id).First(&tx).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		return nil, fmt.Errorf("%w: get transaction: %v", ErrDatabaseOperation, err)
	}
	return &tx, nil
}

func (r *transactionRepository) Save(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Save(tx).Error; err != nil {
		return fmt.Errorf("%w: save transaction: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Transaction{})
	if result.Error != nil {
		return fmt.Errorf("%w: delete transaction: %v", ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return nil
}

func (r *transactionRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Transaction{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: delete all transactions: %v", ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *transactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(id) LIKE ? OR LOWER(from_account) LIKE ? OR LOWER(to_account) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count transactions: %v", ErrDatabaseOperation, err)
	}

	var transactions []models.Transaction
	q := query.Order("date DESC").Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: list transactions: %v", ErrDatabaseOperation, err)
	}
	return transactions, total, nil
}

func (r *transactionRepository) Summary(ctx context.Context) (*models.StatusSummary, error) {
	type row struct {
		Status risk.Status
		Count  int64
		Total  float64
	}
	var rows []row

	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(risk_score), 0) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: summarize transactions: %v", ErrDatabaseOperation, err)
	}

	summary := &models.StatusSummary{
		ByStatus: map[risk.Status]int64{
			risk.StatusNormal:     0,
			risk.StatusSuspicious: 0,
			risk.StatusFlagged:    0,
		},
	}
	var scoreTotal float64
	for _, r := range rows {
		summary.ByStatus[r.Status] += r.Count
		summary.Total += r.Count
		scoreTotal += r.Total
	}
	if summary.Total > 0 {
		summary.AverageRiskScore = scoreTotal / float64(summary.Total)
	}
	return summary, nil
}

func (r *transactionRepository) FindInBatches(ctx context.Context, size int, fn func(batch []models.Transaction) error) error {
	var batch []models.Transaction
	result := r.db.WithContext(ctx).Order("id ASC").FindInBatches(&batch, size, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	if result.Error != nil {
		return fmt.Errorf("iterate transactions: %w", result.Error)
	}
	return nil
}
