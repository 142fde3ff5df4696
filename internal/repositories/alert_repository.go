package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"amlguard/internal/models"
)

// AlertRepository persists analyst alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uint) (*models.Alert, error)
	// GetByTransactionID returns ErrAlertNotFound when the transaction has none.
	GetByTransactionID(ctx context.Context, txID string) (*models.Alert, error)
	Save(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, status string, limit, offset int) ([]models.Alert, int64, error)
	DeleteByTransactionID(ctx context.Context, txID string) error
	DeleteAll(ctx context.Context) error
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("%w: create alert: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *alertRepository) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("%w: get alert: %v", ErrDatabaseOperation, err)
	}
	return &alert, nil
}

func (r *alertRepository) GetByTransactionID(ctx context.Context, txID string) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", txID).First(&alert).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("%w: get alert: %v", ErrDatabaseOperation, err)
	}
	return &alert, nil
}

func (r *alertRepository) Save(ctx context.Context, alert *models.Alert) error {
	if err := r.db.WithContext(ctx).Save(alert).Error; err != nil {
		return fmt.Errorf("%w: save alert: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *alertRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Alert, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Alert{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count alerts: %v", ErrDatabaseOperation, err)
	}

	var alerts []models.Alert
	q := query.Order("risk_score DESC").Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: list alerts: %v", ErrDatabaseOperation, err)
	}
	return alerts, total, nil
}

func (r *alertRepository) DeleteByTransactionID(ctx context.Context, txID string) error {
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", txID).Delete(&models.Alert{}).Error; err != nil {
		return fmt.Errorf("%w: delete alert: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *alertRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Alert{}).Error
	if err != nil {
		return fmt.Errorf("%w: delete all alerts: %v", ErrDatabaseOperation, err)
	}
	return nil
}
