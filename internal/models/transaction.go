package models

import (
	"time"

	"github.com/shopspring/decimal"

	"amlguard/internal/services/risk"
)

// DateLayout is the wire format of transaction dates.
const DateLayout = "2006-01-02"

// Transaction is a stored record together with its latest risk assessment.
type Transaction struct {
	ID          string          `gorm:"primaryKey;size:100"`
	Date        time.Time       `gorm:"type:date;not null;index"`
	FromAccount string          `gorm:"size:200;not null;index"`
	ToAccount   string          `gorm:"size:200;not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Description string          `gorm:"type:text;not null"`
	RiskScore   float64         `gorm:"not null;default:0"`
	Flags       Flags           `gorm:"not null"`
	Status      risk.Status     `gorm:"size:20;not null;default:'normal';index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RiskInput projects the record onto the engine input.
func (t *Transaction) RiskInput() risk.Input {
	return risk.Input{
		ID:          t.ID,
		Date:        t.Date,
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		Amount:      t.Amount,
		Description: t.Description,
	}
}

// ApplyAssessment overwrites the stored assessment.
func (t *Transaction) ApplyAssessment(a risk.Assessment) {
	t.RiskScore = a.RiskScore
	t.Flags = Flags(append([]string{}, a.Flags...))
	t.Status = a.Status
}

// TransactionView is the JSON shape of a transaction.
type TransactionView struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	FromAccount string      `json:"from_account"`
	ToAccount   string      `json:"to_account"`
	Amount      string      `json:"amount"`
	Description string      `json:"description"`
	RiskScore   float64     `json:"risk_score"`
	Flags       Flags       `json:"flags"`
	Status      risk.Status `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// View renders the transaction for API responses.
func (t *Transaction) View() TransactionView {
	return TransactionView{
		ID:          t.ID,
		Date:        t.Date.Format(DateLayout),
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		Amount:      t.Amount.StringFixed(2),
		Description: t.Description,
		RiskScore:   t.RiskScore,
		Flags:       t.Flags,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TransactionInput is the body of create and full update requests.
type TransactionInput struct {
	ID          string           `json:"id" validate:"required,max=100"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	FromAccount string           `json:"from_account" validate:"required,max=200"`
	ToAccount   string           `json:"to_account" validate:"required,max=200"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description *string          `json:"description"`
}

// TransactionPatch is the body of partial update requests.
type TransactionPatch struct {
	Date        *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	FromAccount *string          `json:"from_account" validate:"omitempty,min=1,max=200"`
	ToAccount   *string          `json:"to_account" validate:"omitempty,min=1,max=200"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
}

// TransactionFilter narrows list queries.
type TransactionFilter struct {
	Status risk.Status
	Search string
	Limit  int
	Offset int
}

// StatusSummary aggregates stored assessments for the dashboard.
type StatusSummary struct {
	Total            int64                 `json:"total"`
	ByStatus         map[risk.Status]int64 `json:"by_status"`
	AverageRiskScore float64               `json:"average_risk_score"`
}
