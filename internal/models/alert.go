package models

import "time"

// Alert lifecycle states.
const (
	AlertActive        = "active"
	AlertInvestigating = "investigating"
	AlertResolved      = "resolved"
)

// Alert tracks analyst follow-up on a flagged transaction.
type Alert struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TransactionID string    `gorm:"uniqueIndex;size:100;not null" json:"transaction_id"`
	RiskScore     float64   `gorm:"not null" json:"risk_score"`
	Flags         Flags     `gorm:"not null" json:"flags"`
	Status        string    `gorm:"size:20;not null;default:'active';index" json:"status"`
	Assignee      string    `gorm:"size:150" json:"assignee,omitempty"`
	Note          string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AlertTransitionInput is the body of an alert status change.
type AlertTransitionInput struct {
	Status string `json:"status" validate:"required,oneof=active investigating resolved"`
	Note   string `json:"note" validate:"max=2000"`
}
