// Package events fans assessment results out to downstream consumers:
// a Kafka topic for every assessment and a chat notifier for new alerts.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"amlguard/internal/models"
	"amlguard/internal/services/risk"
)

// Event types.
const (
	AssessmentCreated    = "assessment.created"
	AssessmentUpdated    = "assessment.updated"
	AssessmentReassessed = "assessment.reassessed"
)

// AssessmentEvent is the JSON payload published per evaluation.
type AssessmentEvent struct {
	EventID       string      `json:"event_id"`
	Type          string      `json:"type"`
	TransactionID string      `json:"transaction_id"`
	ToAccount     string      `json:"to_account"`
	Amount        string      `json:"amount"`
	RiskScore     float64     `json:"risk_score"`
	Flags         []string    `json:"flags"`
	Status        risk.Status `json:"status"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// NewAssessmentEvent snapshots tx after evaluation.
func NewAssessmentEvent(eventType string, tx *models.Transaction) AssessmentEvent {
	flags := []string(tx.Flags)
	if flags == nil {
		flags = []string{}
	}
	return AssessmentEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		TransactionID: tx.ID,
		ToAccount:     tx.ToAccount,
		Amount:        tx.Amount.StringFixed(2),
		RiskScore:     tx.RiskScore,
		Flags:         flags,
		Status:        tx.Status,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher ships assessment events.
type Publisher interface {
	PublishAssessment(ctx context.Context, event AssessmentEvent) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishAssessment(context.Context, AssessmentEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
