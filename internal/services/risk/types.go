package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the coarse triage label derived from a risk score.
type Status string

const (
	StatusNormal     Status = "normal"
	StatusSuspicious Status = "suspicious"
	StatusFlagged    Status = "flagged"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNormal, StatusSuspicious, StatusFlagged:
		return true
	}
	return false
}

// Input is the immutable view of a single transaction the engine scores.
type Input struct {
	ID          string
	Date        time.Time
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Description string

	// RecipientTransfers is the number of earlier transfers to ToAccount
	// inside the tracker window. Zero when no tracker is wired.
	RecipientTransfers int
}

// Assessment is the output of one evaluation.
type Assessment struct {
	RiskScore float64  `json:"risk_score"`
	Flags     []string `json:"flags"`
	Status    Status   `json:"status"`
}

// Rule is one entry of the ordered rule table.
type Rule struct {
	Name    string
	Weight  float64
	Flag    string
	Applies func(in Input) bool
}

// RuleInfo is the serializable description of a rule.
type RuleInfo struct {
	Order  int     `json:"order"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Flag   string  `json:"flag"`
}
