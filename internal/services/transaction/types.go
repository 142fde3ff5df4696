package transaction

import (
	"amlguard/internal/services/risk"
)

// ReassessResult reports a bulk re-evaluation.
type ReassessResult struct {
	Processed int                 `json:"processed"`
	Changed   int                 `json:"changed"`
	ByStatus  map[risk.Status]int `json:"by_status"`
}
