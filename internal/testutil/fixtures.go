package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"amlguard/internal/models"
	"amlguard/internal/services/risk"
)

// Day returns midnight UTC of the given day in March 2024.
func Day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

// Transaction builds an unassessed record.
func Transaction(id string, day int, to, amount, description string) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		Date:        Day(day),
		FromAccount: "ACC-100",
		ToAccount:   to,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		Flags:       models.Flags{},
		Status:      risk.StatusNormal,
	}
}

// Input builds a create request body.
func Input(id, date, to, amount, description string) *models.TransactionInput {
	a := decimal.RequireFromString(amount)
	return &models.TransactionInput{
		ID:          id,
		Date:        date,
		FromAccount: "ACC-100",
		ToAccount:   to,
		Amount:      &a,
		Description: &description,
	}
}
