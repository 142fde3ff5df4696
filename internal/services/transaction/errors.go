package transaction

import (
	"errors"

	"amlguard/internal/repositories"
)

// Service errors
var (
	ErrTransactionNotFound  = repositories.ErrTransactionNotFound
	ErrDuplicateTransaction = repositories.ErrDuplicateTransaction
	ErrIDMismatch           = errors.New("transaction id cannot be changed")
)
