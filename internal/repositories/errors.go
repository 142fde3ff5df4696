package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username or email already taken")
	ErrAlertNotFound        = errors.New("alert not found")
	ErrDatabaseOperation    = errors.New("database operation failed")
)

const pgUniqueViolation = "23505"

// isDuplicate reports unique-constraint violations from any dialect.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
