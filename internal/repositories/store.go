package repositories

import (
	"context"

	"gorm.io/gorm"

	"amlguard/internal/repositories/cache"
)

// Store bundles the repositories sharing one connection or DB transaction.
type Store struct {
	db    *gorm.DB
	cache *cache.CacheService

	Transactions TransactionRepository
	Users        UserRepository
	Alerts       AlertRepository
}

// NewStore wires repositories over db. cache may be nil.
func NewStore(db *gorm.DB, cache *cache.CacheService) *Store {
	return &Store{
		db:           db,
		cache:        cache,
		Transactions: NewTransactionRepository(db),
		Users:        NewUserRepository(db, cache),
		Alerts:       NewAlertRepository(db),
	}
}

// InTx runs fn inside a DB transaction with repositories bound to it.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.cache))
	})
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}
