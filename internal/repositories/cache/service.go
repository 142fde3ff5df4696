// Package cache is a JSON-over-Redis read-through cache for users and
// transactions.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"amlguard/internal/models"
)

var ErrCacheMiss = errors.New("cache miss")

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// SetIfAbsent stores value only when key holds nothing yet and reports
// whether it was written.
func (s *CacheService) SetIfAbsent(ctx context.Context, key string, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.SetNX(ctx, key, data, s.ttl).Result()
}

// Get decodes key into dest and reports whether it was present.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// DeletePattern removes every key matching pattern.
func (s *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return s.Delete(ctx, keys...)
}

// User caching
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	return s.Set(ctx, GenerateKey(EntityUser, KeyID, user.ID), user)
}

func (s *CacheService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	found, err := s.Get(ctx, GenerateKey(EntityUser, KeyID, userID), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCacheMiss
	}
	return &user, nil
}

func (s *CacheService) InvalidateUser(ctx context.Context, userID uint) error {
	return s.Delete(ctx, GenerateKey(EntityUser, KeyID, userID))
}

// Transaction caching
func (s *CacheService) CacheTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return errors.New("cannot cache nil transaction")
	}
	return s.Set(ctx, GenerateKey(EntityTransaction, KeyID, tx.ID), tx)
}

// FillTransaction caches a row read from the store unless a writer has
// already cached a newer one.
func (s *CacheService) FillTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return errors.New("cannot cache nil transaction")
	}
	_, err := s.SetIfAbsent(ctx, GenerateKey(EntityTransaction, KeyID, tx.ID), tx)
	return err
}

func (s *CacheService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	found, err := s.Get(ctx, GenerateKey(EntityTransaction, KeyID, id), &tx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCacheMiss
	}
	return &tx, nil
}

func (s *CacheService) InvalidateTransaction(ctx context.Context, id string) error {
	return s.Delete(ctx, GenerateKey(EntityTransaction, KeyID, id))
}

func (s *CacheService) InvalidateAllTransactions(ctx context.Context) error {
	return s.DeletePattern(ctx, KeyPattern(EntityTransaction, KeyID))
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
