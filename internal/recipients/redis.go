package recipients

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "recipient:transfers:"

var _ Tracker = (*RedisTracker)(nil)

// RedisTracker stores one sorted set per account: member is the
// transaction id, score is the unix day of the transfer.
type RedisTracker struct {
	client redis.Cmdable
	window time.Duration
}

func NewRedisTracker(client redis.Cmdable, window time.Duration) *RedisTracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisTracker{client: client, window: window}
}

func key(account string) string {
	return keyPrefix + account
}

func (t *RedisTracker) Record(ctx context.Context, account, txID string, date time.Time) error {
	err := t.client.ZAdd(ctx, key(account), redis.Z{
		Score:  float64(unixDay(date)),
		Member: txID,
	}).Err()
	if err != nil {
		return fmt.Errorf("record transfer to %s: %w", account, err)
	}
	return nil
}

func (t *RedisTracker) CountPrior(ctx context.Context, account, txID string, date time.Time) (int, error) {
	end := unixDay(date)
	start := end - windowDays(t.window)

	members, err := t.client.ZRangeByScore(ctx, key(account), &redis.ZRangeBy{
		Min: strconv.FormatInt(start, 10),
		Max: strconv.FormatInt(end, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("count transfers to %s: %w", account, err)
	}

	n := 0
	for _, m := range members {
		if m != txID {
			n++
		}
	}
	return n, nil
}

func (t *RedisTracker) Forget(ctx context.Context, account, txID string) error {
	if err := t.client.ZRem(ctx, key(account), txID).Err(); err != nil {
		return fmt.Errorf("forget transfer to %s: %w", account, err)
	}
	return nil
}

func (t *RedisTracker) Reset(ctx context.Context) error {
	iter := t.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return t.client.Del(ctx, keys...).Err()
}
