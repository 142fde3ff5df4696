package recipients

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
}

func trackers(t *testing.T) map[string]Tracker {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	window := 10 * 24 * time.Hour
	return map[string]Tracker{
		"memory": NewMemoryTracker(window),
		"redis":  NewRedisTracker(client, window),
	}
}

func TestTracker_CountPrior(t *testing.T) {
	ctx := context.Background()
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tr.Record(ctx, "ACC-1", "T-1", day(2)))
			require.NoError(t, tr.Record(ctx, "ACC-1", "T-2", day(8)))
			require.NoError(t, tr.Record(ctx, "ACC-1", "T-3", day(12)))
			require.NoError(t, tr.Record(ctx, "ACC-2", "T-4", day(12)))

			n, err := tr.CountPrior(ctx, "ACC-1", "T-3", day(12))
			require.NoError(t, err)
			assert.Equal(t, 2, n, "window includes day 2 through 12, excluding self")

			n, err = tr.CountPrior(ctx, "ACC-1", "T-9", day(20))
			require.NoError(t, err)
			assert.Equal(t, 1, n, "only day 12 is inside the window ending day 20")

			n, err = tr.CountPrior(ctx, "ACC-3", "T-9", day(12))
			require.NoError(t, err)
			assert.Zero(t, n)

			// future transfers are not prior
			n, err = tr.CountPrior(ctx, "ACC-1", "T-9", day(7))
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestTracker_RecordMovesAndForget(t *testing.T) {
	ctx := context.Background()
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tr.Record(ctx, "ACC-1", "T-1", day(1)))
			require.NoError(t, tr.Record(ctx, "ACC-1", "T-1", day(30)))

			n, err := tr.CountPrior(ctx, "ACC-1", "T-2", day(5))
			require.NoError(t, err)
			assert.Zero(t, n)

			n, err = tr.CountPrior(ctx, "ACC-1", "T-2", day(30))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, tr.Forget(ctx, "ACC-1", "T-1"))
			n, err = tr.CountPrior(ctx, "ACC-1", "T-2", day(30))
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, tr.Record(ctx, "ACC-1", "T-5", day(30)))
			require.NoError(t, tr.Reset(ctx))
			n, err = tr.CountPrior(ctx, "ACC-1", "T-2", day(30))
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestMemoryTracker_Concurrent(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = tr.Record(ctx, "ACC-1", string(rune('a'+i%26))+string(rune('A'+i/26)), day(1))
			_, _ = tr.CountPrior(ctx, "ACC-1", "x", day(1))
		}(i)
	}
	wg.Wait()

	n, err := tr.CountPrior(ctx, "ACC-1", "x", day(1))
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestNoop(t *testing.T) {
	var tr Tracker = Noop{}
	require.NoError(t, tr.Record(context.Background(), "a", "b", day(1)))
	n, err := tr.CountPrior(context.Background(), "a", "c", day(1))
	require.NoError(t, err)
	assert.Zero(t, n)
}
