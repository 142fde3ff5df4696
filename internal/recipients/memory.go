package recipients

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker is the in-process Tracker used when Redis is not configured.
type MemoryTracker struct {
	mu       sync.RWMutex
	window   time.Duration
	accounts map[string]map[string]int64
}

func NewMemoryTracker(window time.Duration) *MemoryTracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryTracker{
		window:   window,
		accounts: make(map[string]map[string]int64),
	}
}

func (t *MemoryTracker) Record(_ context.Context, account, txID string, date time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	transfers, ok := t.accounts[account]
	if !ok {
		transfers = make(map[string]int64)
		t.accounts[account] = transfers
	}
	transfers[txID] = unixDay(date)
	return nil
}

func (t *MemoryTracker) CountPrior(_ context.Context, account, txID string, date time.Time) (int, error) {
	end := unixDay(date)
	start := end - windowDays(t.window)

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for id, day := range t.accounts[account] {
		if id != txID && day >= start && day <= end {
			n++
		}
	}
	return n, nil
}

func (t *MemoryTracker) Forget(_ context.Context, account, txID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if transfers, ok := t.accounts[account]; ok {
		delete(transfers, txID)
		if len(transfers) == 0 {
			delete(t.accounts, account)
		}
	}
	return nil
}

func (t *MemoryTracker) Reset(context.Context) error {
	t.mu.Lock()
	t.accounts = make(map[string]map[string]int64)
	t.mu.Unlock()
	return nil
}
