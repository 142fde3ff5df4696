// Package recipients keeps rolling per-recipient transfer counts that feed
// the repeat-recipient rule.
package recipients

import (
	"context"
	"time"
)

// DefaultWindow is how far back prior transfers are counted.
const DefaultWindow = 30 * 24 * time.Hour

// Tracker records transfers per destination account.
type Tracker interface {
	// Record registers txID as a transfer to account on date. Recording the
	// same txID again moves it to the new date.
	Record(ctx context.Context, account, txID string, date time.Time) error
	// CountPrior counts transfers to account dated within the window ending
	// on date, excluding txID itself.
	CountPrior(ctx context.Context, account, txID string, date time.Time) (int, error)
	Forget(ctx context.Context, account, txID string) error
	// Reset drops every tracked account.
	Reset(ctx context.Context) error
}

func unixDay(t time.Time) int64 {
	return t.UTC().Unix() / int64(24*time.Hour/time.Second)
}

func windowDays(window time.Duration) int64 {
	days := int64(window / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

// Noop never counts anything.
type Noop struct{}

func (Noop) Record(context.Context, string, string, time.Time) error { return nil }

func (Noop) CountPrior(context.Context, string, string, time.Time) (int, error) { return 0, nil }

func (Noop) Forget(context.Context, string, string) error { return nil }

func (Noop) Reset(context.Context) error { return nil }
