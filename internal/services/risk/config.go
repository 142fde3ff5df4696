package risk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid risk config")

// Config holds every threshold, weight and list the rule table is built from.
type Config struct {
	LargeAmount       decimal.Decimal
	LargeAmountWeight float64

	RepeatRecipientAmount decimal.Decimal
	RepeatRecipientWeight float64
	WatchedRecipients     []string
	// RepeatRecipientMin enables the tracker-backed variant of the
	// repeat-recipient rule. Zero disables it.
	RepeatRecipientMin int

	UnusualTimingAmount decimal.Decimal
	UnusualTimingWeight float64

	Keywords      []string
	KeywordWeight float64

	SuspiciousAt float64
	FlaggedAt    float64
}

// DefaultConfig returns the production rule constants.
func DefaultConfig() Config {
	return Config{
		LargeAmount:       decimal.NewFromInt(50000),
		LargeAmountWeight: 3.0,

		RepeatRecipientAmount: decimal.NewFromInt(20000),
		RepeatRecipientWeight: 2.0,
		WatchedRecipients:     []string{SentinelRecipient},

		UnusualTimingAmount: decimal.NewFromInt(10000),
		UnusualTimingWeight: 1.5,

		Keywords:      append([]string(nil), DefaultKeywords...),
		KeywordWeight: 2.5,

		SuspiciousAt: 4.0,
		FlaggedAt:    7.0,
	}
}

// Validate checks the config for values that would break the score bands.
func (c Config) Validate() error {
	weights := map[string]float64{
		RuleLargeAmount:     c.LargeAmountWeight,
		RuleRepeatRecipient: c.RepeatRecipientWeight,
		RuleUnusualTiming:   c.UnusualTimingWeight,
		RuleHighRiskKeyword: c.KeywordWeight,
	}
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidConfig, name)
		}
	}
	if c.SuspiciousAt <= MinScore || c.SuspiciousAt > c.FlaggedAt || c.FlaggedAt > MaxScore {
		return fmt.Errorf("%w: thresholds must satisfy 0 < suspicious (%.2f) <= flagged (%.2f) <= %.0f",
			ErrInvalidConfig, c.SuspiciousAt, c.FlaggedAt, MaxScore)
	}
	if c.RepeatRecipientMin < 0 {
		return fmt.Errorf("%w: repeat recipient minimum must not be negative", ErrInvalidConfig)
	}
	for _, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: empty keyword", ErrInvalidConfig)
		}
	}
	return nil
}
