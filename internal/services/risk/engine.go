// Package risk scores a single transaction against an ordered table of
// AML rules. Evaluation is pure: no I/O, no shared mutable state.
package risk

import (
	"strings"
)

// Engine evaluates transactions. It is safe for concurrent use.
type Engine struct {
	cfg   Config
	rules []Rule
}

// NewEngine builds the rule table from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, rules: buildRules(cfg)}, nil
}

// NewDefaultEngine returns an engine using DefaultConfig.
func NewDefaultEngine() *Engine {
	cfg := DefaultConfig()
	return &Engine{cfg: cfg, rules: buildRules(cfg)}
}

func buildRules(cfg Config) []Rule {
	watched := make(map[string]struct{}, len(cfg.WatchedRecipients))
	for _, acc := range cfg.WatchedRecipients {
		watched[acc] = struct{}{}
	}
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		keywords = append(keywords, strings.ToLower(kw))
	}

	return []Rule{
		{
			Name:   RuleLargeAmount,
			Weight: cfg.LargeAmountWeight,
			Flag:   FlagLargeAmount,
			Applies: func(in Input) bool {
				return in.Amount.GreaterThan(cfg.LargeAmount)
			},
		},
		{
			Name:   RuleRepeatRecipient,
			Weight: cfg.RepeatRecipientWeight,
			Flag:   FlagRepeatRecipient,
			Applies: func(in Input) bool {
				if !in.Amount.GreaterThan(cfg.RepeatRecipientAmount) {
					return false
				}
				if _, ok := watched[in.ToAccount]; ok {
					return true
				}
				return cfg.RepeatRecipientMin > 0 && in.RecipientTransfers >= cfg.RepeatRecipientMin
			},
		},
		{
			Name:   RuleUnusualTiming,
			Weight: cfg.UnusualTimingWeight,
			Flag:   FlagUnusualTiming,
			Applies: func(in Input) bool {
				return in.Date.Day()%2 != 0 && in.Amount.GreaterThan(cfg.UnusualTimingAmount)
			},
		},
		{
			Name:   RuleHighRiskKeyword,
			Weight: cfg.KeywordWeight,
			Flag:   FlagHighRiskKeyword,
			Applies: func(in Input) bool {
				desc := strings.ToLower(in.Description)
				for _, kw := range keywords {
					if strings.Contains(desc, kw) {
						return true
					}
				}
				return false
			},
		},
	}
}

// Evaluate scores in from scratch. Every rule is checked; the sum of the
// triggered weights is clamped to [MinScore, MaxScore] once at the end.
func (e *Engine) Evaluate(in Input) Assessment {
	score := 0.0
	flags := make([]string, 0, len(e.rules))

	for _, rule := range e.rules {
		if rule.Applies(in) {
			score += rule.Weight
			flags = append(flags, rule.Flag)
		}
	}

	score = clamp(score)
	return Assessment{
		RiskScore: score,
		Flags:     flags,
		Status:    e.Classify(score),
	}
}

// Classify maps a clamped score to a status using the engine thresholds.
func (e *Engine) Classify(score float64) Status {
	return classify(score, e.cfg.SuspiciousAt, e.cfg.FlaggedAt)
}

// Rules describes the rule table in evaluation order.
func (e *Engine) Rules() []RuleInfo {
	out := make([]RuleInfo, len(e.rules))
	for i, r := range e.rules {
		out[i] = RuleInfo{Order: i + 1, Name: r.Name, Weight: r.Weight, Flag: r.Flag}
	}
	return out
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.WatchedRecipients = append([]string(nil), e.cfg.WatchedRecipients...)
	cfg.Keywords = append([]string(nil), e.cfg.Keywords...)
	return cfg
}

// Classify maps a score to a status using the default 4.0 / 7.0 bands.
func Classify(score float64) Status {
	def := DefaultConfig()
	return classify(score, def.SuspiciousAt, def.FlaggedAt)
}

func classify(score, suspiciousAt, flaggedAt float64) Status {
	switch {
	case score >= flaggedAt:
		return StatusFlagged
	case score >= suspiciousAt:
		return StatusSuspicious
	default:
		return StatusNormal
	}
}

func clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
