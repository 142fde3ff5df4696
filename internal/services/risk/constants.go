package risk

// Rule names, in evaluation order.
const (
	RuleLargeAmount     = "large_amount"
	RuleRepeatRecipient = "repeat_recipient"
	RuleUnusualTiming   = "unusual_timing"
	RuleHighRiskKeyword = "high_risk_keyword"
)

// Flag texts attached to an assessment when the matching rule fires.
const (
	FlagLargeAmount     = "Large amount transaction"
	FlagRepeatRecipient = "Multiple transactions to same recipient pattern"
	FlagUnusualTiming   = "Unusual timing/pattern"
	FlagHighRiskKeyword = "High risk keywords in description"
)

const (
	// MaxScore is the upper bound of every risk score.
	MaxScore = 10.0
	// MinScore is the lower bound of every risk score.
	MinScore = 0.0

	// SentinelRecipient stands in for real recurrence detection until a
	// recipient tracker is configured.
	SentinelRecipient = "ACC-789123"
)

// DefaultKeywords are matched case-insensitively against descriptions.
var DefaultKeywords = []string{"cash", "loan", "transfer", "offshore"}
