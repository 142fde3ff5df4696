package transaction

import "time"

// Default configuration values
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	ReassessBatch   = 200

	// PublishTimeout bounds how long a write waits on the event broker.
	PublishTimeout = 2 * time.Second
)
