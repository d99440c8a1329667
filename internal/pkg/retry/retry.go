// Package retry adapts env-driven retry settings to retry-go options.
package retry

import (
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryConfig is the env-configurable retry policy for idempotent
// outbound calls.
type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"100ms"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"2s"`
}

// ToRetryOptions converts the config into retry-go options. Callers append
// their own RetryIf predicate; the policy here only shapes the backoff.
func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	return []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.Delay(rc.Delay),
		retry.MaxDelay(rc.MaxDelay),
	}
}

// DefaultRetryConfig mirrors the envDefault values for callers built
// without the env layer.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		Attempts: 3,
		Delay:    100 * time.Millisecond,
		MaxDelay: 2 * time.Second,
	}
}
