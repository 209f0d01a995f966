package captcha

import (
	"fmt"
	"time"
)

// Config holds the per-service timing and observability settings.
type Config struct {
	// Timeout is the overall deadline measured from task creation.
	Timeout time.Duration

	// PollingInterval is the wait before every status check.
	PollingInterval time.Duration

	// InitialDelay is an extra wait after creation, before the first polling
	// interval, for providers that reject early status checks.
	InitialDelay time.Duration

	// BalanceWarnLevel logs a warning when Balance reports less than this amount.
	// Zero disables the warning.
	BalanceWarnLevel float64

	// MetricsHook is called once per solve call with its terminal state.
	MetricsHook func(provider string, kind ChallengeKind, state State, elapsed time.Duration)
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *Config) defaults() {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if cfg.PollingInterval == 0 {
		cfg.PollingInterval = 5 * time.Second
	}
}

func (cfg *Config) validate() error {
	if cfg.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", cfg.Timeout)
	}
	if cfg.PollingInterval < 0 {
		return fmt.Errorf("negative polling interval %s", cfg.PollingInterval)
	}
	if cfg.InitialDelay < 0 {
		return fmt.Errorf("negative initial delay %s", cfg.InitialDelay)
	}
	return nil
}
