package push

import "time"

// RetryConfig controls reconnection after the channel drops.
type RetryConfig struct {
	InitialDelay time.Duration // first retry delay (default: 1 second)
	MaxDelay     time.Duration // cap for the exponential delay (default: 30 seconds)
	MaxRetries   int           // consecutive failures before giving up; 0 retries forever
	NotifyAfter  int           // consecutive failures before the Reporter is told; 0 never
}

// DefaultRetryConfig returns the default reconnection policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxRetries:   0,
		NotifyAfter:  5,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	return c
}

// backoff returns the delay before retry number attempt (1-based):
// InitialDelay * 2^(attempt-1), capped at MaxDelay.
//
// With the defaults: 1s, 2s, 4s, 8s, 16s, 30s, 30s, ...
func backoff(attempt int, cfg RetryConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := cfg.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
