// Package retry decides whether and when a task that got a non-200 response
// is resubmitted to its queue.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// Config controls the requeue policy. The zero value resubmits forever with
// no delay.
type Config struct {
	// MaxAttempts caps the number of calls per task; 0 means unlimited.
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     BackoffConfig `mapstructure:"backoff"`
}

// BackoffConfig enables an exponential delay before each resubmission.
type BackoffConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// Policy implements annotate.RetryPolicy.
type Policy struct {
	cfg Config
}

var _ annotate.RetryPolicy = (*Policy)(nil)

// New builds a Policy, filling unset backoff knobs with the library defaults.
func New(cfg Config) *Policy {
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff.InitialInterval = backoff.DefaultInitialInterval
	}
	if cfg.Backoff.MaxInterval <= 0 {
		cfg.Backoff.MaxInterval = backoff.DefaultMaxInterval
	}
	if cfg.Backoff.Multiplier <= 1 {
		cfg.Backoff.Multiplier = backoff.DefaultMultiplier
	}
	return &Policy{cfg: cfg}
}

// Unbounded is the policy the extractor runs with unless configured otherwise.
func Unbounded() *Policy {
	return New(Config{})
}

// Allow reports whether a task that has failed attempts times may be resubmitted.
func (p *Policy) Allow(attempts int) bool {
	if p.cfg.MaxAttempts <= 0 {
		return true
	}
	return attempts < p.cfg.MaxAttempts
}

// Delay returns the wait before resubmitting a task that has failed attempts times.
func (p *Policy) Delay(attempts int) time.Duration {
	if !p.cfg.Backoff.Enabled || attempts <= 0 {
		return 0
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.cfg.Backoff.InitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          p.cfg.Backoff.Multiplier,
		MaxInterval:         p.cfg.Backoff.MaxInterval,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	var delay time.Duration
	for i := 0; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
