package jobqueue

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RetryConfig is an immutable backoff policy shared by every asynchronous
// subsystem. Each job-type family (upload, webhook, stream_reconnect, sync,
// notification) selects its own tunables; the arithmetic is identical.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" json:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier" json:"multiplier"`
}

// Validate rejects configs that would produce a nonsensical backoff curve.
// An invalid config is a fatal startup error, never a per-call condition.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("retry config: max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.InitialDelay <= 0 {
		return fmt.Errorf("retry config: initial_delay must be positive, got %s", c.InitialDelay)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("retry config: max_delay %s must be >= initial_delay %s", c.MaxDelay, c.InitialDelay)
	}
	if c.Multiplier < 1.0 {
		return fmt.Errorf("retry config: multiplier must be >= 1.0, got %v", c.Multiplier)
	}
	return nil
}

// Policy decides whether a failed job may retry and how long to wait.
type Policy struct {
	cfg RetryConfig
}

// NewPolicy validates the config and returns a Policy.
func NewPolicy(cfg RetryConfig) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Policy{cfg: cfg}, nil
}

// MustPolicy is NewPolicy for statically-known configs; it panics on an
// invalid config.
func MustPolicy(cfg RetryConfig) *Policy {
	p, err := NewPolicy(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Delay returns the backoff before the given attempt is retried:
// initial_delay * multiplier^(attempt-1), capped at max_delay. Delay(1) is
// exactly the initial delay and the sequence is non-decreasing.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.cfg.InitialDelay) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
	if d > float64(p.cfg.MaxDelay) {
		return p.cfg.MaxDelay
	}
	return time.Duration(d)
}

// ShouldRetry reports whether another attempt fits the budget after
// attempt failures so far.
func (p *Policy) ShouldRetry(attempt int) bool {
	return attempt < p.cfg.MaxAttempts
}

// MaxAttempts returns the configured retry ceiling.
func (p *Policy) MaxAttempts() int {
	return p.cfg.MaxAttempts
}

// Config returns a copy of the underlying config.
func (p *Policy) Config() RetryConfig {
	return p.cfg
}

// Job-type families. A job_type maps onto a family by prefix, so
// "sync:comments" and "sync:revenue" share the sync policy.
const (
	FamilyUpload          = "upload"
	FamilyWebhook         = "webhook"
	FamilyStreamReconnect = "stream_reconnect"
	FamilySync            = "sync"
	FamilyNotification    = "notification"
)

// DefaultRetryConfigs returns the per-family tunables used when the config
// file does not override them.
func DefaultRetryConfigs() map[string]RetryConfig {
	return map[string]RetryConfig{
		FamilyUpload:          {MaxAttempts: 3, InitialDelay: 5 * time.Second, MaxDelay: 60 * time.Second, Multiplier: 2.0},
		FamilyWebhook:         {MaxAttempts: 5, InitialDelay: 60 * time.Second, MaxDelay: 3600 * time.Second, Multiplier: 2.0},
		FamilyStreamReconnect: {MaxAttempts: 5, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Multiplier: 1.5},
		FamilySync:            {MaxAttempts: 3, InitialDelay: 30 * time.Second, MaxDelay: 600 * time.Second, Multiplier: 2.0},
		FamilyNotification:    {MaxAttempts: 3, InitialDelay: 10 * time.Second, MaxDelay: 300 * time.Second, Multiplier: 2.0},
	}
}

// PolicySet resolves a policy for a job type, falling back to a default
// when no family matches.
type PolicySet struct {
	policies map[string]*Policy
	fallback *Policy
}

// NewPolicySet builds a set from per-family configs. The default family
// config (max_attempts 3, 5s..60s doubling) backs unknown job types.
func NewPolicySet(configs map[string]RetryConfig) (*PolicySet, error) {
	set := &PolicySet{policies: make(map[string]*Policy, len(configs))}
	for family, cfg := range configs {
		p, err := NewPolicy(cfg)
		if err != nil {
			return nil, fmt.Errorf("family %q: %w", family, err)
		}
		set.policies[family] = p
	}
	fb, err := NewPolicy(RetryConfig{MaxAttempts: 3, InitialDelay: 5 * time.Second, MaxDelay: 60 * time.Second, Multiplier: 2.0})
	if err != nil {
		return nil, err
	}
	set.fallback = fb
	return set, nil
}

// DefaultPolicySet builds a set from DefaultRetryConfigs.
func DefaultPolicySet() *PolicySet {
	set, err := NewPolicySet(DefaultRetryConfigs())
	if err != nil {
		panic(err) // defaults are statically valid
	}
	return set
}

// For resolves the policy for a job type. "sync:comments" resolves to the
// sync family; an exact family name matches directly; anything else gets
// the fallback.
func (s *PolicySet) For(jobType string) *Policy {
	if p, ok := s.policies[jobType]; ok {
		return p
	}
	if i := strings.IndexByte(jobType, ':'); i > 0 {
		if p, ok := s.policies[jobType[:i]]; ok {
			return p
		}
	}
	return s.fallback
}
