// Package ratelimit provides per-vendor token buckets used to keep catalog
// traffic inside each vendor's API quota.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sw33tLie/partscope/pkg/component"
)

// ErrRateLimitExceeded is returned when no token became available before the
// caller's timeout.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

const (
	DefaultCapacity = 100
	DefaultPeriod   = time.Minute
)

// Config sizes a bucket: Capacity tokens, refilled evenly over Period.
type Config struct {
	Capacity int
	Period   time.Duration
}

// DefaultConfig returns 100 requests per minute.
func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity, Period: DefaultPeriod}
}

func (c Config) validate(name string) error {
	if c.Capacity <= 0 {
		return &component.ConfigurationError{Field: "ratelimit." + name + ".capacity", Reason: "must be positive"}
	}
	if c.Period <= 0 {
		return &component.ConfigurationError{Field: "ratelimit." + name + ".period", Reason: "must be positive"}
	}
	return nil
}

// Bucket is a token bucket for one vendor. Refill is computed from elapsed
// time on each call; there is no background goroutine.
type Bucket struct {
	name     string
	capacity int
	lim      *rate.Limiter
}

// NewBucket returns a full bucket.
func NewBucket(name string, cfg Config) (*Bucket, error) {
	if err := cfg.validate(name); err != nil {
		return nil, err
	}
	every := cfg.Period / time.Duration(cfg.Capacity)
	if every <= 0 {
		every = time.Nanosecond
	}
	return &Bucket{
		name:     name,
		capacity: cfg.Capacity,
		lim:      rate.NewLimiter(rate.Every(every), cfg.Capacity),
	}, nil
}

func (b *Bucket) Name() string  { return b.name }
func (b *Bucket) Capacity() int { return b.capacity }

// Acquire takes one token, waiting for a refill if the bucket is empty.
// A timeout <= 0 means wait only as long as ctx allows.
func (b *Bucket) Acquire(ctx context.Context, timeout time.Duration) error {
	if b.lim.Allow() {
		return nil
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := b.lim.Wait(waitCtx); err != nil {
		// The parent being cancelled is not a quota problem.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrRateLimitExceeded, b.name, err)
	}
	return nil
}

// TryAcquire takes a token only if one is immediately available.
func (b *Bucket) TryAcquire() bool {
	return b.lim.Allow()
}

// Available reports the current token count, clamped to [0, capacity].
func (b *Bucket) Available() float64 {
	t := b.lim.Tokens()
	if t < 0 {
		return 0
	}
	if t > float64(b.capacity) {
		return float64(b.capacity)
	}
	return t
}

// Set hands out one bucket per vendor. Buckets are created on first use so
// vendors without an explicit config share the defaults.
type Set struct {
	mu       sync.Mutex
	defaults Config
	configs  map[string]Config
	buckets  map[string]*Bucket
}

// NewSet validates every config up front.
func NewSet(defaults Config, perVendor map[string]Config) (*Set, error) {
	if err := defaults.validate("default"); err != nil {
		return nil, err
	}
	configs := make(map[string]Config, len(perVendor))
	for name, cfg := range perVendor {
		if err := cfg.validate(name); err != nil {
			return nil, err
		}
		configs[name] = cfg
	}
	return &Set{
		defaults: defaults,
		configs:  configs,
		buckets:  make(map[string]*Bucket),
	}, nil
}

// For returns the bucket for vendor.
func (s *Set) For(vendor string) *Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[vendor]; ok {
		return b
	}
	cfg, ok := s.configs[vendor]
	if !ok {
		cfg = s.defaults
	}
	// cfg was validated in NewSet.
	b, _ := NewBucket(vendor, cfg)
	s.buckets[vendor] = b
	return b
}
