// Package cache stores raw catalog search results keyed by requirements and
// vendor set. Backends never return errors from Get: a failing backend
// reports a BackendError result, which callers treat as a miss.
package cache

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/sw33tLie/partscope/pkg/component"
)

const DefaultTTL = 24 * time.Hour

// Kind is the outcome of a lookup.
type Kind int

const (
	Miss Kind = iota
	Hit
	BackendError
)

func (k Kind) String() string {
	switch k {
	case Hit:
		return "hit"
	case BackendError:
		return "error"
	default:
		return "miss"
	}
}

// Entry is one cached search result.
type Entry struct {
	Key        string
	Components []component.Component
	CreatedAt  time.Time
	TTL        time.Duration
}

// Expired reports whether now is more than TTL past creation.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Result is what Get returns. Entry is only set for Hit and Err only for
// BackendError.
type Result struct {
	Kind  Kind
	Entry Entry
	Err   error
}

func hit(e Entry) Result      { return Result{Kind: Hit, Entry: e} }
func miss() Result            { return Result{Kind: Miss} }
func failed(err error) Result { return Result{Kind: BackendError, Err: err} }

// Store is implemented by every cache backend. Implementations must be safe
// for concurrent use; concurrent Puts to one key are last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) Result
	Put(ctx context.Context, key string, components []component.Component, ttl time.Duration) error
	// Invalidate removes every key matching a glob pattern and returns how
	// many were removed. A pattern without glob characters is a prefix.
	Invalidate(ctx context.Context, pattern string) (int, error)
	Close() error
}

// globPattern turns a bare prefix into a glob.
func globPattern(pattern string) string {
	if pattern == "" {
		return "*"
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern + "*"
	}
	return pattern
}

// literalPrefix returns the part of a glob before its first metacharacter.
func literalPrefix(glob string) string {
	if i := strings.IndexAny(glob, "*?[\\"); i >= 0 {
		return glob[:i]
	}
	return glob
}

// Match reports whether key matches an invalidation pattern.
func Match(pattern, key string) bool {
	ok, err := path.Match(globPattern(pattern), key)
	return err == nil && ok
}

// envelope is the serialized form shared by the byte-oriented backends.
type envelope struct {
	CreatedAt  time.Time             `json:"created_at"`
	TTL        time.Duration         `json:"ttl"`
	Components []component.Component `json:"components"`
}

func encode(components []component.Component, created time.Time, ttl time.Duration) ([]byte, error) {
	return json.Marshal(envelope{CreatedAt: created, TTL: ttl, Components: components})
}

func decode(key string, data []byte) (Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Entry{}, err
	}
	return Entry{Key: key, Components: env.Components, CreatedAt: env.CreatedAt, TTL: env.TTL}, nil
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// None is a Store that never holds anything.
type None struct{}

func (None) Get(context.Context, string) Result { return miss() }
func (None) Put(context.Context, string, []component.Component, time.Duration) error {
	return nil
}
func (None) Invalidate(context.Context, string) (int, error) { return 0, nil }
func (None) Close() error                                    { return nil }
