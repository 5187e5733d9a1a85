package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sw33tLie/partscope/pkg/component"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// DialTimeout defaults to 2s.
	DialTimeout time.Duration
}

// Redis stores entries with SET EX and invalidates with SCAN MATCH.
type Redis struct {
	client *redis.Client
	Now    func() time.Time
}

// NewRedis does not contact the server. An unreachable server shows up as
// BackendError results later, never as a construction failure.
func NewRedis(opts RedisOptions) *Redis {
	dial := opts.DialTimeout
	if dial == 0 {
		dial = 2 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  dial,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaxRetries:   1,
	})
	return &Redis{client: client, Now: time.Now}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) Result {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return miss()
	}
	if err != nil {
		return failed(err)
	}

	e, err := decode(key, val)
	if err != nil {
		return failed(err)
	}
	if e.Expired(r.Now()) {
		return miss()
	}
	return hit(e)
}

func (r *Redis) Put(ctx context.Context, key string, components []component.Component, ttl time.Duration) error {
	ttl = normalizeTTL(ttl)
	payload, err := encode(components, r.Now(), ttl)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, payload, ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, pattern string) (int, error) {
	glob := globPattern(pattern)
	n := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, glob, 100).Result()
		if err != nil {
			return n, err
		}
		if len(keys) > 0 {
			deleted, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return n, err
			}
			n += int(deleted)
		}
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
