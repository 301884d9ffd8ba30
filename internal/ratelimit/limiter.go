// Package ratelimit throttles requests per client IP. Counters live in
// redis when it is configured so every replica shares one budget; an
// in-process limiter covers local runs and redis outages.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Local struct {
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	entries   map[string]*localEntry
	lastSweep time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const staleAfter = 5 * time.Minute

func NewLocal(perMinute, burst int) *Local {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return &Local{
		rate:      rate.Limit(float64(perMinute) / 60.0),
		burst:     burst,
		entries:   make(map[string]*localEntry),
		lastSweep: time.Now(),
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > staleAfter {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > staleAfter {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Redis is a fixed one-minute window counter shared through redis.
type Redis struct {
	client redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedis(client redis.Cmdable, prefix string, perMinute int) *Redis {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  int64(perMinute),
		window: time.Minute,
		now:    time.Now,
	}
}

func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := l.now().Truncate(l.window).Unix()
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

// Fallback consults primary and switches to secondary when primary errors.
type Fallback struct {
	primary   Limiter
	secondary Limiter
	logger    *slog.Logger
}

func NewFallback(primary, secondary Limiter, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := f.primary.Allow(ctx, key)
	if err == nil {
		return allowed, nil
	}
	f.logger.WarnContext(ctx, "shared rate limiter unavailable, using local limiter", "error", err)
	return f.secondary.Allow(ctx, key)
}
