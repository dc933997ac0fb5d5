package ratelimit

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix    = "ratelimit:"
	storeTimeout = 2 * time.Second
)

// Result is one admission decision.
type Result struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

// Limiter enforces a fixed request window per client key. Redis is the
// primary store so concurrent requests across process instances are counted
// atomically; when Redis is unreachable the limiter degrades to an in-process
// counter rather than failing the request. The limiter protects downstream
// research-call cost, so on store errors the request is allowed and the
// degraded state is surfaced via Ready.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	log    *zap.Logger

	ready atomic.Bool

	mu    sync.Mutex
	local map[string]*bucket
}

type bucket struct {
	count int
	start time.Time
}

func New(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) *Limiter {
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		log:    log,
		local:  make(map[string]*bucket),
	}
}

// MustRedis parses a Redis URL into a client. It does not connect; the first
// call discovers reachability.
func MustRedis(url string, log *zap.Logger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatal("invalid redis url", zap.Error(err))
	}
	return redis.NewClient(opt)
}

// Check performs the atomic check-and-increment for one client key.
func (l *Limiter) Check(ctx context.Context, key string) Result {
	if l.rdb != nil {
		res, err := l.checkRedis(ctx, key)
		if err == nil {
			if l.ready.CompareAndSwap(false, true) {
				l.log.Info("rate limit store reachable")
			}
			return res
		}
		if l.ready.CompareAndSwap(true, false) {
			l.log.Warn("rate limit store unreachable, falling back to local counter", zap.Error(err))
		}
	}
	return l.checkLocal(key)
}

// Ready reports whether the last store interaction succeeded.
func (l *Limiter) Ready() bool {
	return l.ready.Load()
}

// Probe pings the durable store and refreshes the readiness flag.
func (l *Limiter) Probe(ctx context.Context) bool {
	if l.rdb == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	ok := l.rdb.Ping(ctx).Err() == nil
	l.ready.Store(ok)
	return ok
}

func (l *Limiter) checkRedis(ctx context.Context, key string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rkey := keyPrefix + key
	count, err := l.rdb.Incr(ctx, rkey).Result()
	if err != nil {
		return Result{}, err
	}
	// Set the TTL whenever the key has none. A key can lose its TTL when a
	// process dies between INCR and EXPIRE; without this it would never
	// expire and the client would stay locked out.
	if err := l.rdb.ExpireNX(ctx, rkey, l.window).Err(); err != nil {
		return Result{}, err
	}
	if count > int64(l.limit) {
		retry := int(math.Ceil(l.window.Seconds()))
		if ttl, err := l.rdb.TTL(ctx, rkey).Result(); err == nil && ttl > 0 {
			retry = int(math.Ceil(ttl.Seconds()))
		}
		return Result{RetryAfterSeconds: retry}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - int(count)}, nil
}

func (l *Limiter) checkLocal(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.local[key]
	if !exists || now.Sub(b.start) >= l.window {
		b = &bucket{start: now}
		l.local[key] = b
	}
	if b.count >= l.limit {
		retry := int(math.Ceil((l.window - now.Sub(b.start)).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return Result{RetryAfterSeconds: retry}
	}
	b.count++
	return Result{Allowed: true, Remaining: l.limit - b.count}
}

// Cleanup drops local windows that elapsed. Only the degraded-mode map needs
// this; Redis keys expire on their own.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, b := range l.local {
		if now.Sub(b.start) >= l.window {
			delete(l.local, key)
		}
	}
}

func (l *Limiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			l.Cleanup()
		}
	}()
}
