package middleware

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore counts hits per key inside a fixed window.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, error)
}

type visitor struct {
	count       int
	windowStart time.Time
}

// MemoryStore keeps counters in process. It is the default when no Redis
// URL is configured.
type MemoryStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	window   time.Duration
	stopChan chan struct{}
	once     sync.Once
}

func NewMemoryStore(window time.Duration) *MemoryStore {
	if window <= 0 {
		window = time.Minute
	}
	s := &MemoryStore{
		visitors: make(map[string]*visitor),
		window:   window,
		stopChan: make(chan struct{}),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.Lock()
				for key, v := range s.visitors {
					if time.Since(v.windowStart) > window {
						delete(s.visitors, key)
					}
				}
				s.mu.Unlock()
			}
		}
	}()

	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Windows are fixed: only opening a new one moves windowStart.
	v, exists := s.visitors[key]
	if !exists || time.Since(v.windowStart) > window {
		s.visitors[key] = &visitor{count: 1, windowStart: time.Now()}
		return 1, nil
	}

	v.count++
	return v.count, nil
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stopChan) })
}

// RedisStore shares counters between gateway replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:chat:"}
}

// Incr bumps the counter and reads its TTL in one transaction. A key found
// without a TTL gets one.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	full := s.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, full)
		ttl = pipe.PTTL(ctx, full)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	n := incr.Val()
	if ttl.Val() < 0 {
		if err := s.client.Expire(ctx, full, window).Err(); err != nil {
			return int(n), fmt.Errorf("failed to set rate window: %w", err)
		}
	}
	return int(n), nil
}

type RateLimiter struct {
	store  CounterStore
	limit  int
	window time.Duration
}

func NewRateLimiter(store CounterStore, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window}
}

// Allow records one hit for key. Store failures fail open.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	count, err := rl.store.Incr(ctx, key, rl.window)
	if err != nil {
		log.Printf("rate limiter store error, allowing request: %v", err)
		return true
	}
	return count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.Context(), ClientKey(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded", "Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller by the IP in RemoteAddr. Proxy headers only
// reach it when the router trusts a proxy and mounts chi's RealIP.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
