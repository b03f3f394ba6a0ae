package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/dto"
	"github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/handlers"
	"github.com/falkordb/falkordb-mcp/core/logger"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter keeps a sliding-window log per key in a Redis sorted set.
// FalkorDB speaks the Redis protocol, so the gateway's own database can hold
// the windows.
type RedisRateLimiter struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRateLimiter creates a limiter storing its keys under prefix. A
// missing trailing ':' separator is added.
func NewRedisRateLimiter(client redis.Cmdable, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "mcp:ratelimit"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

func (r *RedisRateLimiter) key(k string) string {
	return r.prefix + k
}

// Allow records a hit for key and reports whether it is within limit hits per
// window.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	redisKey := r.key(key)

	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+strconv.FormatInt(windowStart.UnixMilli(), 10))
		count = pipe.ZCard(ctx, redisKey)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit window for %s: %w", key, err)
	}

	if count.Val() >= int64(limit) {
		return false, nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, redisKey, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: uuid.NewString(),
		})
		pipe.PExpire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit record for %s: %w", key, err)
	}
	return true, nil
}

// RateLimit middleware for rate limiting. Limiter failures let the request
// through.
func RateLimit(limiter RateLimiter, limit int, window time.Duration, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	log := logger.New("ratelimit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				log.Warnf("Rate limiter unavailable, allowing request: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				handlers.WriteJSON(w, http.StatusTooManyRequests, dto.NewErrorResponse("Rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client address. The key is the socket peer unless
// the server runs chi's RealIP, which it only does for a trusted proxy;
// forwarding headers from untrusted clients never pick the key.
func RateLimitByIP(limiter RateLimiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return RateLimit(limiter, limit, window, ClientIP)
}

// ClientIP returns the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
