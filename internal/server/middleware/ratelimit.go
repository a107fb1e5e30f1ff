package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/observability"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/server/httpx"
)

const msgTooManyRequests = "Too many requests from this IP, please try again later"

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter allows limit requests per key per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "prepmaster:ratelimit"
	}
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow counts one request for key and reports whether it is within the limit.
// On a Redis error it allows the request and returns the error.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	pipe := l.client.Pipeline()
	// SET NX starts the window and its TTL only for a new key; INCR keeps the TTL.
	pipe.SetNX(ctx, redisKey, 0, l.window)
	incr := pipe.Incr(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// TTL returns the time until the window of key resets.
func (l *RedisLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return l.client.TTL(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Result()
}

// Handler limits requests per client IP and route. Redis failures fail open.
func (l *RedisLimiter) Handler(metrics *observability.Metrics, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientKey(r) + ":" + observability.RoutePattern(r)
			ok, err := l.Allow(r.Context(), key)
			if err != nil && log != nil {
				log.WithError(err).Warn("rate limiter unavailable, allowing request")
			}
			if !ok {
				if ttl, err := l.TTL(r.Context(), key); err == nil && ttl > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
				}
				tooManyRequests(w, r, metrics, log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LocalRateLimit limits requests per client IP and route in process memory.
// Used when no Redis address is configured.
func LocalRateLimit(limit int, window time.Duration, metrics *observability.Metrics, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(keyByClientIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			tooManyRequests(w, r, metrics, log)
		}),
	)
}

func keyByClientIP(r *http.Request) (string, error) {
	return clientKey(r), nil
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, metrics *observability.Metrics, log logrus.FieldLogger) {
	metrics.RateLimited(observability.RoutePattern(r))
	httpx.Error(w, r, log, apperr.New(apperr.ErrTooManyRequests, msgTooManyRequests))
}
