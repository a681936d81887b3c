package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/guestlist/internal/identity"
	"github.com/HammerMeetNail/guestlist/internal/logging"
)

// RateLimiter is a fixed-window counter kept in Redis.
type RateLimiter struct {
	redis      redis.Cmdable
	limit      int64
	window     time.Duration
	prefix     string
	keyFunc    func(r *http.Request) string
	failClosed bool
	logger     *logging.Logger
	now        func() time.Time
}

// NewRateLimiter builds a limiter. keyFunc picks the bucket for a request;
// an empty key skips limiting. With failClosed, Redis errors reject the
// request instead of letting it through.
func NewRateLimiter(client redis.Cmdable, limit int64, window time.Duration, prefix string, keyFunc func(r *http.Request) string, failClosed bool) *RateLimiter {
	if keyFunc == nil {
		keyFunc = UserOrIPKey
	}
	return &RateLimiter{
		redis:      client,
		limit:      limit,
		window:     window,
		prefix:     prefix,
		keyFunc:    keyFunc,
		failClosed: failClosed,
		logger:     logging.Default,
		now:        time.Now,
	}
}

// NewWriteRateLimiter limits state-changing requests per caller.
func NewWriteRateLimiter(client redis.Cmdable, limit int64, window time.Duration) *RateLimiter {
	return NewRateLimiter(client, limit, window, "ratelimit:writes:", UserOrIPKey, false)
}

// Middleware limits mutating requests. Safe methods pass through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := rl.keyFunc(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, reset, err := rl.isAllowed(r.Context(), rl.prefix+key)
		if err != nil {
			rl.logger.Warn("Rate limiter unavailable", map[string]interface{}{
				"error":       err.Error(),
				"fail_closed": rl.failClosed,
			})
			if rl.failClosed {
				writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			retryAfter := int64(reset.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (bool, int64, time.Time, error) {
	windowStart := rl.now().Truncate(rl.window)
	reset := windowStart.Add(rl.window)

	// One counter per window, so a busy key still resets at the boundary.
	key = key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, reset)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, rl.limit, reset, err
	}

	count := incr.Val()
	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, reset, nil
}

// UserOrIPKey buckets by caller identity, falling back to the client IP.
func UserOrIPKey(r *http.Request) string {
	if userID, err := identity.UserID(r.Context()); err == nil {
		return "user:" + userID
	}
	return "ip:" + GetClientIP(r)
}

func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
