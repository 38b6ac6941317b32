package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kangminhyuk1111/hoops/internal/config"
)

// tokenBucket takes one token from KEYS[1].  ARGV: now_ms, capacity,
// refill, interval_ms, ttl_s.  Whole intervals since the last refill add
// refill tokens, capped at capacity.  Returns {allowed, left, retry_ms}.
var tokenBucket = redis.NewScript(`
local now, cap, refill, step, ttl =
	tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local left = tonumber(redis.call('HGET', KEYS[1], 'left'))
local at = tonumber(redis.call('HGET', KEYS[1], 'at'))
if not left or not at then
	left, at = cap, now
end

if step > 0 and refill > 0 and now > at then
	local n = math.floor((now - at) / step)
	if n > 0 then
		left = math.min(cap, left + n * refill)
		at = at + n * step
	end
end

local ok, wait = 0, 0
if left >= 1 then
	ok, left = 1, left - 1
else
	wait = math.max(0, step - (now - at))
end

redis.call('HSET', KEYS[1], 'left', left, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, left, wait}
`)

type bucketResult struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// bucket is one token bucket a request draws from.
type bucket struct {
	key      string
	capacity int
	refill   int
	interval time.Duration
}

// bucketFor picks the read or write bucket.  Mutations (join requests,
// approvals, cancellations) get a smaller, slower bucket of their own.
func bucketFor(cfg config.RateLimitConfig, c echo.Context) bucket {
	key := buildRateKey(cfg, c)
	switch c.Request().Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return bucket{key: key + ":w", capacity: cfg.WriteCapacity, refill: 1, interval: cfg.WriteRefillInterval}
	}
	return bucket{key: key, capacity: cfg.Capacity, refill: cfg.RefillTokens, interval: cfg.RefillInterval}
}

// NewTokenBucket limits requests per key (see buildRateKey).  With the
// limiter disabled or Redis down it passes every request, and a Redis error
// at request time lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := int64(cfg.TTL / time.Second)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := bucketFor(cfg, c)
			vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{b.key},
				time.Now().UnixMilli(), b.capacity, b.refill, b.interval.Milliseconds(), ttl).Result()
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: redis error key=%s: %v", b.key, err)
				}
				return next(c)
			}
			res, ok := parseBucketResult(vals)
			if !ok {
				c.Logger().Warnf("ratelimit: unexpected script result key=%s: %#v", b.key, vals)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(b.capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if res.allowed {
				return next(c)
			}

			secs := int(math.Ceil(res.retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			h.Set("Retry-After", strconv.Itoa(secs))
			c.Logger().Debugf("ratelimit: blocked %s %s key=%s retry=%ds", c.Request().Method, c.Path(), b.key, secs)
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"errorCode":  "TOO_MANY_REQUESTS",
				"message":    "rate limit exceeded",
				"retryAfter": secs,
			})
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func parseBucketResult(v interface{}) (bucketResult, bool) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 3 {
		return bucketResult{}, false
	}
	allowed := fmt.Sprint(arr[0]) == "1"
	return bucketResult{
		allowed:   allowed,
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, true
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userID(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
