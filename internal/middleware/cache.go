package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kangminhyuk1111/hoops/internal/config"
)

// snapshot is what a cached court response looks like in Redis.
type snapshot struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (s snapshot) marshal() ([]byte, error) { return json.Marshal(s) }

func unmarshalSnapshot(bs []byte) (snapshot, bool) {
	var s snapshot
	if err := json.Unmarshal(bs, &s); err != nil || s.Status == 0 {
		return snapshot{}, false
	}
	return s, true
}

// recorder tees the response into buf until it grows past max bytes.
type recorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	max      int64
	overflow bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.max > 0 && int64(r.buf.Len()+len(b)) > r.max {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts of the request selected by KeyStrategy.
// The default mixes the concrete path in so /locations/1 and /locations/2
// never collide.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{c.Path()}
	case "method_route":
		parts = []string{r.Method, c.Path()}
	case "path_query":
		parts = []string{r.URL.Path, r.URL.RawQuery}
	default:
		parts = []string{c.Path(), r.URL.Path, r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// cacheIndexKey is the set of every live entry, so a purge needs no SCAN.
func cacheIndexKey(cfg config.CacheConfig) string { return cfg.Prefix + ":index" }

func replay(c echo.Context, s snapshot) error {
	h := c.Response().Header()
	for k, vs := range s.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(s.Status)
	if len(s.Body) == 0 {
		return nil
	}
	_, err := c.Response().Write(s.Body)
	return err
}

// NewRedisCache serves 200 responses of the configured methods from Redis
// and records fresh ones.  It fronts the court reads only; match listings
// change with every approval.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if s, ok := unmarshalSnapshot(bs); ok {
					return replay(c, s)
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, max: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := snapshot{Status: rec.status, Header: hdr, Body: rec.buf.Bytes()}.marshal()
			if err != nil {
				return nil
			}
			// the request context may already be cancelled once the body is flushed
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.SetEx(ctx, key, payload, ttl)
				p.SAdd(ctx, cacheIndexKey(cfg), key)
				p.Expire(ctx, cacheIndexKey(cfg), 2*ttl)
				return nil
			})
			if err != nil {
				c.Logger().Debugf("cache: store %s: %v", key, err)
			}
			return nil
		}
	}
}

// PurgeCache drops every cached court response after a successful write so
// a new court is searchable at once.
func PurgeCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil || c.Response().Status >= http.StatusBadRequest {
				return err
			}
			ctx := c.Request().Context()
			idx := cacheIndexKey(cfg)
			keys, err := rdb.SMembers(ctx, idx).Result()
			if err == nil {
				err = rdb.Del(ctx, append(keys, idx)...).Err()
			}
			if err != nil {
				c.Logger().Warnf("cache: purge failed: %v", err)
			}
			return nil
		}
	}
}
