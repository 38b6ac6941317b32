package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of /api.  Reads and
// writes have separate buckets per key: browsing nearby matches should not
// eat into the budget for join requests, and a client spamming join requests
// or approvals runs dry long before it could flood a host's inbox.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int // read bucket size
	RefillTokens   int
	RefillInterval time.Duration

	WriteCapacity       int // bucket size for POST, PUT and DELETE
	WriteRefillInterval time.Duration

	TTL         time.Duration
	KeyStrategy string // ip | user | route | ip_user | user_route | ip_user_route
	Prefix      string
	Debug       bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to usable
// values.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:             envBool("RATE_LIMIT_ENABLED", true),
		Capacity:            envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:        envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:      envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		WriteCapacity:       envInt("RATE_LIMIT_WRITE_CAPACITY", 10),
		WriteRefillInterval: envDur("RATE_LIMIT_WRITE_REFILL_INTERVAL", 6*time.Second),
		TTL:                 envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:         envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user"),
		Prefix:              envStr("RATE_LIMIT_PREFIX", "hoops:rl"),
		Debug:               envBool("RATE_LIMIT_DEBUG", false),
	}
	c.Capacity = atLeast(c.Capacity, 1)
	c.WriteCapacity = atLeast(c.WriteCapacity, 1)
	c.RefillTokens = atLeast(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if c.WriteRefillInterval <= 0 {
		c.WriteRefillInterval = c.RefillInterval
	}
	// a key must outlive a full refill of the slower bucket
	slowest := c.RefillInterval
	if c.WriteRefillInterval > slowest {
		slowest = c.WriteRefillInterval
	}
	if c.TTL < 5*slowest {
		c.TTL = 5 * slowest
	}
	return c
}

func atLeast(n, min int) int {
	if n < min {
		return min
	}
	return n
}
