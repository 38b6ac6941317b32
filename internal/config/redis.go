package config

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis that holds the geo index of open matches,
// the asynq transition schedule, rate-limit buckets and the court cache.
// REDIS_HOST plus REDIS_PORT win over REDIS_ADDR.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      *tls.Config
}

func LoadRedisConfig() RedisConfig {
	rc := RedisConfig{
		Addr:     envStr("REDIS_ADDR", "localhost:6379"),
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       envInt("REDIS_DB", 0),
	}
	host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
	if host != "" && port != "" {
		rc.Addr = net.JoinHostPort(host, port)
	}
	if envBool("REDIS_TLS", false) {
		rc.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return rc
}

func (rc RedisConfig) options() *redis.Options {
	return &redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB, TLSConfig: rc.TLS}
}

// AsynqOpt points the transition scheduler at the same server.
func (rc RedisConfig) AsynqOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: rc.Addr, Password: rc.Password, DB: rc.DB, TLSConfig: rc.TLS}
}

// NewRedisClient returns nil when the server does not answer a ping within
// two seconds.  Every Redis-backed component treats nil as "run without".
func NewRedisClient(rc RedisConfig) *redis.Client {
	client := redis.NewClient(rc.options())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if client.Ping(ctx).Err() != nil {
		_ = client.Close()
		return nil
	}
	return client
}
