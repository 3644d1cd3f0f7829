package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig describes the Redis server used for rate limiting, response
// caching and assistant conversation history.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	TLS      bool   `env:"REDIS_TLS" env-default:"false"`
}

// Address resolves host and port, which take precedence over REDIS_ADDR.
func (r RedisConfig) Address() string {
	if r.Host != "" && r.Port != "" {
		return r.Host + ":" + r.Port
	}
	return r.Addr
}

// NewRedisClient connects to Redis and pings it. It returns nil when the
// server cannot be reached; callers degrade instead of failing startup.
func NewRedisClient(logger *zap.Logger) *redis.Client {
	var cfg RedisConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logger.Warn("invalid redis configuration, redis disabled", zap.Error(err))
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without it",
			zap.String("addr", opts.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", zap.String("addr", opts.Addr))
	return client
}
