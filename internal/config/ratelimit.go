package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// RateLimitConfig configures the Redis token bucket limiter.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" env-default:"60"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" env-default:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"1s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL" env-default:"10m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" env-default:"ip_user_route"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX" env-default:"rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG" env-default:"false"`

	// Assistant calls cost an LLM round trip, so they get their own,
	// smaller bucket.
	AssistantCapacity int `env:"RATE_LIMIT_ASSISTANT_CAPACITY" env-default:"10"`
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to
// usable values.
func LoadRateLimitConfig() RateLimitConfig {
	var cfg RateLimitConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		cfg = RateLimitConfig{
			Enabled: true, Capacity: 60, RefillTokens: 1, RefillInterval: time.Second,
			TTL: 10 * time.Minute, KeyStrategy: "ip_user_route", Prefix: "rl", AssistantCapacity: 10,
		}
	}
	return cfg.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.AssistantCapacity < 1 {
		c.AssistantCapacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// ForAssistant returns a copy tuned for the assistant endpoint.
func (c RateLimitConfig) ForAssistant() RateLimitConfig {
	c.Capacity = c.AssistantCapacity
	c.Prefix = c.Prefix + ":assistant"
	return c
}
