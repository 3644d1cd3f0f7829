package config

import (
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// CacheConfig defines settings for the response cache middleware. When
// Enabled is false or no Redis client is configured, caching is disabled.
// Methods lists the HTTP methods to cache. KeyStrategy determines which
// parts of the request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

type cacheEnv struct {
	Enabled      bool          `env:"CACHE_ENABLED" env-default:"true"`
	Methods      string        `env:"CACHE_METHODS" env-default:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" env-default:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" env-default:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" env-default:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" env-default:"1048576"`
}

// LoadCacheConfig reads CACHE_* variables. Unparseable values fall back to
// the defaults rather than failing startup.
func LoadCacheConfig() CacheConfig {
	var raw cacheEnv
	if err := cleanenv.ReadEnv(&raw); err != nil {
		raw = cacheEnv{Enabled: true, Methods: "GET", KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20}
	}
	cfg := CacheConfig{
		Enabled:      raw.Enabled,
		Methods:      parseMethods(raw.Methods),
		TTL:          raw.TTL,
		KeyStrategy:  raw.KeyStrategy,
		Prefix:       raw.Prefix,
		MaxBodyBytes: raw.MaxBodyBytes,
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = map[string]bool{"GET": true}
	}
	return cfg
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
