package config

import "time"

// AuthLimitConfig drives the Redis token bucket in front of /auth.  Every
// client starts with Burst requests and gets one back each Refill.
type AuthLimitConfig struct {
    Enabled  bool
    Burst    int
    Refill   time.Duration
    PerRoute bool // bucket per client and route instead of per client
    Prefix   string
}

// Idle is how long an untouched bucket lives in Redis: the time it takes
// to refill completely, plus one interval.
func (c AuthLimitConfig) Idle() time.Duration {
    return time.Duration(c.Burst+1) * c.Refill
}

// LoadAuthLimitConfig reads RATE_LIMIT_*.  Burst and Refill are clamped to
// at least one request and one millisecond.
func LoadAuthLimitConfig() AuthLimitConfig {
    cfg := AuthLimitConfig{
        Enabled:  envBool("RATE_LIMIT_ENABLED", true),
        Burst:    envInt("RATE_LIMIT_BURST", 10),
        Refill:   envDur("RATE_LIMIT_REFILL_EVERY", 6*time.Second),
        PerRoute: envBool("RATE_LIMIT_PER_ROUTE", true),
        Prefix:   envStr("RATE_LIMIT_PREFIX", "catalog:rl"),
    }
    if cfg.Burst < 1 {
        cfg.Burst = 1
    }
    if cfg.Refill < time.Millisecond {
        cfg.Refill = time.Millisecond
    }
    return cfg
}

// CacheConfig configures the Redis cache for category and genre lists.
// Titles are never cached because their rating changes with every review.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int // larger responses are not stored; 0 means no limit
}

// LoadCacheConfig reads CACHE_*.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", time.Minute),
        Prefix:       envStr("CACHE_PREFIX", "catalog:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Minute
    }
    return cfg
}
