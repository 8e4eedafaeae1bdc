package middleware

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/media-catalog/internal/config"
    "github.com/iliyamo/media-catalog/internal/logging"
    "github.com/iliyamo/media-catalog/internal/metrics"
)

// tokenBucket takes one token from the bucket at KEYS[1], refilling one per
// interval since the last refill.  It returns {allowed, remaining, retry_ms}.
var tokenBucket = redis.NewScript(`
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local idle = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'refilled')
local tokens = tonumber(state[1]) or burst
local refilled = tonumber(state[2]) or now

local steps = math.floor(math.max(0, now - refilled) / interval)
if steps > 0 then
    tokens = math.min(burst, tokens + steps)
    refilled = refilled + steps * interval
end

local allowed = 0
local retry = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry = math.max(0, interval - (now - refilled))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'refilled', refilled)
redis.call('PEXPIRE', KEYS[1], idle)
return {allowed, tokens, retry}
`)

// NewTokenBucket limits requests with a Redis token bucket shared by every
// server instance.  Without Redis, or when Redis fails, requests pass.
func NewTokenBucket(cfg config.AuthLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Burst, cfg.Refill.Milliseconds(), cfg.Idle().Milliseconds(),
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                logging.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
            if res[0] == 1 {
                return next(c)
            }

            retry := (time.Duration(res[2])*time.Millisecond + time.Second - 1) / time.Second
            h.Set("Retry-After", strconv.FormatInt(int64(retry), 10))
            metrics.RateLimited.Inc()
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "retry_after": int64(retry),
            })
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// rateKey buckets by client IP, and by route too when cfg.PerRoute is set.
func rateKey(cfg config.AuthLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    key := cfg.Prefix + ":ip:" + ip
    if cfg.PerRoute {
        key += ":route:" + c.Request().Method + " " + c.Path()
    }
    return key
}
