package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/media-catalog/internal/config"
    "github.com/iliyamo/media-catalog/internal/logging"
    "github.com/iliyamo/media-catalog/internal/metrics"
)

// cachedResponse is what a cache entry stores.  Headers are kept so a hit
// looks exactly like the original response.
type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// teeWriter copies up to limit bytes of the body while writing through.
type teeWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// scopePrefix is the key namespace of one cached route group, e.g.
// "catalog:cache:categories".
func scopePrefix(cfg config.CacheConfig, scope string) string {
    return cfg.Prefix + ":" + scope
}

// cacheKey hashes host, route and query.  Pagination links in the body are
// absolute, so the host is part of the key.
func cacheKey(cfg config.CacheConfig, scope string, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.Host + "\n" + c.Path() + "\n" + r.URL.RawQuery))
    return scopePrefix(cfg, scope) + ":" + hex.EncodeToString(sum[:])
}

// InvalidateCache drops every cached response of scope.
func InvalidateCache(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client, scope string) error {
    if rdb == nil {
        return nil
    }
    var keys []string
    iter := rdb.Scan(ctx, 0, scopePrefix(cfg, scope)+":*", 100).Iterator()
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil || len(keys) == 0 {
        return err
    }
    return rdb.Del(ctx, keys...).Err()
}

// NewRedisCache caches 200 responses to GET requests on one route group
// (scope).  Any successful write through the group drops the whole scope.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, scope string) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return invalidateAfter(c, next, cfg, rdb, scope)
            }

            key := cacheKey(cfg, scope, c)
            if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    metrics.CacheResults.WithLabelValues("hit").Inc()
                    for k, vals := range hit.Header {
                        c.Response().Header()[k] = vals
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.Header.Get(echo.HeaderContentType), hit.Body)
                }
            }

            metrics.CacheResults.WithLabelValues("miss").Inc()
            tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = tw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if tw.status != http.StatusOK || tw.overflow {
                return nil
            }

            entry := cachedResponse{Status: tw.status, Header: http.Header{}, Body: tw.buf.Bytes()}
            for k, vals := range c.Response().Header() {
                switch k {
                case "X-Cache", echo.HeaderXRequestID, echo.HeaderContentLength:
                    continue
                }
                entry.Header[k] = append([]string(nil), vals...)
            }
            raw, err := json.Marshal(entry)
            if err == nil {
                err = rdb.SetEx(context.Background(), key, raw, cfg.TTL).Err()
            }
            if err != nil {
                logging.Warn().Err(err).Str("scope", scope).Msg("cache store failed")
            }
            return nil
        }
    }
}

func invalidateAfter(c echo.Context, next echo.HandlerFunc, cfg config.CacheConfig, rdb *redis.Client, scope string) error {
    if err := next(c); err != nil {
        return err
    }
    if st := c.Response().Status; st >= 200 && st < 300 {
        if err := InvalidateCache(context.Background(), cfg, rdb, scope); err != nil {
            logging.Warn().Err(err).Str("scope", scope).Msg("cache invalidation failed")
        }
    }
    return nil
}
