package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/logging"
    "github.com/iliyamo/media-catalog/internal/metrics"
)

// RequestID keeps an upstream X-Request-ID or assigns a UUID, echoes it in
// the response and attaches it to the request context for logging.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(echo.HeaderXRequestID)
            if id == "" {
                id = uuid.New().String()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, id)
            c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
            return next(c)
        }
    }
}

// RequestLogger logs one line per request and records the Prometheus
// request metrics.  The route label is the registered path pattern, not
// the raw URL, to keep label cardinality bounded.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            metrics.APIActiveRequests.Inc()
            defer metrics.APIActiveRequests.Dec()

            err := next(c)
            if err != nil {
                c.Error(err) // let echo write the response so the status is final
            }

            req := c.Request()
            status := c.Response().Status
            latency := time.Since(start)
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            metrics.RecordAPIRequest(req.Method, route, status, latency)

            ev := logging.Ctx(req.Context()).Info()
            if status >= 500 {
                ev = logging.Ctx(req.Context()).Error().AnErr("handler_error", err)
            }
            ev.Str("method", req.Method).
                Str("uri", req.RequestURI).
                Str("route", route).
                Int("status", status).
                Dur("latency", latency).
                Str("remote_ip", c.RealIP()).
                Str("user", userID(c)).
                Msg("request")
            return nil
        }
    }
}
