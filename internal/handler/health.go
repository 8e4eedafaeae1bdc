package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// Health is a simple liveness endpoint used by load balancers and
// monitoring systems.  It returns a plain text "ok" with status 200.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports whether the database answers.  Redis is optional: its state
// is reported but never fails the check.
func Ready(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        out := echo.Map{"database": "ok", "redis": "disabled"}
        status := http.StatusOK
        if err := db.PingContext(ctx); err != nil {
            out["database"] = err.Error()
            status = http.StatusServiceUnavailable
        }
        if rdb != nil {
            out["redis"] = "ok"
            if err := rdb.Ping(ctx).Err(); err != nil {
                out["redis"] = err.Error()
            }
        }
        return c.JSON(status, out)
    }
}
