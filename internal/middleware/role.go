package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/authz"
)

// Authorize returns a middleware that asks policy whether the current actor
// may perform action on resource.  It is meant for checks that do not
// depend on a particular object (catalog writes, user management); object
// checks happen in the handlers once the object is loaded.  Anonymous
// callers get 401, authenticated ones 403.
func Authorize(policy *authz.Policy, resource, action string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            actor := CurrentActor(c)
            if policy.Allowed(actor, resource, action, 0) {
                return next(c)
            }
            if !actor.Authenticated {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication credentials were not provided"})
            }
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
    }
}
