package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/logging"
    "github.com/iliyamo/media-catalog/internal/model"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
)

// UserLoader fetches the user a token was issued for.
type UserLoader interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// JWTAuth returns an Echo middleware that requires a valid Bearer access
// token.  The token's subject is reloaded from the database on every
// request so role changes and deletions take effect immediately; the user
// and the derived actor are stored in the context (see identity.go).
func JWTAuth(secret string, users UserLoader) echo.MiddlewareFunc {
    return authenticate(secret, users, false)
}

// OptionalJWTAuth is JWTAuth for routes that anonymous callers may use.
// A missing Authorization header yields an anonymous actor; a present but
// invalid one is still rejected with 401.
func OptionalJWTAuth(secret string, users UserLoader) echo.MiddlewareFunc {
    return authenticate(secret, users, true)
}

func authenticate(secret string, users UserLoader, optional bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if auth == "" {
                if optional {
                    setAnonymous(c)
                    return next(c)
                }
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication credentials were not provided"})
            }
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            id, _, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            u, err := users.GetByID(c.Request().Context(), id)
            if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found or inactive"})
            }
            if err != nil {
                logging.Ctx(c.Request().Context()).Error().Err(err).Msg("load token user")
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
            }
            setUser(c, u)
            return next(c)
        }
    }
}
