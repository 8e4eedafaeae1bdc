package middleware

// identity.go keeps the authenticated user and its authorization actor in
// the Echo context.  Authentication middleware sets them; handlers and the
// rate limiter read them back.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/authz"
    "github.com/iliyamo/media-catalog/internal/model"
)

const (
    ctxUser  = "user"
    ctxActor = "actor"
)

// ActorFor maps a user record onto an authorization actor.
func ActorFor(u model.User) authz.Actor {
    return authz.Actor{ID: u.ID, Role: u.Role, Superuser: u.IsSuperuser, Authenticated: true}
}

func setUser(c echo.Context, u model.User) {
    c.Set(ctxUser, u)
    c.Set(ctxActor, ActorFor(u))
}

func setAnonymous(c echo.Context) {
    c.Set(ctxActor, authz.Anonymous)
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c echo.Context) (model.User, bool) {
    u, ok := c.Get(ctxUser).(model.User)
    return u, ok
}

// CurrentActor returns the requester's actor; anonymous when nobody
// authenticated.
func CurrentActor(c echo.Context) authz.Actor {
    if a, ok := c.Get(ctxActor).(authz.Actor); ok {
        return a
    }
    return authz.Anonymous
}

// userID returns the authenticated user id as a string, or "anon".
func userID(c echo.Context) string {
    if u, ok := CurrentUser(c); ok {
        return strconv.FormatUint(u.ID, 10)
    }
    return "anon"
}
