package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/media-catalog/internal/authz"
    "github.com/iliyamo/media-catalog/internal/config"
    "github.com/iliyamo/media-catalog/internal/model"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
)

const secret = "test-secret"

type fakeUsers map[uint64]model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
    u, ok := f[id]
    if !ok {
        return model.User{}, repository.ErrNotFound
    }
    return u, nil
}

func bearer(t *testing.T, id uint64) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, id, "user", time.Minute)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func serve(mw []echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, authz.Actor) {
    e := echo.New()
    var seen authz.Actor
    e.GET("/x", func(c echo.Context) error {
        seen = CurrentActor(c)
        return c.NoContent(http.StatusNoContent)
    }, mw...)
    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec, seen
}

func TestJWTAuth(t *testing.T) {
    users := fakeUsers{
        1: {ID: 1, Username: "amy", Role: model.RoleModerator, IsActive: true},
        2: {ID: 2, Username: "gone", Role: model.RoleUser, IsActive: false},
    }
    mw := []echo.MiddlewareFunc{JWTAuth(secret, users)}

    rec, actor := serve(mw, bearer(t, 1))
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Equal(t, authz.Actor{ID: 1, Role: model.RoleModerator, Authenticated: true}, actor)

    for name, header := range map[string]string{
        "missing":  "",
        "scheme":   "Token abc",
        "garbage":  "Bearer abc",
        "inactive": bearer(t, 2),
        "deleted":  bearer(t, 3),
    } {
        t.Run(name, func(t *testing.T) {
            rec, _ := serve(mw, header)
            assert.Equal(t, http.StatusUnauthorized, rec.Code)
        })
    }
}

func TestOptionalJWTAuth(t *testing.T) {
    users := fakeUsers{1: {ID: 1, Role: model.RoleUser, IsActive: true}}
    mw := []echo.MiddlewareFunc{OptionalJWTAuth(secret, users)}

    rec, actor := serve(mw, "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.False(t, actor.Authenticated)

    rec, _ = serve(mw, "Bearer nope")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorize(t *testing.T) {
    policy := authz.MustNew()
    users := fakeUsers{
        1: {ID: 1, Role: model.RoleUser, IsActive: true},
        2: {ID: 2, Role: model.RoleAdmin, IsSuperuser: true, IsStaff: true, IsActive: true},
    }
    mw := []echo.MiddlewareFunc{OptionalJWTAuth(secret, users), Authorize(policy, authz.Catalog, authz.Write)}

    rec, _ := serve(mw, "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    rec, _ = serve(mw, bearer(t, 1))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    rec, _ = serve(mw, bearer(t, 2))
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestID(t *testing.T) {
    e := echo.New()
    e.Use(RequestID(), RequestLogger())
    e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
    assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    req.Header.Set(echo.HeaderXRequestID, "upstream-id")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, "upstream-id", rec.Header().Get(echo.HeaderXRequestID))
}

func TestTeeWriterStopsAtLimit(t *testing.T) {
    rec := httptest.NewRecorder()
    tw := &teeWriter{ResponseWriter: rec, status: http.StatusOK, limit: 8}
    _, _ = tw.Write([]byte(`{"a":1}`))
    assert.False(t, tw.overflow)
    assert.Equal(t, `{"a":1}`, tw.buf.String())

    _, _ = tw.Write([]byte(`,"b":2}`))
    assert.True(t, tw.overflow)
    assert.Zero(t, tw.buf.Len())
    assert.Equal(t, `{"a":1},"b":2}`, rec.Body.String(), "the client still gets everything")
}

func TestCacheKey(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "p"}
    e := echo.New()
    ctxFor := func(target string) echo.Context {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
        c.SetPath("/api/v1/genres")
        return c
    }

    c := ctxFor("http://a.test/api/v1/genres?search=a")
    key := cacheKey(cfg, "genres", c)
    assert.Regexp(t, `^p:genres:[0-9a-f]{40}$`, key)
    assert.NotEqual(t, key, cacheKey(cfg, "categories", c))
    assert.NotEqual(t, key, cacheKey(cfg, "genres", ctxFor("http://a.test/api/v1/genres?search=b")))
    assert.NotEqual(t, key, cacheKey(cfg, "genres", ctxFor("http://b.test/api/v1/genres?search=a")),
        "cached pages carry absolute links for their host")
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
    mw := NewRedisCache(config.CacheConfig{Enabled: true}, nil, "genres")
    rec, _ := serve([]echo.MiddlewareFunc{mw}, "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.NoError(t, InvalidateCache(context.Background(), config.CacheConfig{}, nil, "genres"))
}

func TestRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/email", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/v1/auth/email")

    key := rateKey(config.AuthLimitConfig{Prefix: "rl", PerRoute: true}, c)
    assert.Equal(t, "rl:ip:10.0.0.1:route:POST /api/v1/auth/email", key)

    key = rateKey(config.AuthLimitConfig{Prefix: "rl"}, c)
    assert.Equal(t, "rl:ip:10.0.0.1", key)
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
    mw := NewTokenBucket(config.AuthLimitConfig{Enabled: true, Burst: 1, Refill: time.Second}, nil)
    for i := 0; i < 3; i++ {
        rec, _ := serve([]echo.MiddlewareFunc{mw}, "")
        assert.Equal(t, http.StatusNoContent, rec.Code)
    }
}
