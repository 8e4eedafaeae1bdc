package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/media-catalog/internal/authz"
	"github.com/iliyamo/media-catalog/internal/config"
	"github.com/iliyamo/media-catalog/internal/handler"
	"github.com/iliyamo/media-catalog/internal/middleware"
	"github.com/iliyamo/media-catalog/internal/repository"
	"github.com/iliyamo/media-catalog/internal/service"
)

// Deps carries everything the HTTP layer needs.  Redis may be nil.
type Deps struct {
	Config    config.Config
	RateLimit config.AuthLimitConfig
	Cache     config.CacheConfig
	DB        *sql.DB
	Redis     *redis.Client
	Policy    *authz.Policy
	Sender    service.CodeSender
}

// repos groups the repositories built over Deps.DB.
type repos struct {
	users      *repository.UserRepo
	codes      *repository.CodeRepo
	tokens     *repository.TokenRepo
	categories *repository.CategoryRepo
	genres     *repository.GenreRepo
	titles     *repository.TitleRepo
	reviews    *repository.ReviewRepo
	comments   *repository.CommentRepo
}

func newRepos(db *sql.DB) repos {
	return repos{
		users:      repository.NewUserRepo(db),
		codes:      repository.NewCodeRepo(db),
		tokens:     repository.NewTokenRepo(db),
		categories: repository.NewCategoryRepo(db),
		genres:     repository.NewGenreRepo(db),
		titles:     repository.NewTitleRepo(db),
		reviews:    repository.NewReviewRepo(db),
		comments:   repository.NewCommentRepo(db),
	}
}

// New builds the Echo instance with global middleware and every route.
// Paths are served with or without a trailing slash.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.RequestID(), middleware.RequestLogger(), echomw.Recover())

	r := newRepos(d.DB)
	pages := handler.Pagination{Default: d.Config.PageSize, Max: d.Config.MaxPageSize}

	RegisterRoutes(e, d)

	api := e.Group("/api/v1")
	flow := service.NewConfirmation(r.users, r.codes, d.Sender, service.ConfirmationOptions{
		CodeTTL:       d.Config.CodeTTL,
		BcryptCost:    d.Config.BcryptCost,
		IssueInterval: d.Config.CodeIssueInterval,
		IssueBurst:    d.Config.CodeIssueBurst,
	})
	RegisterAuth(api, &handler.AuthHandler{
		Secret:     d.Config.JWTSecret,
		AccessTTL:  d.Config.AccessTTL,
		RefreshTTL: d.Config.RefreshTTL,
		Flow:       flow,
		Users:      r.users,
		Tokens:     r.tokens,
	}, middleware.NewTokenBucket(d.RateLimit, d.Redis))

	RegisterUsers(api, &handler.UserHandler{Users: r.users, Pages: pages}, d.Policy, d.Config.JWTSecret, r.users)
	RegisterCatalog(api, d, r, pages)
	RegisterReviews(api, d, r, pages)
	return e
}

// RegisterRoutes registers routes outside the API prefix: liveness,
// readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.DB, d.Redis))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the e-mail code flow and token endpoints.  None of
// them require a session; all share the rate limiter.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := api.Group("/auth", limiter)
	g.POST("/email", a.Email)
	g.POST("/token", a.Token)
	g.POST("/token/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterUsers registers /users.  /users/me is open to every authenticated
// user; the rest of the group is for superusers.
func RegisterUsers(api *echo.Group, u *handler.UserHandler, policy *authz.Policy, secret string, users middleware.UserLoader) {
	g := api.Group("/users", middleware.JWTAuth(secret, users))

	profile := middleware.Authorize(policy, authz.Profile, authz.Manage)
	g.GET("/me", u.Me, profile)
	g.PATCH("/me", u.UpdateMe, profile)

	manage := middleware.Authorize(policy, authz.Users, authz.Manage)
	g.GET("", u.List, manage)
	g.POST("", u.Create, manage)
	g.GET("/:username", u.Get, manage)
	g.PUT("/:username", u.Update, manage)
	g.PATCH("/:username", u.Update, manage)
	g.DELETE("/:username", u.Delete, manage)
}
