package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/media-catalog/internal/authz"
	"github.com/iliyamo/media-catalog/internal/handler"
	"github.com/iliyamo/media-catalog/internal/middleware"
)

// RegisterCatalog registers categories, genres and titles.  Reads are
// public; writes need the catalog write permission.  Category and genre
// listings go through the Redis response cache, titles never do.
func RegisterCatalog(api *echo.Group, d Deps, r repos, pages handler.Pagination) {
	optional := middleware.OptionalJWTAuth(d.Config.JWTSecret, r.users)
	write := middleware.Authorize(d.Policy, authz.Catalog, authz.Write)

	// ---- Categories & genres ----
	for scope, h := range map[string]*handler.TaxonomyHandler{
		"categories": handler.NewCategoryHandler(r.categories, pages),
		"genres":     handler.NewGenreHandler(r.genres, pages),
	} {
		g := api.Group("/"+scope, optional, middleware.NewRedisCache(d.Cache, d.Redis, scope))
		g.GET("", h.List)
		g.POST("", h.Create, write)
		g.DELETE("/:slug", h.Delete, write)
	}

	// ---- Titles ----
	t := &handler.TitleHandler{Titles: r.titles, Categories: r.categories, Genres: r.genres, Pages: pages}
	g := api.Group("/titles", optional)
	g.GET("", t.List)
	g.POST("", t.Create, write)
	g.GET("/:id", t.Get)
	g.PUT("/:id", t.Update, write)
	g.PATCH("/:id", t.Update, write)
	g.DELETE("/:id", t.Delete, write)
}
