package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/media-catalog/internal/handler"
	"github.com/iliyamo/media-catalog/internal/middleware"
)

// RegisterReviews registers reviews and comments nested under a title.
// Authentication is optional at the route level; the handlers check the
// policy once the target object and its author are known.
func RegisterReviews(api *echo.Group, d Deps, r repos, pages handler.Pagination) {
	rv := &handler.ReviewHandler{Titles: r.titles, Reviews: r.reviews, Policy: d.Policy, Pages: pages}
	cm := &handler.CommentHandler{Reviews: r.reviews, Comments: r.comments, Policy: d.Policy, Pages: pages}

	g := api.Group("/titles/:title_id/reviews", middleware.OptionalJWTAuth(d.Config.JWTSecret, r.users))

	// ---- Reviews ----
	g.GET("", rv.List)
	g.POST("", rv.Create)
	g.GET("/:review_id", rv.Get)
	g.PUT("/:review_id", rv.Update)
	g.PATCH("/:review_id", rv.Update)
	g.DELETE("/:review_id", rv.Delete)

	// ---- Comments ----
	g.GET("/:review_id/comments", cm.List)
	g.POST("/:review_id/comments", cm.Create)
	g.GET("/:review_id/comments/:comment_id", cm.Get)
	g.PUT("/:review_id/comments/:comment_id", cm.Update)
	g.PATCH("/:review_id/comments/:comment_id", cm.Update)
	g.DELETE("/:review_id/comments/:comment_id", cm.Delete)
}
