package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
    "github.com/iliyamo/media-catalog/internal/validation"
)

// slugStore is satisfied by CategoryRepo and GenreRepo.
type slugStore interface {
    List(ctx context.Context, search string, p repository.Page) ([]repository.SlugItem, int, error)
    Create(ctx context.Context, it *repository.SlugItem) error
    DeleteBySlug(ctx context.Context, slug string) error
}

// TaxonomyHandler serves either /categories or /genres; Kind names the
// resource in messages ("category", "genre").
type TaxonomyHandler struct {
    Kind  string
    Store slugStore
    Pages Pagination
}

// NewCategoryHandler and NewGenreHandler bind a TaxonomyHandler to its repo.
func NewCategoryHandler(r *repository.CategoryRepo, p Pagination) *TaxonomyHandler {
    return &TaxonomyHandler{Kind: "category", Store: r, Pages: p}
}

func NewGenreHandler(r *repository.GenreRepo, p Pagination) *TaxonomyHandler {
    return &TaxonomyHandler{Kind: "genre", Store: r, Pages: p}
}

type slugResp struct {
    Name string `json:"name"`
    Slug string `json:"slug"`
}

type slugReq struct {
    Name string `json:"name" validate:"notblank,max=200"`
    Slug string `json:"slug" validate:"required,max=50,slug"`
}

func (r *slugReq) sanitize() {
    r.Name = utils.PlainText(r.Name)
    r.Slug = strings.TrimSpace(r.Slug)
}

// List returns items ordered by id, optionally filtered by ?search on name.
func (h *TaxonomyHandler) List(c echo.Context) error {
    pg, n := h.Pages.page(c)
    ctx, cancel := dbCtx(c)
    defer cancel()

    items, total, err := h.Store.List(ctx, c.QueryParam("search"), pg)
    if err != nil {
        return internalError(c, err, "list "+h.Kind)
    }
    out := make([]slugResp, 0, len(items))
    for _, it := range items {
        out = append(out, slugResp{Name: it.Name, Slug: it.Slug})
    }
    return paginated(c, pg, n, total, out)
}

// Create adds an item; the slug must be unused.
func (h *TaxonomyHandler) Create(c echo.Context) error {
    var req slugReq
    if bind(c, &req) != nil {
        return nil
    }
    it := repository.SlugItem{Name: req.Name, Slug: req.Slug}

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Store.Create(ctx, &it); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            _ = validationFailed(c, validation.Field("slug", h.Kind+" with this slug already exists."))
            return nil
        }
        return internalError(c, err, "create "+h.Kind)
    }
    return c.JSON(http.StatusCreated, slugResp{Name: it.Name, Slug: it.Slug})
}

// Delete removes the item named by :slug.
func (h *TaxonomyHandler) Delete(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Store.DeleteBySlug(ctx, c.Param("slug")); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, h.Kind)
        }
        return internalError(c, err, "delete "+h.Kind)
    }
    return c.NoContent(http.StatusNoContent)
}
