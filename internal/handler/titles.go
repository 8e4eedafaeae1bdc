package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/model"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
    "github.com/iliyamo/media-catalog/internal/validation"
)

// TitleHandler serves /titles.  Category and genres are referenced by slug
// in write payloads and nested as objects in read payloads.
type TitleHandler struct {
    Titles     *repository.TitleRepo
    Categories *repository.CategoryRepo
    Genres     *repository.GenreRepo
    Pages      Pagination
}

// ----- DTOs -----

type titleReadResp struct {
    ID          uint64     `json:"id"`
    Name        string     `json:"name"`
    Year        *int       `json:"year"`
    Description *string    `json:"description"`
    Category    *slugResp  `json:"category"`
    Genre       []slugResp `json:"genre"`
    Rating      *float64   `json:"rating"`
}

type titleWriteResp struct {
    ID          uint64   `json:"id"`
    Name        string   `json:"name"`
    Year        *int     `json:"year"`
    Description *string  `json:"description"`
    Category    *string  `json:"category"`
    Genre       []string `json:"genre"`
}

type titleReq struct {
    Name        string   `json:"name" validate:"notblank,max=200"`
    Year        *int     `json:"year" validate:"omitnil,min=0,max=2100"`
    Description *string  `json:"description"`
    Category    *string  `json:"category" validate:"omitnil,max=50"`
    Genre       []string `json:"genre" validate:"required,min=1,dive,required,max=50"`
}

type titlePatchReq struct {
    Name        *string   `json:"name" validate:"omitnil,notblank,max=200"`
    Year        *int      `json:"year" validate:"omitnil,min=0,max=2100"`
    Description *string   `json:"description"`
    Category    *string   `json:"category" validate:"omitnil,max=50"`
    Genre       *[]string `json:"genre" validate:"omitnil,min=1,dive,required,max=50"`
}

func (r *titleReq) sanitize() {
    r.Name = utils.PlainText(r.Name)
    plainPtr(r.Description)
}

func (p *titlePatchReq) sanitize() {
    plainPtr(p.Name)
    plainPtr(p.Description)
}

func toTitleRead(t model.Title) titleReadResp {
    out := titleReadResp{
        ID: t.ID, Name: t.Name, Year: t.Year, Description: t.Description,
        Genre: make([]slugResp, 0, len(t.Genres)), Rating: t.Rating,
    }
    if t.Category != nil {
        out.Category = &slugResp{Name: t.Category.Name, Slug: t.Category.Slug}
    }
    for _, g := range t.Genres {
        out.Genre = append(out.Genre, slugResp{Name: g.Name, Slug: g.Slug})
    }
    return out
}

func toTitleWrite(t model.Title) titleWriteResp {
    out := titleWriteResp{
        ID: t.ID, Name: t.Name, Year: t.Year, Description: t.Description,
        Genre: make([]string, 0, len(t.Genres)),
    }
    if t.Category != nil {
        out.Category = &t.Category.Slug
    }
    for _, g := range t.Genres {
        out.Genre = append(out.Genre, g.Slug)
    }
    return out
}

// titleDraft is the writable state of a title with slugs not yet resolved.
type titleDraft struct {
    name        string
    year        *int
    description *string
    category    *string
    genres      []string
}

func draftFrom(t model.Title) titleDraft {
    d := titleDraft{name: t.Name, year: t.Year, description: t.Description}
    if t.Category != nil {
        d.category = &t.Category.Slug
    }
    for _, g := range t.Genres {
        d.genres = append(d.genres, g.Slug)
    }
    return d
}

func (r titleReq) draft() titleDraft {
    return titleDraft{name: r.Name, year: r.Year, description: r.Description, category: r.Category, genres: r.Genre}
}

func (p titlePatchReq) overlay(d titleDraft) titleDraft {
    if p.Name != nil {
        d.name = *p.Name
    }
    if p.Year != nil {
        d.year = p.Year
    }
    if p.Description != nil {
        d.description = p.Description
    }
    if p.Category != nil {
        d.category = p.Category
    }
    if p.Genre != nil {
        d.genres = *p.Genre
    }
    return d
}

// resolve turns slugs into ids.  Unknown slugs become field errors.
func (h *TitleHandler) resolve(ctx context.Context, d titleDraft) (repository.TitleWrite, error) {
    w := repository.TitleWrite{Name: d.name, Year: d.year, Description: d.description}

    var errs validation.Errors
    if d.category != nil && strings.TrimSpace(*d.category) != "" {
        cat, err := h.Categories.GetBySlug(ctx, strings.TrimSpace(*d.category))
        switch {
        case errors.Is(err, repository.ErrNotFound):
            errs.Add("category", "Object with slug="+*d.category+" does not exist.")
        case err != nil:
            return w, err
        default:
            w.CategoryID = &cat.ID
        }
    }
    for _, slug := range d.genres {
        g, err := h.Genres.GetBySlug(ctx, strings.TrimSpace(slug))
        switch {
        case errors.Is(err, repository.ErrNotFound):
            errs.Add("genre", "Object with slug="+slug+" does not exist.")
        case err != nil:
            return w, err
        default:
            w.GenreIDs = append(w.GenreIDs, g.ID)
        }
    }
    return w, errs.Err()
}

// titleFilter reads the list query parameters.
func titleFilter(c echo.Context) (repository.TitleFilter, error) {
    f := repository.TitleFilter{
        Genre:    c.QueryParam("genre"),
        Category: c.QueryParam("category"),
        Name:     c.QueryParam("name"),
    }
    if raw := strings.TrimSpace(c.QueryParam("year")); raw != "" {
        y, err := strconv.Atoi(raw)
        if err != nil {
            return f, validation.Field("year", "Enter a whole number.")
        }
        f.Year = &y
    }
    return f, nil
}

// List returns titles ordered by id, filtered by ?genre, ?category, ?year
// and ?name.
func (h *TitleHandler) List(c echo.Context) error {
    f, err := titleFilter(c)
    if err != nil {
        _ = validationFailed(c, err)
        return nil
    }
    pg, n := h.Pages.page(c)
    ctx, cancel := dbCtx(c)
    defer cancel()

    titles, total, err := h.Titles.List(ctx, f, pg)
    if err != nil {
        return internalError(c, err, "list titles")
    }
    out := make([]titleReadResp, 0, len(titles))
    for _, t := range titles {
        out = append(out, toTitleRead(t))
    }
    return paginated(c, pg, n, total, out)
}

// Get returns one title with its current rating.
func (h *TitleHandler) Get(c echo.Context) error {
    t, ok, err := h.load(c)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, toTitleRead(t))
}

func (h *TitleHandler) load(c echo.Context) (model.Title, bool, error) {
    id, ok := parseID(c, "id")
    if !ok {
        return model.Title{}, false, notFound(c, "title")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    t, err := h.Titles.GetByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return t, false, notFound(c, "title")
    }
    if err != nil {
        return t, false, internalError(c, err, "load title")
    }
    return t, true, nil
}

// Create adds a title.
func (h *TitleHandler) Create(c echo.Context) error {
    var req titleReq
    if bind(c, &req) != nil {
        return nil
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    w, err := h.resolve(ctx, req.draft())
    if err != nil {
        _ = validationFailed(c, err)
        return nil
    }
    id, err := h.Titles.Create(ctx, w)
    if err != nil {
        return internalError(c, err, "create title")
    }
    return h.respondWrite(ctx, c, id, http.StatusCreated)
}

// Update handles PUT (full body) and PATCH (sent fields only).
func (h *TitleHandler) Update(c echo.Context) error {
    cur, ok, err := h.load(c)
    if !ok {
        return err
    }
    var d titleDraft
    if c.Request().Method == http.MethodPut {
        var req titleReq
        if bind(c, &req) != nil {
            return nil
        }
        d = req.draft()
    } else {
        var req titlePatchReq
        if bind(c, &req) != nil {
            return nil
        }
        d = req.overlay(draftFrom(cur))
    }

    ctx, cancel := dbCtx(c)
    defer cancel()
    w, err := h.resolve(ctx, d)
    if err != nil {
        _ = validationFailed(c, err)
        return nil
    }
    if err := h.Titles.Update(ctx, cur.ID, w); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, "title")
        }
        return internalError(c, err, "update title")
    }
    return h.respondWrite(ctx, c, cur.ID, http.StatusOK)
}

func (h *TitleHandler) respondWrite(ctx context.Context, c echo.Context, id uint64, status int) error {
    t, err := h.Titles.GetByID(ctx, id)
    if err != nil {
        return internalError(c, err, "reload title")
    }
    return c.JSON(status, toTitleWrite(t))
}

// Delete removes a title with its reviews, comments and genre links.
func (h *TitleHandler) Delete(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return notFound(c, "title")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Titles.Delete(ctx, id); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, "title")
        }
        return internalError(c, err, "delete title")
    }
    return c.NoContent(http.StatusNoContent)
}
