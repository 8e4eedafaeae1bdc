package handler // handler defines http handlers

import (
    "context"
    "errors"
    "net/http"
    "net/url"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/logging"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
    "github.com/iliyamo/media-catalog/internal/validation"
)

// dbTimeout bounds every repository call made by a handler.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// bind decodes the JSON body into dst and validates it.  The returned
// error has already been written to the response.
func bind(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
        return err
    }
    if s, ok := dst.(sanitizer); ok {
        s.sanitize()
    }
    if err := validation.Struct(dst); err != nil {
        return validationFailed(c, err)
    }
    return nil
}

// sanitizer is implemented by payloads carrying free text.  bind strips
// markup before validating so markup-only input counts as blank.
type sanitizer interface {
    sanitize()
}

func plainPtr(s *string) {
    if s != nil {
        *s = utils.PlainText(*s)
    }
}

// validationFailed writes a 400 with field messages and returns err so
// callers can `return` it through bind-style helpers.  Non-validation
// errors become a 500.
func validationFailed(c echo.Context, err error) error {
    var ve *validation.Errors
    if errors.As(err, &ve) {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": ve.Fields})
        return err
    }
    _ = internalError(c, err, "validation failed")
    return err
}

// internalError logs err with the request id and writes a generic 500.
func internalError(c echo.Context, err error, msg string) error {
    logging.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg(msg)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func notFound(c echo.Context, what string) error {
    return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}

// denied answers 401 for anonymous callers and 403 for everybody else.
func denied(c echo.Context, authenticated bool) error {
    if !authenticated {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication credentials were not provided"})
    }
    return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

// Pagination holds the page size settings shared by list endpoints.
type Pagination struct {
    Default int
    Max     int
}

// page reads ?page and ?page_size.
func (p Pagination) page(c echo.Context) (repository.Page, int) {
    n, _ := strconv.Atoi(c.QueryParam("page"))
    if n < 1 {
        n = 1
    }
    size := p.Default
    if s, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && s > 0 {
        size = s
    }
    return repository.NewPage(n, size, p.Max), n
}

// pageEnvelope is the list response shape.
type pageEnvelope struct {
    Count    int     `json:"count"`
    Next     *string `json:"next"`
    Previous *string `json:"previous"`
    Results  any     `json:"results"`
}

// paginated wraps results with the total count and links to the
// neighbouring pages, keeping every other query parameter.
func paginated(c echo.Context, pg repository.Page, pageNum, count int, results any) error {
    env := pageEnvelope{Count: count, Results: results}
    if pg.Offset+pg.Limit < count {
        env.Next = pageLink(c, pageNum+1)
    }
    if pageNum > 1 {
        env.Previous = pageLink(c, pageNum-1)
    }
    return c.JSON(http.StatusOK, env)
}

func pageLink(c echo.Context, n int) *string {
    req := c.Request()
    u := url.URL{Scheme: c.Scheme(), Host: req.Host, Path: req.URL.Path}
    q := req.URL.Query()
    if n <= 1 {
        q.Del("page")
    } else {
        q.Set("page", strconv.Itoa(n))
    }
    u.RawQuery = q.Encode()
    s := u.String()
    return &s
}
