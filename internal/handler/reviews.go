package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/authz"
    "github.com/iliyamo/media-catalog/internal/middleware"
    "github.com/iliyamo/media-catalog/internal/model"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
    "github.com/iliyamo/media-catalog/internal/validation"
)

// ReviewHandler serves /titles/:title_id/reviews.
type ReviewHandler struct {
    Titles  *repository.TitleRepo
    Reviews *repository.ReviewRepo
    Policy  *authz.Policy
    Pages   Pagination
}

type reviewResp struct {
    ID      uint64    `json:"id"`
    Text    string    `json:"text"`
    Author  string    `json:"author"`
    Score   int       `json:"score"`
    PubDate time.Time `json:"pub_date"`
}

type reviewReq struct {
    Text  string `json:"text" validate:"notblank"`
    Score int    `json:"score" validate:"required,min=1,max=10"`
}

type reviewPatchReq struct {
    Text  *string `json:"text" validate:"omitnil,notblank"`
    Score *int    `json:"score" validate:"omitnil,min=1,max=10"`
}

func (r *reviewReq) sanitize() { r.Text = utils.PlainText(r.Text) }
func (p *reviewPatchReq) sanitize() { plainPtr(p.Text) }

func toReviewResp(r model.Review) reviewResp {
    return reviewResp{ID: r.ID, Text: r.Text, Author: r.AuthorUsername, Score: r.Score, PubDate: r.PubDate}
}

// errReviewExists is the answer to a second review of the same title.
var errReviewExists = validation.Field("non_field_errors", "review already exist")

// title resolves :title_id, writing a 404 when it does not exist.
func (h *ReviewHandler) title(c echo.Context) (uint64, bool, error) {
    id, ok := parseID(c, "title_id")
    if !ok {
        return 0, false, notFound(c, "title")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    exists, err := h.Titles.Exists(ctx, id)
    if err != nil {
        return 0, false, internalError(c, err, "load title")
    }
    if !exists {
        return 0, false, notFound(c, "title")
    }
    return id, true, nil
}

func (h *ReviewHandler) load(c echo.Context, titleID uint64) (model.Review, bool, error) {
    id, ok := parseID(c, "review_id")
    if !ok {
        return model.Review{}, false, notFound(c, "review")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    rv, err := h.Reviews.GetInTitle(ctx, titleID, id)
    if errors.Is(err, repository.ErrNotFound) {
        return rv, false, notFound(c, "review")
    }
    if err != nil {
        return rv, false, internalError(c, err, "load review")
    }
    return rv, true, nil
}

// List returns a title's reviews, newest first.
func (h *ReviewHandler) List(c echo.Context) error {
    titleID, ok, err := h.title(c)
    if !ok {
        return err
    }
    pg, n := h.Pages.page(c)
    ctx, cancel := dbCtx(c)
    defer cancel()

    reviews, total, err := h.Reviews.ListByTitle(ctx, titleID, pg)
    if err != nil {
        return internalError(c, err, "list reviews")
    }
    out := make([]reviewResp, 0, len(reviews))
    for _, r := range reviews {
        out = append(out, toReviewResp(r))
    }
    return paginated(c, pg, n, total, out)
}

// Get returns one review of the title.
func (h *ReviewHandler) Get(c echo.Context) error {
    titleID, ok, err := h.title(c)
    if !ok {
        return err
    }
    rv, ok, err := h.load(c, titleID)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, toReviewResp(rv))
}

// Create posts the caller's review.  Each user reviews a title at most once.
func (h *ReviewHandler) Create(c echo.Context) error {
    actor := middleware.CurrentActor(c)
    if !h.Policy.Allowed(actor, authz.Review, authz.Create, 0) {
        return denied(c, actor.Authenticated)
    }
    titleID, ok, err := h.title(c)
    if !ok {
        return err
    }
    var req reviewReq
    if bind(c, &req) != nil {
        return nil
    }
    u, _ := middleware.CurrentUser(c)

    ctx, cancel := dbCtx(c)
    defer cancel()
    exists, err := h.Reviews.ExistsForAuthor(ctx, titleID, u.ID)
    if err != nil {
        return internalError(c, err, "check review")
    }
    if exists {
        _ = validationFailed(c, errReviewExists)
        return nil
    }
    rv := model.Review{
        TitleID: titleID, AuthorID: u.ID, AuthorUsername: u.Username,
        Text: req.Text, Score: req.Score,
    }
    if err := h.Reviews.Create(ctx, &rv); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            _ = validationFailed(c, errReviewExists)
            return nil
        }
        return internalError(c, err, "create review")
    }
    return c.JSON(http.StatusCreated, toReviewResp(rv))
}

// Update edits text and score.  Allowed for the author, admins and
// superusers.
func (h *ReviewHandler) Update(c echo.Context) error {
    titleID, ok, err := h.title(c)
    if !ok {
        return err
    }
    rv, ok, err := h.load(c, titleID)
    if !ok {
        return err
    }
    actor := middleware.CurrentActor(c)
    if !h.Policy.Allowed(actor, authz.Review, authz.Update, rv.AuthorID) {
        return denied(c, actor.Authenticated)
    }

    if c.Request().Method == http.MethodPut {
        var req reviewReq
        if bind(c, &req) != nil {
            return nil
        }
        rv.Text, rv.Score = req.Text, req.Score
    } else {
        var req reviewPatchReq
        if bind(c, &req) != nil {
            return nil
        }
        if req.Text != nil {
            rv.Text = *req.Text
        }
        if req.Score != nil {
            rv.Score = *req.Score
        }
    }

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Reviews.Update(ctx, &rv); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, "review")
        }
        return internalError(c, err, "update review")
    }
    return c.JSON(http.StatusOK, toReviewResp(rv))
}

// Delete removes a review and its comments.  Allowed for the author,
// moderators, admins and superusers.
func (h *ReviewHandler) Delete(c echo.Context) error {
    titleID, ok, err := h.title(c)
    if !ok {
        return err
    }
    rv, ok, err := h.load(c, titleID)
    if !ok {
        return err
    }
    actor := middleware.CurrentActor(c)
    if !h.Policy.Allowed(actor, authz.Review, authz.Delete, rv.AuthorID) {
        return denied(c, actor.Authenticated)
    }

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Reviews.Delete(ctx, titleID, rv.ID); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, "review")
        }
        return internalError(c, err, "delete review")
    }
    return c.NoContent(http.StatusNoContent)
}
