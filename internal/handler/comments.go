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
)

// CommentHandler serves /titles/:title_id/reviews/:review_id/comments.  The
// review must belong to the title in the path.
type CommentHandler struct {
    Reviews  *repository.ReviewRepo
    Comments *repository.CommentRepo
    Policy   *authz.Policy
    Pages    Pagination
}

type commentResp struct {
    ID      uint64    `json:"id"`
    Text    string    `json:"text"`
    Author  string    `json:"author"`
    PubDate time.Time `json:"pub_date"`
}

type commentReq struct {
    Text string `json:"text" validate:"notblank"`
}

func (r *commentReq) sanitize() { r.Text = utils.PlainText(r.Text) }

func toCommentResp(cm model.Comment) commentResp {
    return commentResp{ID: cm.ID, Text: cm.Text, Author: cm.AuthorUsername, PubDate: cm.PubDate}
}

// review resolves :title_id and :review_id.
func (h *CommentHandler) review(c echo.Context) (titleID, reviewID uint64, ok bool, err error) {
    titleID, ok1 := parseID(c, "title_id")
    reviewID, ok2 := parseID(c, "review_id")
    if !ok1 || !ok2 {
        return 0, 0, false, notFound(c, "review")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    _, err = h.Reviews.GetInTitle(ctx, titleID, reviewID)
    if errors.Is(err, repository.ErrNotFound) {
        return 0, 0, false, notFound(c, "review")
    }
    if err != nil {
        return 0, 0, false, internalError(c, err, "load review")
    }
    return titleID, reviewID, true, nil
}

func (h *CommentHandler) load(c echo.Context) (model.Comment, bool, error) {
    titleID, reviewID, ok, err := h.review(c)
    if !ok {
        return model.Comment{}, false, err
    }
    id, ok := parseID(c, "comment_id")
    if !ok {
        return model.Comment{}, false, notFound(c, "comment")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    cm, err := h.Comments.GetInReview(ctx, titleID, reviewID, id)
    if errors.Is(err, repository.ErrNotFound) {
        return cm, false, notFound(c, "comment")
    }
    if err != nil {
        return cm, false, internalError(c, err, "load comment")
    }
    return cm, true, nil
}

// List returns a review's comments, newest first.
func (h *CommentHandler) List(c echo.Context) error {
    _, reviewID, ok, err := h.review(c)
    if !ok {
        return err
    }
    pg, n := h.Pages.page(c)
    ctx, cancel := dbCtx(c)
    defer cancel()

    comments, total, err := h.Comments.ListByReview(ctx, reviewID, pg)
    if err != nil {
        return internalError(c, err, "list comments")
    }
    out := make([]commentResp, 0, len(comments))
    for _, cm := range comments {
        out = append(out, toCommentResp(cm))
    }
    return paginated(c, pg, n, total, out)
}

func (h *CommentHandler) Get(c echo.Context) error {
    cm, ok, err := h.load(c)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, toCommentResp(cm))
}

// Create posts a comment by the caller.
func (h *CommentHandler) Create(c echo.Context) error {
    actor := middleware.CurrentActor(c)
    if !h.Policy.Allowed(actor, authz.Comment, authz.Create, 0) {
        return denied(c, actor.Authenticated)
    }
    _, reviewID, ok, err := h.review(c)
    if !ok {
        return err
    }
    var req commentReq
    if bind(c, &req) != nil {
        return nil
    }
    u, _ := middleware.CurrentUser(c)
    cm := model.Comment{ReviewID: reviewID, AuthorID: u.ID, AuthorUsername: u.Username, Text: req.Text}

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Comments.Create(ctx, &cm); err != nil {
        return internalError(c, err, "create comment")
    }
    return c.JSON(http.StatusCreated, toCommentResp(cm))
}

// Update rewrites the text.  PUT and PATCH both take the one field.
func (h *CommentHandler) Update(c echo.Context) error {
    cm, ok, err := h.load(c)
    if !ok {
        return err
    }
    actor := middleware.CurrentActor(c)
    if !h.Policy.Allowed(actor, authz.Comment, authz.Update, cm.AuthorID) {
        return denied(c, actor.Authenticated)
    }
    var req commentReq
    if bind(c, &req) != nil {
        return nil
    }
    cm.Text = req.Text

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Comments.Update(ctx, &cm); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, "comment")
        }
        return internalError(c, err, "update comment")
    }
    return c.JSON(http.StatusOK, toCommentResp(cm))
}

func (h *CommentHandler) Delete(c echo.Context) error {
    cm, ok, err := h.load(c)
    if !ok {
        return err
    }
    actor := middleware.CurrentActor(c)
    if !h.Policy.Allowed(actor, authz.Comment, authz.Delete, cm.AuthorID) {
        return denied(c, actor.Authenticated)
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Comments.Delete(ctx, cm.ReviewID, cm.ID); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, "comment")
        }
        return internalError(c, err, "delete comment")
    }
    return c.NoContent(http.StatusNoContent)
}
