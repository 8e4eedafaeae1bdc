package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/model"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/service"
    "github.com/iliyamo/media-catalog/internal/utils"
)

// AuthHandler bundles dependencies for the e-mail code auth endpoints.
type AuthHandler struct {
    Secret     string
    AccessTTL  time.Duration
    RefreshTTL time.Duration
    Flow       *service.Confirmation
    Users      *repository.UserRepo
    Tokens     *repository.TokenRepo
}

// ----- DTOs -----

type emailReq struct {
    Email string `json:"email" validate:"required,email,max=254"`
}
type tokenReq struct {
    Email            string `json:"email" validate:"required,email,max=254"`
    ConfirmationCode string `json:"confirmation_code" validate:"required,max=128"`
}
type refreshReq struct {
    Refresh string `json:"refresh" validate:"required"`
}
type tokenPair struct {
    Access  string `json:"access"`
    Refresh string `json:"refresh"`
}

// Email registers a new address and mails it a confirmation code.
func (h *AuthHandler) Email(c echo.Context) error {
    var req emailReq
    if bind(c, &req) != nil {
        return nil
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Flow.Register(ctx, req.Email); err != nil {
        if errors.Is(err, service.ErrThrottled) {
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
        }
        _ = validationFailed(c, err)
        return nil
    }
    return c.JSON(http.StatusOK, emailReq{Email: repository.NormalizeEmail(req.Email)})
}

// Token exchanges an e-mail and confirmation code for an access/refresh
// pair.  Every failure answers with the same retry message.
func (h *AuthHandler) Token(c echo.Context) error {
    var req tokenReq
    if bind(c, &req) != nil {
        return nil
    }
    refresh, err := utils.NewRefreshToken(h.RefreshTTL)
    if err != nil {
        return internalError(c, err, "issue refresh")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    // the refresh row is written in the transaction that consumes the code
    grant := &repository.RefreshGrant{Hash: utils.HashRefreshRaw(refresh.Raw), ExpiresAt: refresh.Exp}
    u, err := h.Flow.Exchange(ctx, req.Email, strings.TrimSpace(req.ConfirmationCode), grant)
    switch {
    case errors.Is(err, service.ErrInvalidCode):
        return c.JSON(http.StatusBadRequest, echo.Map{"message": service.RetryMessage})
    case errors.Is(err, service.ErrThrottled):
        return c.JSON(http.StatusTooManyRequests, echo.Map{"message": err.Error()})
    case err != nil:
        return internalError(c, err, "exchange confirmation code")
    }
    return h.respondPair(c, u, refresh)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is returned.  A token can be rotated only once.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if bind(c, &req) != nil {
        return nil
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.Refresh))

    ctx, cancel := dbCtx(c)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    if err != nil {
        return internalError(c, err, "validate refresh")
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return internalError(c, err, "revoke refresh")
    }
    u, err := h.Users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    if err != nil {
        return internalError(c, err, "load user")
    }
    return h.issue(c, u)
}

// Logout revokes a refresh token.  Unknown or already revoked tokens are
// accepted silently.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if bind(c, &req) != nil {
        return nil
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.Refresh)))
    if err != nil && !errors.Is(err, repository.ErrConflict) {
        return internalError(c, err, "revoke refresh")
    }
    return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) issue(c echo.Context, u model.User) error {
    refresh, err := utils.NewRefreshToken(h.RefreshTTL)
    if err != nil {
        return internalError(c, err, "issue refresh")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return internalError(c, err, "save refresh")
    }
    return h.respondPair(c, u, refresh)
}

// respondPair signs an access token for u and writes it with the already
// stored refresh token.
func (h *AuthHandler) respondPair(c echo.Context, u model.User, refresh utils.RefreshToken) error {
    access, err := utils.NewAccessToken(h.Secret, u.ID, u.Role, h.AccessTTL)
    if err != nil {
        return internalError(c, err, "issue access")
    }
    return c.JSON(http.StatusOK, tokenPair{Access: access.Token, Refresh: refresh.Raw})
}
