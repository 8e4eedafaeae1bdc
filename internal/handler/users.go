package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/media-catalog/internal/middleware"
    "github.com/iliyamo/media-catalog/internal/model"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
    "github.com/iliyamo/media-catalog/internal/validation"
)

// UserHandler serves /users (superusers only) and /users/me (any
// authenticated user).
type UserHandler struct {
    Users *repository.UserRepo
    Pages Pagination
}

type userResp struct {
    Username  string `json:"username"`
    Email     string `json:"email"`
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Bio       string `json:"bio"`
    Role      string `json:"role"`
}

func toUserResp(u model.User) userResp {
    return userResp{
        Username: u.Username, Email: u.Email,
        FirstName: u.FirstName, LastName: u.LastName,
        Bio: u.Bio, Role: u.Role,
    }
}

// userWriteReq is the POST and PUT body.
type userWriteReq struct {
    Username  string `json:"username" validate:"required,max=150,username"`
    Email     string `json:"email" validate:"required,email,max=254"`
    FirstName string `json:"first_name" validate:"max=150"`
    LastName  string `json:"last_name" validate:"max=150"`
    Bio       string `json:"bio" validate:"max=320"`
    Role      string `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

// userPatchReq is the PATCH body; nil fields stay unchanged.
type userPatchReq struct {
    Username  *string `json:"username" validate:"omitnil,min=1,max=150,username"`
    Email     *string `json:"email" validate:"omitnil,email,max=254"`
    FirstName *string `json:"first_name" validate:"omitnil,max=150"`
    LastName  *string `json:"last_name" validate:"omitnil,max=150"`
    Bio       *string `json:"bio" validate:"omitnil,max=320"`
    Role      *string `json:"role" validate:"omitnil,oneof=user moderator admin"`
}

func (w userWriteReq) patch() userPatchReq {
    p := userPatchReq{
        Username: &w.Username, Email: &w.Email,
        FirstName: &w.FirstName, LastName: &w.LastName, Bio: &w.Bio,
    }
    if w.Role != "" {
        p.Role = &w.Role
    }
    return p
}

// apply copies the set fields of p onto u.  Role is copied only when
// allowRole is true; otherwise it is read-only and silently ignored.
func (p userPatchReq) apply(u *model.User, allowRole bool) {
    if p.Username != nil {
        u.Username = *p.Username
    }
    if p.Email != nil {
        u.Email = repository.NormalizeEmail(*p.Email)
    }
    if p.FirstName != nil {
        u.FirstName = utils.PlainText(*p.FirstName)
    }
    if p.LastName != nil {
        u.LastName = utils.PlainText(*p.LastName)
    }
    if p.Bio != nil {
        u.Bio = utils.PlainText(*p.Bio)
    }
    if allowRole && p.Role != nil {
        u.Role = *p.Role
    }
}

// checkUnique reports taken username/email as field errors.  exceptID is
// the user being updated, 0 on create.
func (h *UserHandler) checkUnique(ctx context.Context, u model.User, exceptID uint64) error {
    var errs validation.Errors
    taken, err := h.Users.UsernameTaken(ctx, u.Username, exceptID)
    if err != nil {
        return err
    }
    if taken {
        errs.Add("username", "user with this username already exists.")
    }
    taken, err = h.Users.EmailTaken(ctx, u.Email, exceptID)
    if err != nil {
        return err
    }
    if taken {
        errs.Add("email", "user with this email already exists.")
    }
    return errs.Err()
}

// duplicateErr is returned when the unique index catches a race that
// checkUnique missed.
func duplicateErr() error {
    return validation.Field("non_field_errors", "user with this username or email already exists.")
}

// List returns users, optionally filtered by ?search on username.
func (h *UserHandler) List(c echo.Context) error {
    pg, n := h.Pages.page(c)
    ctx, cancel := dbCtx(c)
    defer cancel()

    users, total, err := h.Users.List(ctx, c.QueryParam("search"), pg)
    if err != nil {
        return internalError(c, err, "list users")
    }
    out := make([]userResp, 0, len(users))
    for _, u := range users {
        out = append(out, toUserResp(u))
    }
    return paginated(c, pg, n, total, out)
}

// Create adds a user.  Role defaults to "user"; admin raises the staff and
// superuser flags.
func (h *UserHandler) Create(c echo.Context) error {
    var req userWriteReq
    if bind(c, &req) != nil {
        return nil
    }
    u := model.User{IsActive: true, Role: model.RoleUser}
    req.patch().apply(&u, true)

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.checkUnique(ctx, u, 0); err != nil {
        _ = validationFailed(c, err)
        return nil
    }
    if err := h.Users.Create(ctx, &u); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            _ = validationFailed(c, duplicateErr())
            return nil
        }
        return internalError(c, err, "create user")
    }
    return c.JSON(http.StatusCreated, toUserResp(u))
}

func (h *UserHandler) load(c echo.Context) (model.User, bool, error) {
    ctx, cancel := dbCtx(c)
    defer cancel()
    u, err := h.Users.GetByUsername(ctx, c.Param("username"))
    if errors.Is(err, repository.ErrNotFound) {
        return u, false, notFound(c, "user")
    }
    if err != nil {
        return u, false, internalError(c, err, "load user")
    }
    return u, true, nil
}

// Get returns one user by username.
func (h *UserHandler) Get(c echo.Context) error {
    u, ok, err := h.load(c)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, toUserResp(u))
}

// Update handles PUT (every field) and PATCH (sent fields only).
func (h *UserHandler) Update(c echo.Context) error {
    u, ok, err := h.load(c)
    if !ok {
        return err
    }
    var p userPatchReq
    if c.Request().Method == http.MethodPut {
        var req userWriteReq
        if bind(c, &req) != nil {
            return nil
        }
        p = req.patch()
    } else if bind(c, &p) != nil {
        return nil
    }
    p.apply(&u, true)
    return h.save(c, u)
}

func (h *UserHandler) save(c echo.Context, u model.User) error {
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.checkUnique(ctx, u, u.ID); err != nil {
        _ = validationFailed(c, err)
        return nil
    }
    if err := h.Users.Update(ctx, &u); err != nil {
        switch {
        case errors.Is(err, repository.ErrDuplicate):
            _ = validationFailed(c, duplicateErr())
            return nil
        case errors.Is(err, repository.ErrNotFound):
            return notFound(c, "user")
        }
        return internalError(c, err, "update user")
    }
    return c.JSON(http.StatusOK, toUserResp(u))
}

// Delete removes a user together with their reviews and comments.
func (h *UserHandler) Delete(c echo.Context) error {
    u, ok, err := h.load(c)
    if !ok {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Users.Delete(ctx, u.ID); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return notFound(c, "user")
        }
        return internalError(c, err, "delete user")
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's own record.
func (h *UserHandler) Me(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return denied(c, false)
    }
    return c.JSON(http.StatusOK, toUserResp(u))
}

// UpdateMe patches the caller's own record.  Only superusers may change
// their role here.
func (h *UserHandler) UpdateMe(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return denied(c, false)
    }
    var p userPatchReq
    if bind(c, &p) != nil {
        return nil
    }
    p.apply(&u, u.IsSuperuser)
    return h.save(c, u)
}
