package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/media-catalog/internal/authz"
	"github.com/iliyamo/media-catalog/internal/config"
	"github.com/iliyamo/media-catalog/internal/database"
	"github.com/iliyamo/media-catalog/internal/model"
	"github.com/iliyamo/media-catalog/internal/repository"
	"github.com/iliyamo/media-catalog/internal/service"
	"github.com/iliyamo/media-catalog/internal/utils"
)

const secret = "router-test-secret"

type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mailbox) SendCode(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *mailbox) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

type env struct {
	t     *testing.T
	e     *echo.Echo
	users *repository.UserRepo
	mail  *mailbox
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))
	t.Cleanup(func() { db.Close() })

	mail := &mailbox{codes: map[string]string{}}
	e := New(Deps{
		Config: config.Config{
			JWTSecret:         secret,
			AccessTTL:         time.Minute,
			RefreshTTL:        time.Hour,
			BcryptCost:        bcrypt.MinCost,
			CodeTTL:           time.Minute,
			CodeIssueInterval: time.Millisecond,
			CodeIssueBurst:    100,
			PageSize:          2,
			MaxPageSize:       50,
		},
		DB:     db,
		Policy: authz.MustNew(),
		Sender: mail,
	})
	return &env{t: t, e: e, users: repository.NewUserRepo(db), mail: mail}
}

// user creates an active account and returns a bearer token for it.
func (v *env) user(name, role string) string {
	v.t.Helper()
	u := model.User{Username: name, Email: name + "@example.com", Role: role, IsActive: true}
	require.NoError(v.t, v.users.Create(context.Background(), &u))
	tok, err := utils.NewAccessToken(secret, u.ID, u.Role, time.Minute)
	require.NoError(v.t, err)
	return tok.Token
}

func (v *env) do(method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	v.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(v.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func fields(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	f, ok := body["fields"].(map[string]any)
	require.True(t, ok, "expected validation fields in %v", body)
	return f
}

func TestHealth(t *testing.T) {
	v := newEnv(t)
	rec, _ := v.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := v.do(http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestAuthFlow(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(http.MethodPost, "/api/v1/auth/email/", echo.Map{"email": "New@Example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new@example.com", body["email"])
	code := v.mail.code("new@example.com")
	require.NotEmpty(t, code)

	rec, body = v.do(http.MethodPost, "/api/v1/auth/email/", echo.Map{"email": "new@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "email")

	rec, body = v.do(http.MethodPost, "/api/v1/auth/token/", echo.Map{"email": "new@example.com", "confirmation_code": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.RetryMessage, body["message"])

	// the failed attempt mailed a replacement code
	code = v.mail.code("new@example.com")
	rec, body = v.do(http.MethodPost, "/api/v1/auth/token/", echo.Map{"email": "new@example.com", "confirmation_code": code}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ := body["access"].(string)
	refresh, _ := body["refresh"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	rec, body = v.do(http.MethodGet, "/api/v1/users/me/", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new@example.com", body["username"])
	assert.Equal(t, "user", body["role"])

	rec, body = v.do(http.MethodPost, "/api/v1/auth/token/refresh/", echo.Map{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rotated, _ := body["refresh"].(string)
	assert.NotEqual(t, refresh, rotated)

	rec, _ = v.do(http.MethodPost, "/api/v1/auth/token/refresh/", echo.Map{"refresh": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a rotated token cannot be reused")

	rec, _ = v.do(http.MethodPost, "/api/v1/auth/logout/", echo.Map{"refresh": rotated}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = v.do(http.MethodPost, "/api/v1/auth/token/refresh/", echo.Map{"refresh": rotated}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthValidation(t *testing.T) {
	v := newEnv(t)
	rec, body := v.do(http.MethodPost, "/api/v1/auth/email/", echo.Map{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "email")

	rec, body = v.do(http.MethodPost, "/api/v1/auth/token/", echo.Map{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "confirmation_code")

	rec, body = v.do(http.MethodPost, "/api/v1/auth/token/", echo.Map{"email": "ghost@example.com", "confirmation_code": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.RetryMessage, body["message"])
}

func TestTaxonomyPermissions(t *testing.T) {
	v := newEnv(t)
	user := v.user("plain", model.RoleUser)
	mod := v.user("mod", model.RoleModerator)
	admin := v.user("boss", model.RoleAdmin)
	film := echo.Map{"name": "Film", "slug": "film"}

	rec, _ := v.do(http.MethodPost, "/api/v1/categories/", film, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = v.do(http.MethodPost, "/api/v1/categories/", film, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = v.do(http.MethodPost, "/api/v1/categories/", film, mod)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := v.do(http.MethodPost, "/api/v1/categories/", film, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "film", body["slug"])

	rec, body = v.do(http.MethodPost, "/api/v1/categories/", film, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "slug")

	rec, body = v.do(http.MethodPost, "/api/v1/genres/", echo.Map{"name": "Bad", "slug": "no spaces"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "slug")

	rec, body = v.do(http.MethodGet, "/api/v1/categories/?search=fil", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, _ = v.do(http.MethodDelete, "/api/v1/categories/film/", nil, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = v.do(http.MethodDelete, "/api/v1/categories/film/", nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = v.do(http.MethodDelete, "/api/v1/categories/film/", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPagination(t *testing.T) {
	v := newEnv(t)
	admin := v.user("boss", model.RoleAdmin)
	for i := 1; i <= 5; i++ {
		rec, _ := v.do(http.MethodPost, "/api/v1/genres/", echo.Map{"name": fmt.Sprintf("G%d", i), "slug": fmt.Sprintf("g%d", i)}, admin)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := v.do(http.MethodGet, "/api/v1/genres/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, body["count"])
	assert.Len(t, body["results"], 2)
	assert.Nil(t, body["previous"])
	assert.Contains(t, body["next"], "page=2")

	_, body = v.do(http.MethodGet, "/api/v1/genres/?page=3", nil, "")
	assert.Len(t, body["results"], 1)
	assert.Nil(t, body["next"])
	assert.Contains(t, body["previous"], "page=2")

	_, body = v.do(http.MethodGet, "/api/v1/genres/?page_size=10", nil, "")
	assert.Len(t, body["results"], 5)
}

func TestTitles(t *testing.T) {
	v := newEnv(t)
	admin := v.user("boss", model.RoleAdmin)
	user := v.user("plain", model.RoleUser)
	for _, it := range []echo.Map{{"name": "Drama", "slug": "drama"}, {"name": "Comedy", "slug": "comedy"}} {
		rec, _ := v.do(http.MethodPost, "/api/v1/genres/", it, admin)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, _ := v.do(http.MethodPost, "/api/v1/categories/", echo.Map{"name": "Film", "slug": "film"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := echo.Map{"name": "Heat", "year": 1995, "category": "film", "genre": []string{"drama"}}
	rec, _ = v.do(http.MethodPost, "/api/v1/titles/", payload, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := v.do(http.MethodPost, "/api/v1/titles/", payload, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "film", body["category"])
	assert.Equal(t, []any{"drama"}, body["genre"])
	id := int(body["id"].(float64))

	t.Run("unknown slug", func(t *testing.T) {
		rec, body := v.do(http.MethodPost, "/api/v1/titles/", echo.Map{"name": "X", "genre": []string{"horror"}}, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fields(t, body), "genre")
	})
	t.Run("year out of range", func(t *testing.T) {
		rec, body := v.do(http.MethodPost, "/api/v1/titles/", echo.Map{"name": "X", "year": 2101, "genre": []string{"drama"}}, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fields(t, body), "year")
	})
	t.Run("genre required", func(t *testing.T) {
		rec, body := v.do(http.MethodPost, "/api/v1/titles/", echo.Map{"name": "X", "genre": []string{}}, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fields(t, body), "genre")
	})

	path := fmt.Sprintf("/api/v1/titles/%d/", id)
	rec, body = v.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["rating"])
	assert.Equal(t, map[string]any{"name": "Film", "slug": "film"}, body["category"])

	rec, body = v.do(http.MethodPatch, path, echo.Map{"genre": []string{"comedy", "drama"}}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Heat", body["name"])
	assert.EqualValues(t, 1995, body["year"])
	assert.ElementsMatch(t, []any{"comedy", "drama"}, body["genre"])

	_, body = v.do(http.MethodGet, "/api/v1/titles/?genre=com&year=1995", nil, "")
	assert.EqualValues(t, 1, body["count"])
	_, body = v.do(http.MethodGet, "/api/v1/titles/?category=FILM", nil, "")
	assert.EqualValues(t, 1, body["count"])
	_, body = v.do(http.MethodGet, "/api/v1/titles/?name=zzz", nil, "")
	assert.EqualValues(t, 0, body["count"])
	rec, _ = v.do(http.MethodGet, "/api/v1/titles/?year=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = v.do(http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = v.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewsAndComments(t *testing.T) {
	v := newEnv(t)
	admin := v.user("boss", model.RoleAdmin)
	amy := v.user("amy", model.RoleUser)
	bob := v.user("bob", model.RoleUser)
	mod := v.user("mod", model.RoleModerator)

	rec, _ := v.do(http.MethodPost, "/api/v1/genres/", echo.Map{"name": "Drama", "slug": "drama"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	var titles []int
	for _, name := range []string{"One", "Two"} {
		rec, body := v.do(http.MethodPost, "/api/v1/titles/", echo.Map{"name": name, "genre": []string{"drama"}}, admin)
		require.Equal(t, http.StatusCreated, rec.Code)
		titles = append(titles, int(body["id"].(float64)))
	}
	reviews := fmt.Sprintf("/api/v1/titles/%d/reviews/", titles[0])

	rec, _ = v.do(http.MethodPost, reviews, echo.Map{"text": "great", "score": 10}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = v.do(http.MethodPost, "/api/v1/titles/999/reviews/", echo.Map{"text": "x", "score": 5}, amy)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, body := v.do(http.MethodPost, reviews, echo.Map{"text": "meh", "score": 11}, amy)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "score")

	rec, body = v.do(http.MethodPost, reviews, echo.Map{"text": "<b>great</b>", "score": 10}, amy)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "amy", body["author"])
	assert.Equal(t, "great", body["text"])
	amyReview := fmt.Sprintf("%s%d/", reviews, int(body["id"].(float64)))

	rec, body = v.do(http.MethodPost, reviews, echo.Map{"text": "again", "score": 1}, amy)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"review already exist"}, fields(t, body)["non_field_errors"])

	rec, _ = v.do(http.MethodPost, reviews, echo.Map{"text": "good", "score": 9}, bob)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, body = v.do(http.MethodGet, fmt.Sprintf("/api/v1/titles/%d/", titles[0]), nil, "")
	assert.EqualValues(t, 9.5, body["rating"])

	rec, _ = v.do(http.MethodPatch, amyReview, echo.Map{"score": 1}, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = v.do(http.MethodPatch, amyReview, echo.Map{"score": 1}, mod)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, body = v.do(http.MethodPatch, amyReview, echo.Map{"score": 8}, amy)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 8, body["score"])
	assert.Equal(t, "great", body["text"])

	// comments
	comments := amyReview + "comments/"
	rec, body = v.do(http.MethodPost, comments, echo.Map{"text": "agreed"}, bob)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "bob", body["author"])
	bobComment := fmt.Sprintf("%s%d/", comments, int(body["id"].(float64)))

	wrongTitle := fmt.Sprintf("/api/v1/titles/%d/reviews/%s", titles[1], amyReview[len(reviews):])
	rec, _ = v.do(http.MethodGet, wrongTitle+"comments/", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = v.do(http.MethodGet, comments, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, _ = v.do(http.MethodPut, bobComment, echo.Map{"text": "edited"}, amy)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = v.do(http.MethodPut, bobComment, echo.Map{"text": "edited"}, mod)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, body = v.do(http.MethodPut, bobComment, echo.Map{"text": "edited"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", body["text"])

	rec, _ = v.do(http.MethodDelete, bobComment, nil, mod)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// deleting the review drops its remaining comments
	rec, _ = v.do(http.MethodPost, comments, echo.Map{"text": "second"}, bob)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = v.do(http.MethodDelete, amyReview, nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = v.do(http.MethodDelete, amyReview, nil, mod)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = v.do(http.MethodGet, comments, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = v.do(http.MethodGet, fmt.Sprintf("/api/v1/titles/%d/", titles[0]), nil, "")
	assert.EqualValues(t, 9, body["rating"])
}

func TestMarkupOnlyTextIsBlank(t *testing.T) {
	v := newEnv(t)
	admin := v.user("boss", model.RoleAdmin)
	amy := v.user("amy", model.RoleUser)

	rec, body := v.do(http.MethodPost, "/api/v1/genres/", echo.Map{"name": "<i></i>", "slug": "drama"}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"This field may not be blank."}, fields(t, body)["name"])
	rec, _ = v.do(http.MethodPost, "/api/v1/genres/", echo.Map{"name": "Drama", "slug": "drama"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body = v.do(http.MethodPost, "/api/v1/titles/", echo.Map{"name": "<b></b>", "genre": []string{"drama"}}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"This field may not be blank."}, fields(t, body)["name"])

	rec, body = v.do(http.MethodPost, "/api/v1/titles/", echo.Map{"name": "Heat", "genre": []string{"drama"}}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	title := fmt.Sprintf("/api/v1/titles/%d/", int(body["id"].(float64)))
	rec, body = v.do(http.MethodPatch, title, echo.Map{"name": "  <p> </p>"}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "name")

	reviews := title + "reviews/"
	rec, body = v.do(http.MethodPost, reviews, echo.Map{"text": "<img src=x>", "score": 7}, amy)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"This field may not be blank."}, fields(t, body)["text"])

	rec, body = v.do(http.MethodPost, reviews, echo.Map{"text": "fine", "score": 7}, amy)
	require.Equal(t, http.StatusCreated, rec.Code)
	review := fmt.Sprintf("%s%d/", reviews, int(body["id"].(float64)))
	rec, body = v.do(http.MethodPatch, review, echo.Map{"text": "<b> </b>"}, amy)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "text")

	rec, body = v.do(http.MethodPost, review+"comments/", echo.Map{"text": "<br/>"}, amy)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"This field may not be blank."}, fields(t, body)["text"])
}

func TestUsers(t *testing.T) {
	v := newEnv(t)
	admin := v.user("boss", model.RoleAdmin)
	amy := v.user("amy", model.RoleUser)

	rec, _ := v.do(http.MethodGet, "/api/v1/users/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = v.do(http.MethodGet, "/api/v1/users/", nil, amy)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := v.do(http.MethodGet, "/api/v1/users/?search=am", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = v.do(http.MethodPost, "/api/v1/users/", echo.Map{"username": "me", "email": "me@example.com"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "username")

	rec, body = v.do(http.MethodPost, "/api/v1/users/", echo.Map{"username": "amy", "email": "amy@example.com"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f := fields(t, body)
	assert.Contains(t, f, "username")
	assert.Contains(t, f, "email")

	rec, body = v.do(http.MethodPost, "/api/v1/users/", echo.Map{"username": "cat", "email": "cat@example.com", "role": "moderator", "bio": "<i>hi</i>"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "moderator", body["role"])
	assert.Equal(t, "hi", body["bio"])

	rec, body = v.do(http.MethodPatch, "/api/v1/users/cat/", echo.Map{"first_name": "Cat"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cat", body["first_name"])
	assert.Equal(t, "moderator", body["role"])

	rec, _ = v.do(http.MethodPut, "/api/v1/users/cat/", echo.Map{"username": "cat"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "PUT needs every required field")

	// a plain user cannot promote themselves
	rec, body = v.do(http.MethodPatch, "/api/v1/users/me/", echo.Map{"role": "admin", "bio": "hello"}, amy)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "hello", body["bio"])

	rec, body = v.do(http.MethodPatch, "/api/v1/users/me/", echo.Map{"email": "boss@example.com"}, amy)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fields(t, body), "email")

	rec, _ = v.do(http.MethodDelete, "/api/v1/users/cat/", nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = v.do(http.MethodGet, "/api/v1/users/cat/", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
