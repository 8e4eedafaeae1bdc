// Categories and genres share one shape (name + unique slug) and one set of
// queries; only the table differs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// SlugItem is a row of the categories or genres table.
type SlugItem struct {
	ID   uint64
	Name string
	Slug string
}

// slugTable implements the queries common to categories and genres.
type slugTable struct {
	db    *sql.DB
	table string
}

func (t slugTable) list(ctx context.Context, search string, p Page) ([]SlugItem, int, error) {
	where := "1=1"
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		where = "LOWER(name) LIKE ? " + likeEscape
		args = append(args, containsPattern(s))
	}

	var total int
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table+" WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := t.db.QueryContext(ctx,
		"SELECT id, name, slug FROM "+t.table+" WHERE "+where+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]SlugItem, 0, p.Limit)
	for rows.Next() {
		var it SlugItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Slug); err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (t slugTable) create(ctx context.Context, it *SlugItem) error {
	res, err := t.db.ExecContext(ctx, "INSERT INTO "+t.table+" (name, slug) VALUES (?, ?)", it.Name, it.Slug)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

func (t slugTable) getBySlug(ctx context.Context, slug string) (SlugItem, error) {
	var it SlugItem
	err := t.db.QueryRowContext(ctx, "SELECT id, name, slug FROM "+t.table+" WHERE slug = ?", slug).
		Scan(&it.ID, &it.Name, &it.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return it, ErrNotFound
	}
	return it, err
}

func (t slugTable) slugExists(ctx context.Context, slug string) (bool, error) {
	_, err := t.getBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t slugTable) deleteBySlug(ctx context.Context, slug string) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.table+" WHERE slug = ?", slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryRepo persists categories.  Deleting a category leaves its titles
// in place with a NULL category.
type CategoryRepo struct{ t slugTable }

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{t: slugTable{db: db, table: "categories"}}
}

func (r *CategoryRepo) List(ctx context.Context, search string, p Page) ([]SlugItem, int, error) {
	return r.t.list(ctx, search, p)
}
func (r *CategoryRepo) Create(ctx context.Context, it *SlugItem) error { return r.t.create(ctx, it) }
func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (SlugItem, error) {
	return r.t.getBySlug(ctx, slug)
}
func (r *CategoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.t.slugExists(ctx, slug)
}
func (r *CategoryRepo) DeleteBySlug(ctx context.Context, slug string) error {
	return r.t.deleteBySlug(ctx, slug)
}

// GenreRepo persists genres.  Deleting a genre unlinks it from every title.
type GenreRepo struct{ t slugTable }

func NewGenreRepo(db *sql.DB) *GenreRepo {
	return &GenreRepo{t: slugTable{db: db, table: "genres"}}
}

func (r *GenreRepo) List(ctx context.Context, search string, p Page) ([]SlugItem, int, error) {
	return r.t.list(ctx, search, p)
}
func (r *GenreRepo) Create(ctx context.Context, it *SlugItem) error { return r.t.create(ctx, it) }
func (r *GenreRepo) GetBySlug(ctx context.Context, slug string) (SlugItem, error) {
	return r.t.getBySlug(ctx, slug)
}
func (r *GenreRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.t.slugExists(ctx, slug)
}
func (r *GenreRepo) DeleteBySlug(ctx context.Context, slug string) error {
	return r.t.deleteBySlug(ctx, slug)
}
