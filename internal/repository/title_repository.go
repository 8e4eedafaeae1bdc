package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/media-catalog/internal/model"
)

// TitleFilter narrows a title listing.  Empty fields are ignored.
type TitleFilter struct {
	Genre    string // genre slug, substring match
	Category string // category slug, exact match ignoring case
	Name     string // title name, substring match ignoring case
	Year     *int   // exact release year
}

// TitleWrite carries the writable columns of a title.  Category and genres
// are already resolved to ids by the caller.
type TitleWrite struct {
	Name        string
	Year        *int
	Description *string
	CategoryID  *uint64
	GenreIDs    []uint64
}

type TitleRepo struct{ DB *sql.DB }

func NewTitleRepo(db *sql.DB) *TitleRepo { return &TitleRepo{DB: db} }

// rating is recomputed from reviews on every read
const titleSelect = `SELECT t.id, t.name, t.year, t.description,
	c.id, c.name, c.slug,
	(SELECT AVG(r.score) FROM reviews r WHERE r.title_id = t.id)
FROM titles t
LEFT JOIN categories c ON c.id = t.category_id`

func scanTitle(row rowScanner) (model.Title, error) {
	var (
		t       model.Title
		year    sql.NullInt64
		desc    sql.NullString
		catID   sql.NullInt64
		catName sql.NullString
		catSlug sql.NullString
		avg     sql.NullFloat64
	)
	err := row.Scan(&t.ID, &t.Name, &year, &desc, &catID, &catName, &catSlug, &avg)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if year.Valid {
		y := int(year.Int64)
		t.Year = &y
	}
	if desc.Valid {
		d := desc.String
		t.Description = &d
	}
	if catID.Valid {
		t.Category = &model.Category{ID: uint64(catID.Int64), Name: catName.String, Slug: catSlug.String}
	}
	if avg.Valid {
		t.Rating = model.RoundRating(&avg.Float64)
	}
	t.Genres = []model.Genre{}
	return t, nil
}

func (f TitleFilter) where() (string, []any) {
	conds := []string{"1=1"}
	args := []any{}
	if s := strings.TrimSpace(f.Genre); s != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = t.id AND LOWER(g.slug) LIKE ? `+likeEscape+`)`)
		args = append(args, containsPattern(s))
	}
	if s := strings.TrimSpace(f.Category); s != "" {
		conds = append(conds, "LOWER(c.slug) = ?")
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(f.Name); s != "" {
		conds = append(conds, "LOWER(t.name) LIKE ? "+likeEscape)
		args = append(args, containsPattern(s))
	}
	if f.Year != nil {
		conds = append(conds, "t.year = ?")
		args = append(args, *f.Year)
	}
	return strings.Join(conds, " AND "), args
}

// List returns one page of titles matching f with genres and rating filled,
// plus the total number of matches.
func (r *TitleRepo) List(ctx context.Context, f TitleFilter, p Page) ([]model.Title, int, error) {
	where, args := f.where()

	var total int
	countQ := "SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id WHERE " + where
	if err := r.DB.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx, titleSelect+" WHERE "+where+" ORDER BY t.id LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Title, 0, p.Limit)
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachGenres(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches one title with genres and rating.
func (r *TitleRepo) GetByID(ctx context.Context, id uint64) (model.Title, error) {
	t, err := scanTitle(r.DB.QueryRowContext(ctx, titleSelect+" WHERE t.id = ?", id))
	if err != nil {
		return t, err
	}
	one := []model.Title{t}
	if err := r.attachGenres(ctx, one); err != nil {
		return t, err
	}
	return one[0], nil
}

// Exists reports whether a title with id is present.
func (r *TitleRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM titles WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// attachGenres loads the genres of every title in ts with a single query.
func (r *TitleRepo) attachGenres(ctx context.Context, ts []model.Title) error {
	if len(ts) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(ts))
	args := make([]any, 0, len(ts))
	for i := range ts {
		idx[ts[i].ID] = i
		args = append(args, ts[i].ID)
	}
	q := `SELECT tg.title_id, g.id, g.name, g.slug
		FROM title_genres tg JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id IN (?` + strings.Repeat(",?", len(ts)-1) + `)
		ORDER BY g.id`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			titleID uint64
			g       model.Genre
		)
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug); err != nil {
			return err
		}
		if i, ok := idx[titleID]; ok {
			ts[i].Genres = append(ts[i].Genres, g)
		}
	}
	return rows.Err()
}

// Create inserts a title and its genre links in one transaction and
// returns the new id.
func (r *TitleRepo) Create(ctx context.Context, w TitleWrite) (uint64, error) {
	var id uint64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO titles (name, year, description, category_id) VALUES (?, ?, ?, ?)",
			w.Name, w.Year, w.Description, w.CategoryID)
		if err != nil {
			return err
		}
		last, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(last)
		return replaceGenres(ctx, tx, id, w.GenreIDs)
	})
	return id, err
}

// Update overwrites a title and replaces its genre links.
func (r *TitleRepo) Update(ctx context.Context, id uint64, w TitleWrite) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE titles SET name = ?, year = ?, description = ?, category_id = ? WHERE id = ?",
			w.Name, w.Year, w.Description, w.CategoryID, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return replaceGenres(ctx, tx, id, w.GenreIDs)
	})
}

// Delete removes a title; reviews, their comments and genre links cascade.
func (r *TitleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM titles WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func replaceGenres(ctx context.Context, tx *sql.Tx, titleID uint64, genreIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM title_genres WHERE title_id = ?", titleID); err != nil {
		return err
	}
	seen := make(map[uint64]bool, len(genreIDs))
	for _, gid := range genreIDs {
		if seen[gid] {
			continue
		}
		seen[gid] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO title_genres (title_id, genre_id) VALUES (?, ?)", titleID, gid); err != nil {
			return err
		}
	}
	return nil
}

func (r *TitleRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
