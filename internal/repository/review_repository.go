package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/media-catalog/internal/model"
)

// ReviewRepo persists reviews.  Every lookup is scoped to a title so that a
// review id from another title is reported as missing.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

const reviewSelect = `SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
FROM reviews r JOIN users u ON u.id = r.author_id`

func scanReview(row rowScanner) (model.Review, error) {
	var rv model.Review
	err := row.Scan(&rv.ID, &rv.TitleID, &rv.AuthorID, &rv.AuthorUsername, &rv.Text, &rv.Score, &rv.PubDate)
	if errors.Is(err, sql.ErrNoRows) {
		return rv, ErrNotFound
	}
	return rv, err
}

// ListByTitle returns one page of a title's reviews, newest first.
func (r *ReviewRepo) ListByTitle(ctx context.Context, titleID uint64, p Page) ([]model.Review, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE title_id = ?", titleID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		reviewSelect+" WHERE r.title_id = ? ORDER BY r.pub_date DESC, r.id DESC LIMIT ? OFFSET ?",
		titleID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Review, 0, p.Limit)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetInTitle fetches review id belonging to titleID.
func (r *ReviewRepo) GetInTitle(ctx context.Context, titleID, id uint64) (model.Review, error) {
	return scanReview(r.DB.QueryRowContext(ctx, reviewSelect+" WHERE r.id = ? AND r.title_id = ?", id, titleID))
}

// ExistsForAuthor reports whether authorID already reviewed titleID.
func (r *ReviewRepo) ExistsForAuthor(ctx context.Context, titleID, authorID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM reviews WHERE title_id = ? AND author_id = ? LIMIT 1", titleID, authorID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts rv and stamps its id and pub_date.  A second review by the
// same author on the same title fails with ErrDuplicate.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	rv.PubDate = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (?, ?, ?, ?, ?)",
		rv.TitleID, rv.AuthorID, rv.Text, rv.Score, rv.PubDate)
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
	rv.ID = uint64(id)
	return nil
}

// Update writes text and score.  Title, author and pub_date never change.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE reviews SET text = ?, score = ? WHERE id = ? AND title_id = ?",
		rv.Text, rv.Score, rv.ID, rv.TitleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a review and, by cascade, its comments.
func (r *ReviewRepo) Delete(ctx context.Context, titleID, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id = ? AND title_id = ?", id, titleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
