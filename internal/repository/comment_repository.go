package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/media-catalog/internal/model"
)

type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

const commentSelect = `SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
FROM comments c
JOIN users u ON u.id = c.author_id
JOIN reviews r ON r.id = c.review_id`

func scanComment(row rowScanner) (model.Comment, error) {
	var cm model.Comment
	err := row.Scan(&cm.ID, &cm.ReviewID, &cm.AuthorID, &cm.AuthorUsername, &cm.Text, &cm.PubDate)
	if errors.Is(err, sql.ErrNoRows) {
		return cm, ErrNotFound
	}
	return cm, err
}

// ListByReview returns one page of a review's comments, newest first.
func (r *CommentRepo) ListByReview(ctx context.Context, reviewID uint64, p Page) ([]model.Comment, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comments WHERE review_id = ?", reviewID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		commentSelect+" WHERE c.review_id = ? ORDER BY c.pub_date DESC, c.id DESC LIMIT ? OFFSET ?",
		reviewID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Comment, 0, p.Limit)
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetInReview fetches comment id under reviewID, which itself must belong
// to titleID.
func (r *CommentRepo) GetInReview(ctx context.Context, titleID, reviewID, id uint64) (model.Comment, error) {
	return scanComment(r.DB.QueryRowContext(ctx,
		commentSelect+" WHERE c.id = ? AND c.review_id = ? AND r.title_id = ?", id, reviewID, titleID))
}

// Create inserts cm and stamps its id and pub_date.
func (r *CommentRepo) Create(ctx context.Context, cm *model.Comment) error {
	cm.PubDate = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (review_id, author_id, text, pub_date) VALUES (?, ?, ?, ?)",
		cm.ReviewID, cm.AuthorID, cm.Text, cm.PubDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cm.ID = uint64(id)
	return nil
}

// Update rewrites the comment text.
func (r *CommentRepo) Update(ctx context.Context, cm *model.Comment) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET text = ? WHERE id = ? AND review_id = ?", cm.Text, cm.ID, cm.ReviewID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CommentRepo) Delete(ctx context.Context, reviewID, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id = ? AND review_id = ?", id, reviewID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
