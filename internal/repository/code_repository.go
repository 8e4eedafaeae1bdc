package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/media-catalog/internal/model"
)

// CodeRepo stores confirmation codes, one row per user.
type CodeRepo struct{ DB *sql.DB }

func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{DB: db} }

// replaceCode drops any code the user holds and inserts the new hash.
func replaceCode(ctx context.Context, ex execer, userID uint64, codeHash string, expiresAt time.Time) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM confirmation_codes WHERE user_id=?", userID); err != nil {
		return err
	}
	_, err := ex.ExecContext(ctx,
		"INSERT INTO confirmation_codes (user_id, code_hash, expires_at, created_at) VALUES (?,?,?,?)",
		userID, codeHash, expiresAt.UTC(), time.Now().UTC())
	return err
}

// Replace issues a new code for the user, invalidating the previous one.
func (r *CodeRepo) Replace(ctx context.Context, userID uint64, codeHash string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := replaceCode(ctx, tx, userID, codeHash, expiresAt); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetByUser returns the user's current code or ErrNotFound.
func (r *CodeRepo) GetByUser(ctx context.Context, userID uint64) (model.ConfirmationCode, error) {
	var c model.ConfirmationCode
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, code_hash, expires_at, created_at FROM confirmation_codes WHERE user_id=? LIMIT 1",
		userID).Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// RefreshGrant is a refresh token row written together with a consumed code.
type RefreshGrant struct {
	UserID    uint64
	Hash      string
	ExpiresAt time.Time
}

// Consume deletes the code with the given id and, when grant is not nil,
// stores the refresh token in the same transaction.  Only one caller can
// consume a code: a second attempt (or a concurrent one that lost) gets
// ErrConflict.  If the token insert fails the code stays usable.
func (r *CodeRepo) Consume(ctx context.Context, id uint64, grant *RefreshGrant) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM confirmation_codes WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	if grant != nil {
		if err := insertRefresh(ctx, tx, grant.UserID, grant.Hash, grant.ExpiresAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
