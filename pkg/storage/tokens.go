package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/dbx"
)

// CreateToken inserts t and sets its id.
func (s *Store) CreateToken(ctx context.Context, db dbx.DBTX, t *Token) error {
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.LastUsedAt.IsZero() {
		t.LastUsedAt = now
	}
	err := db.QueryRowContext(ctx, s.q(`
		INSERT INTO user_tokens (user_id, token_hash, token_prefix, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		t.UserID, t.Hash, t.Prefix, t.CreatedAt, t.LastUsedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// DeleteToken removes the token with the given digest if it belongs to
// userID. It reports whether a token was removed.
func (s *Store) DeleteToken(ctx context.Context, db dbx.DBTX, userID int64, hash string) (bool, error) {
	res, err := db.ExecContext(ctx, s.q(`DELETE FROM user_tokens WHERE user_id = ? AND token_hash = ?`), userID, hash)
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return n > 0, nil
}

// DeleteUserTokens revokes every token of userID.
func (s *Store) DeleteUserTokens(ctx context.Context, db dbx.DBTX, userID int64) (int64, error) {
	res, err := db.ExecContext(ctx, s.q(`DELETE FROM user_tokens WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}
	return res.RowsAffected()
}

// SweepIdleTokens removes tokens last used before cutoff.
func (s *Store) SweepIdleTokens(ctx context.Context, db dbx.DBTX, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, s.q(`DELETE FROM user_tokens WHERE last_used_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep tokens: %w", err)
	}
	return res.RowsAffected()
}

// CountTokens counts issued tokens.
func (s *Store) CountTokens(ctx context.Context, db dbx.DBTX) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_tokens`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return n, nil
}

// FindSession implements auth.SessionStore.
func (s *Store) FindSession(ctx context.Context, db dbx.DBTX, tokenHash string) (*auth.Session, error) {
	var (
		sess          auth.Session
		groupName     sql.NullString
		groupDisabled sql.NullBool
		permission    sql.NullString
	)
	err := db.QueryRowContext(ctx, s.q(`
		SELECT t.id, t.last_used_at, u.id, u.name, u.disabled, u.allow_multi,
		       u.group_id, g.name, g.disabled, g.permission
		FROM user_tokens t
		JOIN users u ON u.id = t.user_id
		LEFT JOIN user_groups g ON g.id = u.group_id
		WHERE t.token_hash = ?`), tokenHash,
	).Scan(&sess.TokenID, &sess.LastUsedAt, &sess.UserID, &sess.UserName, &sess.UserDisabled, &sess.AllowMulti,
		&sess.GroupID, &groupName, &groupDisabled, &permission)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	sess.GroupName = groupName.String
	sess.GroupDisabled = groupDisabled.Bool
	sess.Permission = permission.String
	return &sess, nil
}

// TouchSession implements auth.SessionStore.
func (s *Store) TouchSession(ctx context.Context, db dbx.DBTX, session *auth.Session, at time.Time, origin string) error {
	if _, err := db.ExecContext(ctx, s.q(`UPDATE user_tokens SET last_used_at = ? WHERE id = ?`), at, session.TokenID); err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	if _, err := db.ExecContext(ctx, s.q(`UPDATE users SET last_access_at = ?, last_access_ip = ? WHERE id = ?`), at, origin, session.UserID); err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}
	return nil
}
