package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenBlacklist is the token revocation list. An entry stays live for ttl
// after it was added; older entries are ignored by lookups and removed by
// PurgeExpired.
type TokenBlacklist struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewTokenBlacklist creates a revocation list whose entries expire after ttl.
func NewTokenBlacklist(db *sql.DB, ttl time.Duration) *TokenBlacklist {
	return &TokenBlacklist{db: db, ttl: ttl, now: time.Now}
}

// Add revokes token. Adding an already revoked token is a no-op.
func (b *TokenBlacklist) Add(ctx context.Context, token string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO blacklisted_tokens (token, created_at) VALUES (?, ?)`,
		token, b.now().UTC())
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// Contains reports whether token has a live revocation entry.
func (b *TokenBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	var one int
	err := b.db.QueryRowContext(ctx,
		`SELECT 1 FROM blacklisted_tokens WHERE token = ? AND created_at > ?`,
		token, b.cutoff()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup blacklisted token: %w", err)
	}
	return true, nil
}

// PurgeExpired deletes entries older than the ttl and returns how many were removed.
func (b *TokenBlacklist) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM blacklisted_tokens WHERE created_at <= ?`, b.cutoff())
	if err != nil {
		return 0, fmt.Errorf("purge blacklisted tokens: %w", err)
	}
	return res.RowsAffected()
}

func (b *TokenBlacklist) cutoff() time.Time {
	return b.now().UTC().Add(-b.ttl)
}
