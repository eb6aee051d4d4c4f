package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/labstock/pkg/dbx"
)

// SessionStore is the persistence the Resolver needs.
type SessionStore interface {
	// FindSession returns nil and no error when tokenHash is unknown.
	FindSession(ctx context.Context, db dbx.DBTX, tokenHash string) (*Session, error)
	// TouchSession records the access time and origin on the token and the
	// principal.
	TouchSession(ctx context.Context, db dbx.DBTX, session *Session, at time.Time, origin string) error
}

// Resolver maps access tokens to sessions.
type Resolver struct {
	store       SessionStore
	tokens      *TokenGenerator
	idleTimeout time.Duration
	now         func() time.Time
}

// NewResolver creates a Resolver. Tokens unused for longer than idleTimeout
// stop resolving; zero disables the check.
func NewResolver(store SessionStore, idleTimeout time.Duration) *Resolver {
	return &Resolver{
		store:       store,
		tokens:      NewTokenGenerator(),
		idleTimeout: idleTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns the session for token, or nil when the token is absent,
// malformed, unknown, idle for too long, or belongs to a disabled principal.
// On success the last access of the principal is updated through db, which
// should be the request transaction.
func (r *Resolver) Resolve(ctx context.Context, db dbx.DBTX, token, origin string) (*Session, error) {
	if token == "" || r.tokens.ValidateTokenFormat(token) != nil {
		return nil, nil
	}

	session, err := r.store.FindSession(ctx, db, r.tokens.HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil || session.UserDisabled {
		return nil, nil
	}

	now := r.now()
	if r.idleTimeout > 0 && !session.LastUsedAt.IsZero() && now.Sub(session.LastUsedAt) > r.idleTimeout {
		return nil, nil
	}

	if err := r.store.TouchSession(ctx, db, session, now, origin); err != nil {
		return nil, fmt.Errorf("failed to record session access: %w", err)
	}
	session.LastUsedAt = now
	return session, nil
}
