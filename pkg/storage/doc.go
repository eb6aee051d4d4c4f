// Package storage persists labstock's principals, groups, access tokens and
// chemical items.
//
// # Overview
//
// Store methods take a dbx.DBTX so that every read and write of one HTTP
// request runs inside the request's transaction:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//		user, err := store.GetUserByName(ctx, tx, "alice")
//		...
//	})
//
// The same statements run on PostgreSQL (production) and SQLite (tests and
// local development). Statements are written with ? placeholders and rebound
// for the configured dialect.
//
// # Errors
//
// Lookups return ErrNotFound, unique name violations return ErrConflict. Both
// are wrapped, so callers test with errors.Is.
//
// # Listing
//
// List and count methods accept a typed filter. Foreign-key filters such as a
// group name are resolved to ids first; a name that resolves to nothing drops
// the predicate instead of failing the request.
package storage
