// Package sqldb holds the SQL repositories shared by every driver. Queries are
// written with `?` placeholders and rebound for the connected driver.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/jmoiron/sqlx"
)

// Dialect captures the driver specific behaviour the repositories need.
type Dialect struct {
	Name string

	// IsUniqueViolation reports whether err was raised by a unique or primary
	// key constraint.
	IsUniqueViolation func(error) bool

	// Migrate applies the driver's embedded migrations.
	Migrate func(db *sql.DB) error
}

type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle for drivers and tests.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ApplyMigrations() error {
	if s.dialect.Migrate == nil {
		return nil
	}
	return s.dialect.Migrate(s.db.DB)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, dialect: s.dialect}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Safe to call after commit, and also covers a panic inside fn.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) conn() conn { return conn{x: s.db, d: s.dialect} }

func (s *Store) Users() store.Users                           { return &usersRepo{s.conn()} }
func (s *Store) Projects() store.Projects                     { return &projectsRepo{s.conn()} }
func (s *Store) Memberships() store.Memberships               { return &membershipsRepo{s.conn()} }
func (s *Store) EmailVerifications() store.EmailVerifications { return &verificationsRepo{s.conn()} }
func (s *Store) PasswordResets() store.PasswordResets         { return &resetsRepo{s.conn()} }
func (s *Store) Sessions() store.Sessions                     { return &sessionsRepo{s.conn()} }
func (s *Store) Invitations() store.Invitations               { return &invitationsRepo{s.conn()} }
func (s *Store) LoginHistory() store.LoginHistory             { return &loginHistoryRepo{s.conn()} }

// conn binds a query executor (db or tx) to the dialect.
type conn struct {
	x sqlx.ExtContext
	d Dialect
}

func (c conn) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, c.x, dest, c.x.Rebind(query), args...)
	return mapNotFound(err)
}

func (c conn) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, c.x, dest, c.x.Rebind(query), args...)
}

func (c conn) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.x.ExecContext(ctx, c.x.Rebind(query), args...)
	if err != nil {
		if c.d.IsUniqueViolation != nil && c.d.IsUniqueViolation(err) {
			return 0, store.ErrAlreadyExists
		}
		return 0, err
	}
	return res.RowsAffected()
}

// execOne runs a guarded update and reports ErrNotFound when no row matched.
func (c conn) execOne(ctx context.Context, query string, args ...any) error {
	n, err := c.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time.UTC()
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func splitAndFilter(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func utc(t time.Time) time.Time { return t.UTC() }

// stamp returns t in UTC, or the current time when t is unset.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
