package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/jmoiron/sqlx"
)

type txStore struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // the outer DB stays open

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx

func (t *txStore) conn() conn { return conn{x: t.tx, d: t.dialect} }

func (t *txStore) Users() store.Users                           { return &usersRepo{t.conn()} }
func (t *txStore) Projects() store.Projects                     { return &projectsRepo{t.conn()} }
func (t *txStore) Memberships() store.Memberships               { return &membershipsRepo{t.conn()} }
func (t *txStore) EmailVerifications() store.EmailVerifications { return &verificationsRepo{t.conn()} }
func (t *txStore) PasswordResets() store.PasswordResets         { return &resetsRepo{t.conn()} }
func (t *txStore) Sessions() store.Sessions                     { return &sessionsRepo{t.conn()} }
func (t *txStore) Invitations() store.Invitations               { return &invitationsRepo{t.conn()} }
func (t *txStore) LoginHistory() store.LoginHistory             { return &loginHistoryRepo{t.conn()} }
