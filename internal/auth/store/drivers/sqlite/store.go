package sqlite

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/techauth/internal/auth/store/sqldb"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// NewStore opens a SQLite database. SQLite allows a single writer, so the pool
// is pinned to one connection; that also keeps ":memory:" databases shared.
func NewStore(dsn string) (*sqldb.Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return sqldb.New(db, sqldb.Dialect{
		Name:              "sqlite",
		IsUniqueViolation: isUniqueViolation,
		Migrate:           applyMigrations,
	}), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
