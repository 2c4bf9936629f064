package postgres

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/store/sqldb"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// NewStore connects to PostgreSQL using a lib/pq connection URL.
func NewStore(databaseURL string) (*sqldb.Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return sqldb.New(db, sqldb.Dialect{
		Name:              "postgres",
		IsUniqueViolation: isUniqueViolation,
		Migrate:           applyMigrations,
	}), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
