// Package pgstore implements core.RecordStore on PostgreSQL using pgx.
// Tables live in the walletauth schema created by Migrate.
package pgstore

import (
	"context"
	"errors"

	"github.com/PaulFidika/walletauth/core"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements core.RecordStore.
type Store struct {
	db DB
}

var _ core.RecordStore = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// insertErr maps a unique violation to core.ErrDuplicate.
func insertErr(code string, err error) error {
	if isUniqueViolation(err) {
		return oops.Code(code).With("constraint", constraintName(err)).Wrap(core.ErrDuplicate)
	}
	return oops.Code(code).Wrap(err)
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
