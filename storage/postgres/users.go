package pgstore

import (
	"context"
	"errors"

	"github.com/PaulFidika/walletauth/core"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

const userColumns = `id, name, email, email_verified, image, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO walletauth.users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Name, u.Email, u.EmailVerified, u.Image, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return insertErr("USER_CREATE_FAILED", err)
	}
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*core.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM walletauth.users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(core.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("id", id).Wrap(err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM walletauth.users WHERE email = LOWER($1)`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(core.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").Wrap(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
