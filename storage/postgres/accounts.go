package pgstore

import (
	"context"
	"errors"

	"github.com/PaulFidika/walletauth/core"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO walletauth.accounts (id, user_id, provider_id, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.UserID, a.ProviderID, a.AccountID, a.CreatedAt)
	if err != nil {
		return insertErr("ACCOUNT_CREATE_FAILED", err)
	}
	return nil
}

func (s *Store) FindAccount(ctx context.Context, userID, providerID, accountID string) (*core.Account, error) {
	var a core.Account
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, provider_id, account_id, created_at
		FROM walletauth.accounts
		WHERE user_id = $1 AND provider_id = $2 AND account_id = $3
	`, userID, providerID, accountID).Scan(&a.ID, &a.UserID, &a.ProviderID, &a.AccountID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("account_id", accountID).Wrap(core.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("account_id", accountID).Wrap(err)
	}
	return &a, nil
}

func (s *Store) DeleteAccounts(ctx context.Context, userID, providerID string, accountIDs []string) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `
		DELETE FROM walletauth.accounts
		WHERE user_id = $1 AND provider_id = $2 AND account_id = ANY($3)
	`, userID, providerID, accountIDs)
	if err != nil {
		return 0, oops.Code("ACCOUNT_DELETE_FAILED").With("user_id", userID).Wrap(err)
	}
	return tag.RowsAffected(), nil
}
