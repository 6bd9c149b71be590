package pgstore

import (
	"context"
	"errors"

	"github.com/PaulFidika/walletauth/core"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

const walletColumns = `id, user_id, address, chain_id, is_primary, created_at`

func (s *Store) CreateWallet(ctx context.Context, w *core.WalletAddress) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO walletauth.wallet_addresses (`+walletColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.UserID, w.Address, int64(w.ChainID), w.IsPrimary, w.CreatedAt)
	if err != nil {
		return insertErr("WALLET_CREATE_FAILED", err)
	}
	return nil
}

func (s *Store) FindWallet(ctx context.Context, address string, chainID uint64) (*core.WalletAddress, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+walletColumns+` FROM walletauth.wallet_addresses
		WHERE address = $1 AND chain_id = $2
	`, address, int64(chainID))
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("WALLET_NOT_FOUND").
			With("address", address).
			With("chain_id", chainID).
			Wrap(core.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("WALLET_GET_FAILED").With("address", address).Wrap(err)
	}
	return w, nil
}

func (s *Store) FindWalletsByAddress(ctx context.Context, address string) ([]core.WalletAddress, error) {
	return s.queryWallets(ctx, "WALLET_LIST_BY_ADDRESS_FAILED", `
		SELECT `+walletColumns+` FROM walletauth.wallet_addresses
		WHERE address = $1
		ORDER BY created_at ASC
	`, address)
}

func (s *Store) ListWalletsByUser(ctx context.Context, userID string) ([]core.WalletAddress, error) {
	return s.queryWallets(ctx, "WALLET_LIST_BY_USER_FAILED", `
		SELECT `+walletColumns+` FROM walletauth.wallet_addresses
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (s *Store) DeleteWallets(ctx context.Context, userID, address string, chainID *uint64) (int64, error) {
	var (
		sql  = `DELETE FROM walletauth.wallet_addresses WHERE user_id = $1 AND address = $2`
		args = []any{userID, address}
	)
	if chainID != nil {
		sql += ` AND chain_id = $3`
		args = append(args, int64(*chainID))
	}
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, oops.Code("WALLET_DELETE_FAILED").
			With("user_id", userID).
			With("address", address).
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) queryWallets(ctx context.Context, code, sql string, args ...any) ([]core.WalletAddress, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, oops.Code(code).Wrap(err)
	}
	defer rows.Close()

	var out []core.WalletAddress
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, oops.Code(code).With("operation", "scan wallet row").Wrap(err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code(code).With("operation", "iterate wallets").Wrap(err)
	}
	return out, nil
}

func scanWallet(row pgx.Row) (*core.WalletAddress, error) {
	var (
		w       core.WalletAddress
		chainID int64
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Address, &chainID, &w.IsPrimary, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.ChainID = uint64(chainID)
	return &w, nil
}
