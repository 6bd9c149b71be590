package pgstore

import (
	"context"
	"time"

	"github.com/PaulFidika/walletauth/core"
	"github.com/samber/oops"
)

func (s *Store) CreateNonce(ctx context.Context, n core.Nonce) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO walletauth.nonces (value, expires_at, created_at) VALUES ($1, $2, $3)`,
		n.Value, n.ExpiresAt, n.CreatedAt)
	if err != nil {
		return insertErr("NONCE_CREATE_FAILED", err)
	}
	return nil
}

// ConsumeNonce is a single conditional DELETE; concurrent callers cannot both
// observe a deleted row.
func (s *Store) ConsumeNonce(ctx context.Context, value string, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM walletauth.nonces WHERE value = $1 AND expires_at > $2`,
		value, now)
	if err != nil {
		return 0, oops.Code("NONCE_CONSUME_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM walletauth.nonces WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("NONCE_SWEEP_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
