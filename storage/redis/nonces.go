package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/PaulFidika/walletauth/core"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "walletauth:nonce:"

// NonceStore keeps nonces in Redis with native key expiry.
type NonceStore struct {
	rdb    redis.Cmdable
	prefix string
}

var _ core.NonceStore = (*NonceStore)(nil)

func NewNonceStore(rdb redis.Cmdable) *NonceStore {
	return &NonceStore{rdb: rdb, prefix: defaultPrefix}
}

// WithPrefix overrides the key prefix.
func (s *NonceStore) WithPrefix(p string) *NonceStore { s.prefix = p; return s }

func (s *NonceStore) key(value string) string { return s.prefix + value }

func (s *NonceStore) CreateNonce(ctx context.Context, n core.Nonce) error {
	ttl := time.Until(n.ExpiresAt)
	if !n.CreatedAt.IsZero() {
		ttl = n.ExpiresAt.Sub(n.CreatedAt)
	}
	if ttl <= 0 {
		return nil
	}
	ok, err := s.rdb.SetNX(ctx, s.key(n.Value), n.ExpiresAt.UnixMilli(), ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrDuplicate
	}
	return nil
}

// ConsumeNonce reads and deletes the key in one GETDEL, so only one caller
// gets the value back. Keys expire server-side; the stored deadline guards
// against clock skew between Redis and this process. Requires Redis 6.2+.
func (s *NonceStore) ConsumeNonce(ctx context.Context, value string, now time.Time) (int64, error) {
	deadline, err := s.rdb.GetDel(ctx, s.key(value)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if deadline <= now.UnixMilli() {
		return 0, nil
	}
	return 1, nil
}

// DeleteExpiredNonces is a no-op: Redis expires keys itself.
func (s *NonceStore) DeleteExpiredNonces(context.Context, time.Time) (int64, error) {
	return 0, nil
}
