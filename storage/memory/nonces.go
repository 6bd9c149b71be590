package memorystore

import (
	"context"
	"time"

	"github.com/PaulFidika/walletauth/core"
)

type nonceItem struct {
	expires time.Time
	created time.Time
}

func (s *Store) CreateNonce(_ context.Context, n core.Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nonces[n.Value]; ok {
		return core.ErrDuplicate
	}
	s.nonces[n.Value] = nonceItem{expires: n.ExpiresAt, created: n.CreatedAt}
	return nil
}

// ConsumeNonce deletes the nonce under the store lock, so concurrent callers
// see exactly one deletion. Expired entries are removed but not counted.
func (s *Store) ConsumeNonce(_ context.Context, value string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.nonces[value]
	if !ok {
		return 0, nil
	}
	delete(s.nonces, value)
	if !it.expires.After(now) {
		return 0, nil
	}
	return 1, nil
}

func (s *Store) DeleteExpiredNonces(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, it := range s.nonces {
		if !it.expires.After(now) {
			delete(s.nonces, k)
			n++
		}
	}
	return n, nil
}

// Nonces returns how many nonces are currently stored, expired or not.
func (s *Store) Nonces() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nonces)
}
