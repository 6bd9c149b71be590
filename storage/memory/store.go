package memorystore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/PaulFidika/walletauth/core"
)

// Store is an in-memory core.RecordStore.
// It is only safe for single-process deployments.
type Store struct {
	mu       sync.Mutex
	nonces   map[string]nonceItem
	users    map[string]core.User
	emails   map[string]string // lower(email) -> user id
	wallets  map[string]core.WalletAddress
	accounts map[string]core.Account // provider|account id -> account
}

var _ core.RecordStore = (*Store)(nil)

func New() *Store {
	return &Store{
		nonces:   make(map[string]nonceItem),
		users:    make(map[string]core.User),
		emails:   make(map[string]string),
		wallets:  make(map[string]core.WalletAddress),
		accounts: make(map[string]core.Account),
	}
}

func walletKey(address string, chainID uint64) string {
	return address + "|" + strconv.FormatUint(chainID, 10)
}

func accountKey(providerID, accountID string) string {
	return providerID + "|" + accountID
}

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.emails[email]; ok {
		return core.ErrDuplicate
	}
	if _, ok := s.users[u.ID]; ok {
		return core.ErrDuplicate
	}
	s.users[u.ID] = *u
	s.emails[email] = u.ID
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, core.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) CreateWallet(_ context.Context, w *core.WalletAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := walletKey(w.Address, w.ChainID)
	if _, ok := s.wallets[k]; ok {
		return core.ErrDuplicate
	}
	s.wallets[k] = *w
	return nil
}

func (s *Store) FindWallet(_ context.Context, address string, chainID uint64) (*core.WalletAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletKey(address, chainID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &w, nil
}

func (s *Store) FindWalletsByAddress(_ context.Context, address string) ([]core.WalletAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.WalletAddress
	for _, w := range s.wallets {
		if w.Address == address {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListWalletsByUser(_ context.Context, userID string) ([]core.WalletAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.WalletAddress
	for _, w := range s.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteWallets(_ context.Context, userID, address string, chainID *uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, w := range s.wallets {
		if w.UserID != userID || w.Address != address {
			continue
		}
		if chainID != nil && w.ChainID != *chainID {
			continue
		}
		delete(s.wallets, k)
		n++
	}
	return n, nil
}

func (s *Store) CreateAccount(_ context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := accountKey(a.ProviderID, a.AccountID)
	if _, ok := s.accounts[k]; ok {
		return core.ErrDuplicate
	}
	s.accounts[k] = *a
	return nil
}

func (s *Store) FindAccount(_ context.Context, userID, providerID, accountID string) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountKey(providerID, accountID)]
	if !ok || a.UserID != userID {
		return nil, core.ErrNotFound
	}
	return &a, nil
}

func (s *Store) DeleteAccounts(_ context.Context, userID, providerID string, accountIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range accountIDs {
		k := accountKey(providerID, id)
		if a, ok := s.accounts[k]; ok && a.UserID == userID {
			delete(s.accounts, k)
			n++
		}
	}
	return n, nil
}

// Accounts returns how many accounts the user has. Intended for tests.
func (s *Store) Accounts(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n
}
