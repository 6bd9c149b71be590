package core

import (
	"context"
	"time"
)

// NonceStore persists sign-in nonces.
type NonceStore interface {
	CreateNonce(ctx context.Context, n Nonce) error
	// ConsumeNonce deletes the nonce with this value if it expires after now,
	// in a single atomic operation, and returns how many records it deleted.
	ConsumeNonce(ctx context.Context, value string, now time.Time) (int64, error)
	DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error)
}

// UserStore persists users. Email is unique; CreateUser returns ErrDuplicate on conflict.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}

// WalletStore persists wallet addresses. (Address, ChainID) is unique;
// CreateWallet returns ErrDuplicate on conflict.
type WalletStore interface {
	CreateWallet(ctx context.Context, w *WalletAddress) error
	FindWallet(ctx context.Context, address string, chainID uint64) (*WalletAddress, error)
	// FindWalletsByAddress returns the address on every chain, oldest first.
	FindWalletsByAddress(ctx context.Context, address string) ([]WalletAddress, error)
	// ListWalletsByUser returns the user's wallets, newest first.
	ListWalletsByUser(ctx context.Context, userID string) ([]WalletAddress, error)
	// DeleteWallets removes the user's rows for address, restricted to chainID when set.
	DeleteWallets(ctx context.Context, userID, address string, chainID *uint64) (int64, error)
}

// AccountStore persists provider links. (ProviderID, AccountID) is unique.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *Account) error
	FindAccount(ctx context.Context, userID, providerID, accountID string) (*Account, error)
	DeleteAccounts(ctx context.Context, userID, providerID string, accountIDs []string) (int64, error)
}

// RecordStore is the full persistence surface the Service needs.
type RecordStore interface {
	NonceStore
	UserStore
	WalletStore
	AccountStore
}
