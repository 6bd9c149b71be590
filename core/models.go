package core

import (
	"strconv"
	"time"
)

// ProviderID is the identity-provider id recorded on wallet Account links.
const ProviderID = "siwe-wallet-agnostic"

// User is an authenticated principal.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         *string   `json:"image"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// WalletAddress links a checksummed address on one chain to its owning user.
// (Address, ChainID) is unique.
type WalletAddress struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Address   string    `json:"address"`
	ChainID   uint64    `json:"chainId"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Account is the identity-provider link for one (user, address, chain).
type Account struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ProviderID string    `json:"providerId"`
	AccountID  string    `json:"accountId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Nonce is a single-use sign-in challenge.
type Nonce struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccountIDFor formats the Account.AccountID for a wallet.
func AccountIDFor(address string, chainID uint64) string {
	return address + ":" + strconv.FormatUint(chainID, 10)
}
