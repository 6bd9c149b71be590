package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/PaulFidika/walletauth/siwe"
	"go.uber.org/zap"
)

// UnlinkWallet removes the user's wallet for address, on chainID when given
// or on every chain otherwise. Primary wallets cannot be unlinked; nothing is
// deleted when any targeted row is primary.
func (s *Service) UnlinkWallet(ctx context.Context, userID, address string, chainID *uint64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if userID == "" {
		return ErrUnauthorized
	}
	addr, err := siwe.Normalize(address)
	if err != nil {
		return ErrInvalidAddress.wrap(err)
	}
	if chainID != nil {
		if err := siwe.ValidateChainID(*chainID); err != nil {
			return ErrInvalidChainID.wrap(err)
		}
	}

	owned, err := s.store.ListWalletsByUser(ctx, userID)
	if err != nil {
		return internal(fmt.Errorf("list wallets: %w", err))
	}
	var targets []WalletAddress
	for _, w := range owned {
		if w.Address != addr {
			continue
		}
		if chainID != nil && w.ChainID != *chainID {
			continue
		}
		targets = append(targets, w)
	}
	if len(targets) == 0 {
		return ErrWalletNotFound
	}
	accountIDs := make([]string, 0, len(targets))
	for _, w := range targets {
		if w.IsPrimary {
			return ErrPrimaryWallet
		}
		accountIDs = append(accountIDs, AccountIDFor(w.Address, w.ChainID))
	}

	n, err := s.store.DeleteWallets(ctx, userID, addr, chainID)
	if err != nil {
		return internal(fmt.Errorf("delete wallets: %w", err))
	}
	if n == 0 {
		return ErrWalletNotFound
	}
	if _, err := s.store.DeleteAccounts(ctx, userID, ProviderID, accountIDs); err != nil {
		s.logger.Error("delete wallet accounts", zap.String("user_id", userID), zap.Error(err))
		return internal(fmt.Errorf("delete accounts: %w", err))
	}

	for _, w := range targets {
		s.logAuthEvent(ctx, AuthEvent{Event: EventWalletUnlinked, UserID: userID, Address: w.Address, ChainID: w.ChainID})
	}
	return nil
}

// ListWallets returns the user's wallets, newest first.
func (s *Service) ListWallets(ctx context.Context, userID string) ([]WalletAddress, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}
	ws, err := s.store.ListWalletsByUser(ctx, userID)
	if err != nil {
		return nil, internal(fmt.Errorf("list wallets: %w", err))
	}
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].CreatedAt.After(ws[j].CreatedAt) })
	if ws == nil {
		ws = []WalletAddress{}
	}
	return ws, nil
}
