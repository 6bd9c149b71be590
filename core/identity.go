package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// resolveIdentity maps a verified (address, chain) to a user, creating records
// as needed. Resolution order:
//  1. exact wallet match
//  2. same address on another chain: same user, new non-primary wallet
//  3. user with the placeholder (or supplied) email: attach the wallet
//  4. new user with a primary wallet
//
// Unique-constraint races from concurrent identical requests are absorbed by
// re-reading the record the other request created.
func (s *Service) resolveIdentity(ctx context.Context, address string, chainID uint64, email *string) (*User, *WalletAddress, bool, error) {
	w, err := s.store.FindWallet(ctx, address, chainID)
	if err == nil {
		u, err := s.userFor(ctx, w)
		return u, w, false, err
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, false, fmt.Errorf("find wallet: %w", err)
	}

	others, err := s.store.FindWalletsByAddress(ctx, address)
	if err != nil {
		return nil, nil, false, fmt.Errorf("find wallets by address: %w", err)
	}
	if len(others) > 0 {
		u, err := s.userFor(ctx, &others[0])
		if err != nil {
			return nil, nil, false, err
		}
		return s.attachAndLoad(ctx, u, address, chainID, false)
	}

	lookupEmail := s.placeholderEmail(address)
	if email != nil {
		lookupEmail = *email
	}
	u, err := s.store.FindUserByEmail(ctx, lookupEmail)
	if err == nil {
		existing, err := s.store.ListWalletsByUser(ctx, u.ID)
		if err != nil {
			return nil, nil, false, fmt.Errorf("list wallets: %w", err)
		}
		return s.attachAndLoad(ctx, u, address, chainID, len(existing) == 0)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, false, fmt.Errorf("find user by email: %w", err)
	}

	u, created, err := s.createUser(ctx, address, lookupEmail)
	if err != nil {
		return nil, nil, false, err
	}
	usr, wallet, _, err := s.attachAndLoad(ctx, u, address, chainID, true)
	return usr, wallet, created && usr.ID == u.ID, err
}

func (s *Service) createUser(ctx context.Context, address, email string) (*User, bool, error) {
	now := s.now()
	u := &User{
		ID:        newID(),
		Name:      address,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.names != nil {
		profile, err := s.names(ctx, address)
		if err != nil {
			s.logger.Debug("name lookup failed", zap.String("address", address), zap.Error(err))
		} else {
			if profile.Name != "" {
				u.Name = profile.Name
			}
			if profile.Avatar != "" {
				avatar := profile.Avatar
				u.Image = &avatar
			}
		}
	}

	err := s.store.CreateUser(ctx, u)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	existing, ferr := s.store.FindUserByEmail(ctx, email)
	if ferr != nil {
		return nil, false, fmt.Errorf("refetch user after duplicate: %w", ferr)
	}
	return existing, false, nil
}

// attachAndLoad attaches the wallet to u. If a concurrent request already
// created it for a different user, that owner is adopted instead.
func (s *Service) attachAndLoad(ctx context.Context, u *User, address string, chainID uint64, primary bool) (*User, *WalletAddress, bool, error) {
	w, err := s.attachWallet(ctx, u.ID, address, chainID, primary)
	if err != nil {
		return nil, nil, false, err
	}
	if w.UserID == u.ID {
		return u, w, false, nil
	}
	owner, err := s.userFor(ctx, w)
	return owner, w, false, err
}

// attachWallet creates the wallet row and its Account link. On a duplicate it
// returns the existing row, which may belong to another user.
func (s *Service) attachWallet(ctx context.Context, userID, address string, chainID uint64, primary bool) (*WalletAddress, error) {
	w := &WalletAddress{
		ID:        newID(),
		UserID:    userID,
		Address:   address,
		ChainID:   chainID,
		IsPrimary: primary,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("create wallet: %w", err)
		}
		existing, ferr := s.store.FindWallet(ctx, address, chainID)
		if ferr != nil {
			return nil, fmt.Errorf("refetch wallet after duplicate: %w", ferr)
		}
		w = existing
	}
	if w.UserID != userID {
		return w, nil
	}
	if err := s.ensureAccount(ctx, userID, address, chainID); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) ensureAccount(ctx context.Context, userID, address string, chainID uint64) error {
	accountID := AccountIDFor(address, chainID)
	_, err := s.store.FindAccount(ctx, userID, ProviderID, accountID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("find account: %w", err)
	}
	err = s.store.CreateAccount(ctx, &Account{
		ID:         newID(),
		UserID:     userID,
		ProviderID: ProviderID,
		AccountID:  accountID,
		CreatedAt:  s.now(),
	})
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Service) userFor(ctx context.Context, w *WalletAddress) (*User, error) {
	u, err := s.store.FindUserByID(ctx, w.UserID)
	if err != nil {
		return nil, fmt.Errorf("find wallet owner %s: %w", w.UserID, err)
	}
	return u, nil
}
