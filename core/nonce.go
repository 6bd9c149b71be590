package core

import (
	"context"
	"fmt"

	"github.com/PaulFidika/walletauth/siwe"
	"go.uber.org/zap"
)

// IssueNonce creates and stores a fresh nonce. With the configured probability
// it also sweeps expired nonces in the background; that sweep never affects
// the result.
func (s *Service) IssueNonce(ctx context.Context) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	value, err := siwe.GenerateNonce()
	if err != nil {
		return "", internal(err)
	}
	now := s.now()
	if err := s.nonces.CreateNonce(ctx, Nonce{Value: value, CreatedAt: now, ExpiresAt: now.Add(s.opts.NonceExpiresIn)}); err != nil {
		s.logger.Error("store nonce", zap.Error(err))
		return "", internal(fmt.Errorf("store nonce: %w", err))
	}
	s.metrics.nonce("issued")

	if p := s.opts.NonceCleanupProbability; p > 0 && s.chance() < p {
		go s.cleanupExpiredNonces()
	}
	return value, nil
}

// ConsumeNonce atomically deletes an unexpired nonce. Missing, expired,
// already consumed, and malformed values all return ErrInvalidNonce.
func (s *Service) ConsumeNonce(ctx context.Context, value string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !siwe.ValidNonceFormat(value) {
		s.metrics.nonce("rejected")
		return ErrInvalidNonce
	}
	n, err := s.nonces.ConsumeNonce(ctx, value, s.now())
	if err != nil {
		s.logger.Error("consume nonce", zap.Error(err))
		return internal(fmt.Errorf("consume nonce: %w", err))
	}
	if n != 1 {
		s.metrics.nonce("rejected")
		return ErrInvalidNonce
	}
	s.metrics.nonce("consumed")
	return nil
}

// SweepExpiredNonces deletes every expired nonce and returns how many were removed.
func (s *Service) SweepExpiredNonces(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.nonces.DeleteExpiredNonces(ctx, s.now())
	if err != nil {
		return 0, internal(fmt.Errorf("sweep nonces: %w", err))
	}
	s.metrics.noncesSwept(n)
	return n, nil
}

func (s *Service) cleanupExpiredNonces() {
	ctx, cancel := s.detached()
	defer cancel()
	n, err := s.SweepExpiredNonces(ctx)
	if err != nil {
		s.logger.Warn("nonce cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("nonce cleanup", zap.Int64("deleted", n))
	}
}
