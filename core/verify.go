package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/PaulFidika/walletauth/siwe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// VerifyRequest is a signed sign-in message submitted for verification.
type VerifyRequest struct {
	Message   string
	Signature string
	// Email is required when anonymous sign-in is disabled.
	Email string
}

// VerifyResult is the outcome of a successful sign-in.
type VerifyResult struct {
	Session Session
	User    *User
	Wallet  *WalletAddress
	Created bool
}

// LinkRequest is a signed message proving control of a wallet to be linked.
type LinkRequest struct {
	Message   string
	Signature string
}

// proof is a message whose signature has been verified and whose nonce has been consumed.
type proof struct {
	Address string
	ChainID uint64
	Path    siwe.Path
}

// Verify signs a user in with a wallet signature, creating the user and
// wallet records on first use, and issues a session.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "walletauth.Verify")
	defer span.End()

	res, err := s.verify(ctx, req)
	if err != nil {
		endWithError(span, err)
		if KindOf(err) == KindUnauthorized {
			reason := AsError(err).Code
			s.logAuthEvent(ctx, AuthEvent{Event: EventLoginFailed, Reason: &reason})
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.String("walletauth.user_id", res.User.ID),
		attribute.Bool("walletauth.created", res.Created),
	)
	return res, nil
}

func (s *Service) verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.sessions == nil {
		return nil, ErrInternal.wrap(fmt.Errorf("session issuer not configured"))
	}
	var email *string
	if !s.opts.Anonymous {
		e := normalizeEmail(req.Email)
		if e == "" {
			return nil, ErrEmailRequired
		}
		email = &e
	}

	p, err := s.authenticate(ctx, req.Message, req.Signature)
	if err != nil {
		return nil, err
	}

	user, wallet, created, err := s.resolveIdentity(ctx, p.Address, p.ChainID, email)
	if err != nil {
		s.logger.Error("resolve identity", zap.String("address", p.Address), zap.Uint64("chain_id", p.ChainID), zap.Error(err))
		return nil, internal(err)
	}

	sess, err := s.sessions.IssueSession(ctx, user, wallet)
	if err != nil {
		s.logger.Error("issue session", zap.String("user_id", user.ID), zap.Error(err))
		return nil, internal(fmt.Errorf("issue session: %w", err))
	}

	method := string(p.Path)
	s.logAuthEvent(ctx, AuthEvent{
		Event:     EventWalletLogin,
		UserID:    user.ID,
		SessionID: sess.ID,
		Address:   wallet.Address,
		ChainID:   wallet.ChainID,
		Method:    &method,
	})
	s.metrics.login(created)
	return &VerifyResult{Session: sess, User: user, Wallet: wallet, Created: created}, nil
}

// LinkWallet attaches the wallet proven by req to an already signed-in user.
// Linking a wallet the user already owns succeeds without changes.
func (s *Service) LinkWallet(ctx context.Context, userID string, req LinkRequest) (*WalletAddress, error) {
	ctx, span := s.tracer.Start(ctx, "walletauth.LinkWallet")
	defer span.End()

	w, err := s.linkWallet(ctx, userID, req)
	if err != nil {
		endWithError(span, err)
		return nil, err
	}
	return w, nil
}

func (s *Service) linkWallet(ctx context.Context, userID string, req LinkRequest) (*WalletAddress, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, internal(err)
	}

	p, err := s.authenticate(ctx, req.Message, req.Signature)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindWallet(ctx, p.Address, p.ChainID)
	switch {
	case err == nil:
		if existing.UserID != userID {
			s.logger.Info("link rejected: wallet owned by another user", zap.String("address", p.Address), zap.Uint64("chain_id", p.ChainID))
			return nil, ErrWalletConflict
		}
		if err := s.ensureAccount(ctx, userID, p.Address, p.ChainID); err != nil {
			return nil, internal(err)
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, internal(err)
	}

	others, err := s.store.FindWalletsByAddress(ctx, p.Address)
	if err != nil {
		return nil, internal(err)
	}
	for _, o := range others {
		if o.UserID != userID {
			return nil, ErrWalletConflict
		}
	}

	w, err := s.attachWallet(ctx, userID, p.Address, p.ChainID, false)
	if err != nil {
		return nil, internal(err)
	}
	if w.UserID != userID {
		return nil, ErrWalletConflict
	}
	s.logAuthEvent(ctx, AuthEvent{Event: EventWalletLinked, UserID: userID, Address: w.Address, ChainID: w.ChainID})
	return w, nil
}

// authenticate runs the checks shared by Verify and LinkWallet in a fixed
// order. The nonce is consumed only after the signature verifies, so a
// forged request cannot burn a legitimate client's nonce.
func (s *Service) authenticate(ctx context.Context, message, signature string) (*proof, error) {
	msg, err := siwe.Parse(message)
	if err != nil {
		return nil, ErrInvalidMessage.wrap(err)
	}

	if err := siwe.Validate(msg, s.expect, s.now()); err != nil {
		var v *siwe.SecurityViolation
		if errors.As(err, &v) {
			s.logger.Warn("security check failed",
				zap.String("check", v.Check),
				zap.String("detail", v.Detail),
				zap.String("domain", msg.Domain))
		}
		return nil, ErrUnauthorized.wrap(err)
	}

	if err := siwe.ValidateChainID(msg.ChainID); err != nil {
		return nil, ErrInvalidChainID.wrap(err)
	}
	address, err := siwe.Normalize(msg.Address)
	if err != nil {
		return nil, ErrInvalidAddress.wrap(err)
	}
	if !siwe.ValidNonceFormat(msg.Nonce) {
		s.metrics.nonce("rejected")
		return nil, ErrInvalidNonce
	}
	sig, err := siwe.ParseSignature(signature)
	if err != nil {
		return nil, ErrInvalidSignatureFormat.wrap(err)
	}

	path, err := s.verifySignature(ctx, message, sig, address, msg.ChainID)
	if err != nil {
		return nil, err
	}

	if err := s.ConsumeNonce(ctx, msg.Nonce); err != nil {
		return nil, err
	}
	return &proof{Address: address, ChainID: msg.ChainID, Path: path}, nil
}

func (s *Service) verifySignature(ctx context.Context, message string, sig []byte, address string, chainID uint64) (siwe.Path, error) {
	ctx, span := s.tracer.Start(ctx, "walletauth.verifySignature", trace.WithAttributes(
		attribute.String("walletauth.address", address),
		attribute.Int64("walletauth.chain_id", int64(chainID)),
	))
	defer span.End()

	path, err := s.verifier.Verify(ctx, message, sig, address, chainID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signature rejected")
		switch {
		case errors.Is(err, siwe.ErrUnconfiguredChain):
			s.metrics.verification("contract", "unconfigured_chain")
			return "", ErrUnconfiguredChain.wrap(err)
		case errors.Is(err, siwe.ErrMalformedSignature):
			return "", ErrInvalidSignatureFormat.wrap(err)
		case errors.Is(err, siwe.ErrInvalidAddress):
			return "", ErrInvalidAddress.wrap(err)
		}
		s.metrics.verification("contract", "invalid")
		s.logger.Info("signature rejected", zap.String("address", address), zap.Uint64("chain_id", chainID), zap.Error(err))
		return "", ErrInvalidSignature.wrap(err)
	}
	span.SetAttributes(attribute.String("walletauth.path", string(path)))
	s.metrics.verification(string(path), "valid")
	return path, nil
}

func endWithError(span trace.Span, err error) {
	e := AsError(err)
	span.SetAttributes(attribute.String("walletauth.error_code", e.Code))
	if e.Kind == KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, e.Code)
	}
}
