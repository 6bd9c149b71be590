package jwtkit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PaulFidika/walletauth/core"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs session tokens and implements core.SessionIssuer.
type Issuer struct {
	signer   *Signer
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

var _ core.SessionIssuer = (*Issuer)(nil)

func NewIssuer(signer *Signer, issuer, audience string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Issuer{
		signer:   signer,
		issuer:   strings.TrimSpace(issuer),
		audience: strings.TrimSpace(audience),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	if now != nil {
		i.now = now
	}
	return i
}

func (i *Issuer) Signer() *Signer { return i.signer }

func (i *Issuer) IssueSession(_ context.Context, user *core.User, wallet *core.WalletAddress) (core.Session, error) {
	if user == nil || wallet == nil {
		return core.Session{}, errors.New("issue session: user and wallet are required")
	}
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := SessionClaims{
		Address: wallet.Address,
		ChainID: wallet.ChainID,
		Name:    user.Name,
		Email:   user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	tok, err := i.signer.Sign(claims)
	if err != nil {
		return core.Session{}, err
	}
	return core.Session{ID: claims.ID, Token: tok, ExpiresAt: exp}, nil
}

// Verify parses tok and enforces algorithm, issuer, audience and expiry.
func (i *Issuer) Verify(tok string) (*SessionClaims, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, errors.New("missing_token")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Second),
		jwt.WithTimeFunc(i.now),
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, i.signer.Keyfunc(), opts...)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token_expired")
		}
		return nil, errors.New("invalid_token")
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid_token")
	}
	return &claims, nil
}

// JWKS returns the public key set for the issuer's signer.
func (i *Issuer) JWKS() (JWKS, error) { return i.signer.JWKS() }
