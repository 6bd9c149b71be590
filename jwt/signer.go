// Package jwtkit issues and verifies RS256 session tokens and publishes the
// signing key as a JWKS document.
package jwtkit

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Signer holds one RSA signing key and its key id.
type Signer struct {
	key *rsa.PrivateKey
	kid string
}

// NewRSASigner generates a fresh key. Tokens signed with it do not survive a
// restart; production deployments load a key with NewSignerFromPEM.
func NewRSASigner(bits int, kid string) (*Signer, error) {
	if bits < 2048 {
		bits = 2048
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return NewSigner(key, kid), nil
}

func NewSigner(key *rsa.PrivateKey, kid string) *Signer {
	if kid == "" {
		kid = "default"
	}
	return &Signer{key: key, kid: kid}
}

// NewSignerFromPEM parses a PKCS#1 or PKCS#8 RSA private key.
func NewSignerFromPEM(pemBytes []byte, kid string) (*Signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return NewSigner(key, kid), nil
}

func (s *Signer) KID() string { return s.kid }

func (s *Signer) PublicKey() *rsa.PublicKey { return &s.key.PublicKey }

// Sign returns the compact RS256 serialization of claims.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	return tok.SignedString(s.key)
}

// Keyfunc resolves the verification key for tokens signed by s.
func (s *Signer) Keyfunc() jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != s.kid {
			return nil, errors.New("unknown_kid")
		}
		return &s.key.PublicKey, nil
	}
}

// JWKS is the public key set for the signer.
type JWKS struct {
	set jwk.Set
}

// JWKS builds the public key set.
func (s *Signer) JWKS() (JWKS, error) {
	key, err := jwk.FromRaw(&s.key.PublicKey)
	if err != nil {
		return JWKS{}, fmt.Errorf("jwk from key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, s.kid); err != nil {
		return JWKS{}, err
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		return JWKS{}, err
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return JWKS{}, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return JWKS{}, err
	}
	return JWKS{set: set}, nil
}

func (k JWKS) Set() jwk.Set { return k.set }

func (k JWKS) MarshalJSON() ([]byte, error) {
	if k.set == nil {
		return []byte(`{"keys":[]}`), nil
	}
	return json.Marshal(k.set)
}

// ServeJWKS writes the key set as JSON.
func ServeJWKS(w http.ResponseWriter, r *http.Request, ks JWKS) {
	_ = r
	b, err := json.Marshal(ks)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(b)
}
