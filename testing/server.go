// Package testing provides a throwaway wallet sign-in server for host
// applications that want to exercise real sessions in their own tests.
package testing

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	authhttp "github.com/PaulFidika/walletauth/adapters/http"
	"github.com/PaulFidika/walletauth/core"
	jwtkit "github.com/PaulFidika/walletauth/jwt"
	"github.com/PaulFidika/walletauth/siwe"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Audience is the aud claim of tokens issued by a TestServer.
const Audience = "walletauth-test"

// TestServer serves the wallet routes over HTTP with an in-memory store.
// Only EOA signatures verify; no chain RPC is configured.
type TestServer struct {
	srv    *httptest.Server
	api    *authhttp.Service
	h      http.Handler
	issuer *jwtkit.Issuer
	domain string
}

// NewTestServer starts a server. Call Close when done.
func NewTestServer() (*TestServer, error) {
	signer, err := jwtkit.NewRSASigner(2048, "test-kid")
	if err != nil {
		return nil, err
	}
	ts := &TestServer{}
	ts.srv = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.h.ServeHTTP(w, r)
	}))
	ts.srv.Start()

	u, err := url.Parse(ts.srv.URL)
	if err != nil {
		ts.srv.Close()
		return nil, err
	}
	ts.domain = u.Host
	ts.issuer = jwtkit.NewIssuer(signer, ts.srv.URL, Audience, time.Hour)
	ts.api, err = authhttp.NewService(core.Config{
		Domain:                  u.Host,
		URI:                     ts.srv.URL,
		Chains:                  map[uint64]string{1: "http://127.0.0.1:1"},
		NonceCleanupProbability: -1,
	}, ts.issuer)
	if err != nil {
		ts.srv.Close()
		return nil, err
	}
	ts.h = ts.api.APIHandler()
	return ts, nil
}

func (s *TestServer) URL() string                { return s.srv.URL }
func (s *TestServer) Issuer() *jwtkit.Issuer     { return s.issuer }
func (s *TestServer) Service() *authhttp.Service { return s.api }
func (s *TestServer) Close()                     { s.srv.Close() }

// NewWallet returns a fresh key and its checksummed address.
func NewWallet() (*ecdsa.PrivateKey, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, "", err
	}
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// SignIn runs the nonce and verify round trip for key on chainID and returns
// the session token.
func (s *TestServer) SignIn(ctx context.Context, key *ecdsa.PrivateKey, chainID uint64) (string, error) {
	var nb struct {
		Nonce string `json:"nonce"`
	}
	if err := s.call(ctx, http.MethodGet, "/siwe-wallet-agnostic/nonce", nil, &nb); err != nil {
		return "", err
	}

	statement := "Sign in to the test server"
	version := "1"
	issuedAt := time.Now().UTC().Format(time.RFC3339)
	msg := siwe.Format(siwe.Message{
		Domain:    s.domain,
		Address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Statement: &statement,
		URI:       s.srv.URL,
		Version:   &version,
		ChainID:   chainID,
		Nonce:     nb.Nonce,
		IssuedAt:  &issuedAt,
	})
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		return "", err
	}
	sig[64] += 27

	var vb struct {
		Token string `json:"token"`
	}
	body := map[string]string{"message": msg, "signature": hexutil.Encode(sig)}
	if err := s.call(ctx, http.MethodPost, "/siwe-wallet-agnostic/verify", body, &vb); err != nil {
		return "", err
	}
	return vb.Token, nil
}

func (s *TestServer) call(ctx context.Context, method, path string, in, out any) error {
	var buf bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.srv.URL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.srv.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
