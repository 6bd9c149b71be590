package testing

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestTestServer_ServesJWKS(t *testing.T) {
	srv, err := NewTestServer()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get(srv.URL() + "/.well-known/jwks.json")
	if err != nil {
		t.Fatalf("failed to fetch JWKS: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var ks struct {
		Keys []struct {
			Kty string `json:"kty"`
			Alg string `json:"alg"`
			Kid string `json:"kid"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ks); err != nil {
		t.Fatalf("failed to decode JWKS: %v", err)
	}
	if len(ks.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(ks.Keys))
	}
	key := ks.Keys[0]
	if key.Kty != "RSA" {
		t.Errorf("expected kty=RSA, got %s", key.Kty)
	}
	if key.Alg != "RS256" {
		t.Errorf("expected alg=RS256, got %s", key.Alg)
	}
	if key.Kid == "" {
		t.Error("expected kid to be set")
	}
}

func TestTestServer_SignInTokenVerifies(t *testing.T) {
	srv, err := NewTestServer()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Close()

	key, addr, err := NewWallet()
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	token, err := srv.SignIn(context.Background(), key, 8453)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	claims, err := srv.Issuer().Verify(token)
	if err != nil {
		t.Fatalf("token verification failed: %v", err)
	}
	if claims.Address != addr {
		t.Errorf("expected address %s, got %s", addr, claims.Address)
	}
	if claims.ChainID != 8453 {
		t.Errorf("expected chain 8453, got %d", claims.ChainID)
	}
	if claims.Subject == "" {
		t.Error("expected sub to be set")
	}
}

func TestTestServer_WalletsWithToken(t *testing.T) {
	srv, err := NewTestServer()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Close()

	key, _, err := NewWallet()
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	token, err := srv.SignIn(context.Background(), key, 1)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL()+"/siwe-wallet-agnostic/wallets", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Wallets []map[string]any `json:"wallets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Wallets) != 1 {
		t.Fatalf("expected 1 wallet, got %d", len(body.Wallets))
	}
}
