package authhttp

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PaulFidika/walletauth/core"
	jwtkit "github.com/PaulFidika/walletauth/jwt"
	"github.com/PaulFidika/walletauth/siwe"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	testDomain = "app.example"
	testURI    = "https://app.example"
)

// rejectingCaller answers every isValidSignature call with a non-magic value.
type rejectingCaller struct{}

func (rejectingCaller) CodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (rejectingCaller) CallContract(context.Context, common.Address, []byte) ([]byte, error) {
	return make([]byte, 32), nil
}

func (rejectingCaller) SimulateCalls(context.Context, []siwe.SimCall) ([]siwe.SimResult, error) {
	return nil, fmt.Errorf("%w: method not found", siwe.ErrSimulateUnsupported)
}

func (rejectingCaller) CallDeployless(context.Context, []byte) ([]byte, error) {
	return make([]byte, 32), nil
}

type testChains struct{}

func (testChains) Caller(_ context.Context, id uint64) (siwe.ContractCaller, error) {
	if id != 1 && id != 8453 {
		return nil, siwe.ErrUnconfiguredChain
	}
	return rejectingCaller{}, nil
}

func newTestIssuer(t *testing.T) *jwtkit.Issuer {
	t.Helper()
	signer, err := jwtkit.NewRSASigner(2048, "test-kid")
	require.NoError(t, err)
	return jwtkit.NewIssuer(signer, "https://app.example", "app", time.Hour)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(core.Config{
		Domain:                  testDomain,
		URI:                     testURI,
		Chains:                  map[uint64]string{1: "http://127.0.0.1:1", 8453: "http://127.0.0.1:1"},
		NonceCleanupProbability: -1,
	}, newTestIssuer(t))
	require.NoError(t, err)
	s.Core().WithChainResolver(testChains{})
	return s
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func strPtr(s string) *string { return &s }

func do(h http.Handler, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(r)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

// signedBody fetches a nonce and returns a {message, signature} body for key.
func signedBody(t *testing.T, h http.Handler, key *ecdsa.PrivateKey, chainID uint64) string {
	t.Helper()
	w := do(h, http.MethodGet, "/siwe-wallet-agnostic/nonce", "")
	require.Equal(t, http.StatusOK, w.Code)
	var nb struct {
		Nonce string `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &nb))

	msg := siwe.Format(siwe.Message{
		Domain:    testDomain,
		Address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Statement: strPtr("Sign in to App"),
		URI:       testURI,
		Version:   strPtr("1"),
		ChainID:   chainID,
		Nonce:     nb.Nonce,
		IssuedAt:  strPtr(time.Now().UTC().Format(time.RFC3339)),
	})
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	require.NoError(t, err)
	sig[64] += 27
	body, err := json.Marshal(map[string]string{"message": msg, "signature": hexutil.Encode(sig)})
	require.NoError(t, err)
	return string(body)
}

type verifyBody struct {
	Token   string `json:"token"`
	Success bool   `json:"success"`
	User    struct {
		ID            string  `json:"id"`
		Name          string  `json:"name"`
		Email         string  `json:"email"`
		Image         *string `json:"image"`
		WalletAddress string  `json:"walletAddress"`
		ChainID       uint64  `json:"chainId"`
	} `json:"user"`
}

func TestJWKSHandler(t *testing.T) {
	h := JWKSHandler(newTestIssuer(t))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	_, ok := body["keys"]
	require.True(t, ok)
}

func TestAPIHandler_Nonce(t *testing.T) {
	h := newTestService(t).APIHandler()

	w := do(h, http.MethodGet, "/siwe-wallet-agnostic/nonce", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, siwe.ValidNonceFormat(body["nonce"]))

	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/nonce", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAPIHandler_WalletFlow(t *testing.T) {
	s := newTestService(t)
	h := s.APIHandler()
	owner, ownerAddr := newKey(t)
	extra, extraAddr := newKey(t)

	body := signedBody(t, h, owner, 8453)
	w := do(h, http.MethodPost, "/siwe-wallet-agnostic/verify", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var vb verifyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vb))
	require.True(t, vb.Success)
	require.NotEmpty(t, vb.Token)
	require.Equal(t, ownerAddr, vb.User.WalletAddress)
	require.Equal(t, uint64(8453), vb.User.ChainID)
	require.Equal(t, strings.ToLower(ownerAddr)+"@app.example", vb.User.Email)
	require.Nil(t, vb.User.Image)

	res := w.Result()
	defer res.Body.Close()
	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == DefaultCookie().Name {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.Equal(t, vb.Token, cookie.Value)
	require.True(t, cookie.HttpOnly)

	// Replay of the consumed nonce.
	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/verify", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"invalid_nonce","message":"invalid or expired nonce"}`, w.Body.String())

	// Link through the session cookie.
	linkBody := signedBody(t, h, extra, 1)
	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/link", linkBody, func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, fmt.Sprintf(`{"success":true,"wallet":{"address":%q,"chainId":1}}`, extraAddr), w.Body.String())

	w = do(h, http.MethodGet, "/siwe-wallet-agnostic/wallets", "", bearer(vb.Token))
	require.Equal(t, http.StatusOK, w.Code)
	var wb struct {
		Wallets []struct {
			ID        string `json:"id"`
			Address   string `json:"address"`
			ChainID   uint64 `json:"chainId"`
			IsPrimary bool   `json:"isPrimary"`
		} `json:"wallets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wb))
	require.Len(t, wb.Wallets, 2)
	var primary int
	for _, wa := range wb.Wallets {
		if wa.IsPrimary {
			primary++
			require.Equal(t, ownerAddr, wa.Address)
		}
	}
	require.Equal(t, 1, primary)

	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/unlink", fmt.Sprintf(`{"address":%q}`, ownerAddr), bearer(vb.Token))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"error":"primary_wallet"`)

	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/unlink", fmt.Sprintf(`{"address":%q,"chainId":1}`, strings.ToLower(extraAddr)), bearer(vb.Token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"success":true}`, w.Body.String())

	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/unlink", fmt.Sprintf(`{"address":%q}`, extraAddr), bearer(vb.Token))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), `"error":"wallet_not_found"`)
}

func TestAPIHandler_VerifyDomainMismatch(t *testing.T) {
	s := newTestService(t)
	h := s.APIHandler()
	key, addr := newKey(t)

	nonce, err := s.Core().IssueNonce(context.Background())
	require.NoError(t, err)
	msg := siwe.Format(siwe.Message{
		Domain:   "evil.example",
		Address:  addr,
		URI:      testURI,
		Version:  strPtr("1"),
		ChainID:  1,
		Nonce:    nonce,
		IssuedAt: strPtr(time.Now().UTC().Format(time.RFC3339)),
	})
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{"message": msg, "signature": hexutil.Encode(sig)})
	require.NoError(t, err)

	w := do(h, http.MethodPost, "/siwe-wallet-agnostic/verify", string(body))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"unauthorized","message":"unauthorized"}`, w.Body.String())
	// The nonce survives the rejected attempt.
	require.NoError(t, s.Core().ConsumeNonce(context.Background(), nonce))
}

func TestAPIHandler_LinkConflict(t *testing.T) {
	h := newTestService(t).APIHandler()
	alice, _ := newKey(t)
	bob, _ := newKey(t)

	var a verifyBody
	w := do(h, http.MethodPost, "/siwe-wallet-agnostic/verify", signedBody(t, h, alice, 1))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/verify", signedBody(t, h, bob, 1))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/link", signedBody(t, h, bob, 1), bearer(a.Token))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"unable_to_link_wallet","message":"unable to link wallet"}`, w.Body.String())
}

func TestAPIHandler_SessionRoutesRequireAuth(t *testing.T) {
	h := newTestService(t).APIHandler()
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/siwe-wallet-agnostic/wallets", ""},
		{http.MethodPost, "/siwe-wallet-agnostic/link", `{"message":"m","signature":"s"}`},
		{http.MethodPost, "/siwe-wallet-agnostic/unlink", `{"address":"0x0000000000000000000000000000000000000001"}`},
	} {
		w := do(h, tc.method, tc.path, tc.body)
		require.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
		require.JSONEq(t, `{"error":"unauthorized","message":"unauthorized"}`, w.Body.String())
	}
}

func TestAPIHandler_NotInitialized(t *testing.T) {
	var s *Service
	w := do(s.APIHandler(), http.MethodGet, "/siwe-wallet-agnostic/nonce", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"server_error","message":"internal error"}`, w.Body.String())
}

func verifyRequestFor(t *testing.T, h http.Handler, key *ecdsa.PrivateKey) core.VerifyRequest {
	t.Helper()
	var req core.VerifyRequest
	require.NoError(t, json.Unmarshal([]byte(signedBody(t, h, key, 1)), &req))
	return req
}
