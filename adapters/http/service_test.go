package authhttp

import (
	"encoding/json"
	"net/http"
	"testing"

	memorystore "github.com/PaulFidika/walletauth/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestWithStore_MovesNonces(t *testing.T) {
	s := newTestService(t)
	shared := memorystore.New()
	h := s.WithStore(shared).APIHandler()

	w := do(h, http.MethodGet, "/siwe-wallet-agnostic/nonce", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, shared.Nonces())

	key, _ := newKey(t)
	req := signedBody(t, h, key, 1)
	require.Equal(t, 2, shared.Nonces())
	w = do(h, http.MethodPost, "/siwe-wallet-agnostic/verify", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 1, shared.Nonces())

	var body verifyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, shared.Accounts(body.User.ID))
}

func TestWithStore_KeepsSeparateNonceStore(t *testing.T) {
	s := newTestService(t)
	nonces := memorystore.New()
	records := memorystore.New()
	s.Core().WithNonceStore(nonces)
	h := s.WithStore(records).APIHandler()

	w := do(h, http.MethodGet, "/siwe-wallet-agnostic/nonce", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, nonces.Nonces())
	require.Equal(t, 0, records.Nonces())
}
