package core_test

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/PaulFidika/walletauth/core"
	"github.com/PaulFidika/walletauth/siwe"
	memorystore "github.com/PaulFidika/walletauth/storage/memory"
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

// testChains serves chains 1 and 8453 only.
type testChains struct{}

func (testChains) Caller(_ context.Context, id uint64) (siwe.ContractCaller, error) {
	if id != 1 && id != 8453 {
		return nil, siwe.ErrUnconfiguredChain
	}
	return rejectingCaller{}, nil
}

type stubSessions struct {
	mu sync.Mutex
	n  int
}

func (s *stubSessions) IssueSession(_ context.Context, u *core.User, w *core.WalletAddress) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return core.Session{
		ID:        fmt.Sprintf("sess-%d", s.n),
		Token:     fmt.Sprintf("tok-%s-%d", u.ID, w.ChainID),
		ExpiresAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

type recordingAuthLog struct {
	mu     sync.Mutex
	events []core.AuthEvent
}

func (r *recordingAuthLog) LogAuthEvent(_ context.Context, e core.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAuthLog) types() []core.AuthEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.AuthEventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Event
	}
	return out
}

type testEnv struct {
	svc   *core.Service
	store *memorystore.Store
	audit *recordingAuthLog
	now   time.Time
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func newTestEnv(t *testing.T, mutate ...func(*core.Config)) *testEnv {
	t.Helper()
	cfg := core.Config{
		Domain:                  testDomain,
		URI:                     testURI,
		Chains:                  map[uint64]string{1: "http://127.0.0.1:1", 8453: "http://127.0.0.1:1"},
		NonceCleanupProbability: -1,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := core.NewFromConfig(cfg)
	require.NoError(t, err)

	env := &testEnv{
		store: memorystore.New(),
		audit: &recordingAuthLog{},
		now:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	env.svc = svc.
		WithStore(env.store).
		WithSessionIssuer(&stubSessions{}).
		WithChainResolver(testChains{}).
		WithAuthLogger(env.audit).
		WithClock(func() time.Time { return env.now })
	return env
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func strPtr(s string) *string { return &s }

// message builds a compliant sign-in message for address.
func (e *testEnv) message(address, domain, nonce string, chainID uint64) string {
	return siwe.Format(siwe.Message{
		Domain:    domain,
		Address:   address,
		Statement: strPtr("Sign in to App"),
		URI:       testURI,
		Version:   strPtr("1"),
		ChainID:   chainID,
		Nonce:     nonce,
		IssuedAt:  strPtr(e.now.Format(time.RFC3339)),
	})
}

func sign(t *testing.T, key *ecdsa.PrivateKey, msg string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

// signIn issues a nonce and returns a signed message for key on chainID.
func (e *testEnv) signIn(t *testing.T, key *ecdsa.PrivateKey, chainID uint64) (string, string) {
	t.Helper()
	nonce, err := e.svc.IssueNonce(context.Background())
	require.NoError(t, err)
	msg := e.message(crypto.PubkeyToAddress(key.PublicKey).Hex(), testDomain, nonce, chainID)
	return msg, sign(t, key, msg)
}

func (e *testEnv) verify(t *testing.T, key *ecdsa.PrivateKey, chainID uint64) *core.VerifyResult {
	t.Helper()
	msg, sig := e.signIn(t, key, chainID)
	res, err := e.svc.Verify(context.Background(), core.VerifyRequest{Message: msg, Signature: sig})
	require.NoError(t, err)
	return res
}
