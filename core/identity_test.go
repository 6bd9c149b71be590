package core_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PaulFidika/walletauth/core"
	memorystore "github.com/PaulFidika/walletauth/storage/memory"
	"github.com/stretchr/testify/require"
)

// racingStore simulates a concurrent request that creates the same wallet
// for another user just before this one does.
type racingStore struct {
	*memorystore.Store
	owner string
}

func (r *racingStore) CreateWallet(ctx context.Context, w *core.WalletAddress) error {
	theirs := *w
	theirs.ID = "racer-wallet"
	theirs.UserID = r.owner
	if err := r.Store.CreateWallet(ctx, &theirs); err != nil {
		return err
	}
	return core.ErrDuplicate
}

func TestVerifyAttachesWalletToPlaceholderUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	key, addr := newKey(t)

	orphan := &core.User{
		ID:        "orphan",
		Name:      addr,
		Email:     strings.ToLower(addr) + "@app.example",
		CreatedAt: env.now,
		UpdatedAt: env.now,
	}
	require.NoError(t, env.store.CreateUser(ctx, orphan))

	res := env.verify(t, key, 1)
	require.Equal(t, "orphan", res.User.ID)
	require.False(t, res.Created)
	require.True(t, res.Wallet.IsPrimary)
	require.Equal(t, addr, res.Wallet.Address)
	require.Equal(t, 1, env.store.Accounts("orphan"))
}

func TestVerifyConcurrentFirstLogin(t *testing.T) {
	env := newTestEnv(t)
	key, addr := newKey(t)

	const n = 8
	reqs := make([]core.VerifyRequest, n)
	for i := range reqs {
		msg, sig := env.signIn(t, key, 1)
		reqs[i] = core.VerifyRequest{Message: msg, Signature: sig}
	}

	results := make([]*core.VerifyResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.svc.Verify(context.Background(), reqs[i])
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, results[0].User.ID, results[i].User.ID)
		require.Equal(t, results[0].Wallet.ID, results[i].Wallet.ID)
		if results[i].Created {
			created++
		}
	}
	require.LessOrEqual(t, created, 1)
	require.Equal(t, 1, env.store.Accounts(results[0].User.ID))

	ws, err := env.svc.ListWallets(context.Background(), results[0].User.ID)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	require.Equal(t, addr, ws[0].Address)
	require.True(t, ws[0].IsPrimary)
}

func TestLinkWalletLosesCreateRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := newKey(t)
	user := env.verify(t, alice, 1).User

	env.advance(time.Minute)
	extra, _ := newKey(t)
	msg, sig := env.signIn(t, extra, 1)

	env.svc.WithStore(&racingStore{Store: env.store, owner: "someone-else"})
	_, err := env.svc.LinkWallet(ctx, user.ID, core.LinkRequest{Message: msg, Signature: sig})
	require.ErrorIs(t, err, core.ErrWalletConflict)
	require.Equal(t, 1, env.store.Accounts(user.ID))
	require.NotContains(t, env.audit.types(), core.EventWalletLinked)
}
