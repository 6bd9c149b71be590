package ens

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// fakeENS answers registry and resolver calls from in-memory records.
type fakeENS struct {
	resolver common.Address
	names    map[[32]byte]string
	addrs    map[[32]byte]common.Address
	texts    map[[32]byte]map[string]string
	fail     error
}

func (f *fakeENS) CallContract(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	m, err := ensABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	node := args[0].([32]byte)
	switch m.Name {
	case "resolver":
		if to != Registry {
			return nil, errors.New("resolver() sent to non-registry")
		}
		if _, ok := f.names[node]; ok {
			return m.Outputs.Pack(f.resolver)
		}
		if _, ok := f.addrs[node]; ok {
			return m.Outputs.Pack(f.resolver)
		}
		return m.Outputs.Pack(common.Address{})
	case "name":
		return m.Outputs.Pack(f.names[node])
	case "addr":
		return m.Outputs.Pack(f.addrs[node])
	case "text":
		return m.Outputs.Pack(f.texts[node][args[1].(string)])
	}
	return nil, errors.New("unexpected method " + m.Name)
}

const vitalik = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

func newFake(name string, forward common.Address) *fakeENS {
	reverse := Namehash("d8da6bf26964af9d7eed9e03e53415d37aa96045.addr.reverse")
	node := Namehash(name)
	return &fakeENS{
		resolver: common.HexToAddress("0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63"),
		names:    map[[32]byte]string{reverse: name},
		addrs:    map[[32]byte]common.Address{node: forward},
		texts:    map[[32]byte]map[string]string{node: {"avatar": "https://img.example/v.png"}},
	}
}

func TestNamehash(t *testing.T) {
	require.Equal(t, [32]byte{}, Namehash(""))
	got := Namehash("eth")
	require.Equal(t, "93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae", hex.EncodeToString(got[:]))
	got = Namehash("foo.eth")
	require.Equal(t, "de9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f", hex.EncodeToString(got[:]))
}

func TestLookup(t *testing.T) {
	f := newFake("vitalik.eth", common.HexToAddress(vitalik))
	p, err := New(f).Lookup(context.Background(), vitalik)
	require.NoError(t, err)
	require.Equal(t, "vitalik.eth", p.Name)
	require.Equal(t, "https://img.example/v.png", p.Avatar)
}

func TestLookupRejectsUnverifiedReverse(t *testing.T) {
	f := newFake("vitalik.eth", common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	_, err := New(f).Lookup(context.Background(), vitalik)
	require.ErrorIs(t, err, ErrNoName)
}

func TestLookupNoRecord(t *testing.T) {
	f := &fakeENS{names: map[[32]byte]string{}, addrs: map[[32]byte]common.Address{}}
	_, err := New(f).Func()(context.Background(), vitalik)
	require.ErrorIs(t, err, ErrNoName)
}

func TestLookupRPCError(t *testing.T) {
	f := &fakeENS{fail: errors.New("rpc down")}
	_, err := New(f).Lookup(context.Background(), vitalik)
	require.ErrorContains(t, err, "rpc down")

	_, err = New(f).Lookup(context.Background(), "not-an-address")
	require.Error(t, err)
}
