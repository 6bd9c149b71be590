// Package ens resolves a display name and avatar for an address through ENS
// reverse records.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/walletauth/core"
	"github.com/PaulFidika/walletauth/siwe"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Registry is the ENS registry address, identical on mainnet and testnets.
var Registry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// ErrNoName is returned when the address has no verified reverse record.
var ErrNoName = errors.New("ens: no reverse record")

const ensABIJSON = `[
{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"text","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"}],"outputs":[{"name":"","type":"string"}]}
]`

var ensABI abi.ABI

func init() {
	var err error
	ensABI, err = abi.JSON(strings.NewReader(ensABIJSON))
	if err != nil {
		panic(err)
	}
}

// Caller executes read-only contract calls. siwe.ContractCaller satisfies it.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Resolver looks up ENS names.
type Resolver struct {
	caller  Caller
	timeout time.Duration
	logger  *zap.Logger
}

func New(caller Caller) *Resolver {
	return &Resolver{caller: caller, timeout: 5 * time.Second, logger: zap.NewNop()}
}

// Dial connects to a mainnet JSON-RPC endpoint. The returned close func
// releases the connection.
func Dial(ctx context.Context, rpcURL string, timeout time.Duration) (*Resolver, func(), error) {
	chains := siwe.NewEthChains(map[uint64]string{1: rpcURL}, timeout)
	c, err := chains.Caller(ctx, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("ens: %w", err)
	}
	r := New(c)
	if timeout > 0 {
		r.timeout = timeout
	}
	return r, chains.Close, nil
}

func (r *Resolver) WithLogger(l *zap.Logger) *Resolver {
	if l != nil {
		r.logger = l
	}
	return r
}

// Func adapts the resolver to core.NameLookupFunc.
func (r *Resolver) Func() core.NameLookupFunc { return r.Lookup }

// Lookup returns the primary ENS name of address and its avatar text record.
// The name is only returned when it resolves forward to the same address.
func (r *Resolver) Lookup(ctx context.Context, address string) (core.NameProfile, error) {
	if !common.IsHexAddress(address) {
		return core.NameProfile{}, siwe.ErrInvalidAddress
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	addr := common.HexToAddress(address)

	reverse := Namehash(strings.ToLower(addr.Hex()[2:]) + ".addr.reverse")
	res, err := r.resolverOf(ctx, reverse)
	if err != nil {
		return core.NameProfile{}, err
	}
	var name string
	if err := r.call(ctx, res, "name", &name, reverse); err != nil {
		return core.NameProfile{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.NameProfile{}, ErrNoName
	}

	node := Namehash(name)
	fwd, err := r.resolverOf(ctx, node)
	if err != nil {
		return core.NameProfile{}, err
	}
	var owner common.Address
	if err := r.call(ctx, fwd, "addr", &owner, node); err != nil {
		return core.NameProfile{}, err
	}
	if owner != addr {
		r.logger.Debug("ens reverse record does not resolve forward", zap.String("address", addr.Hex()), zap.String("name", name))
		return core.NameProfile{}, ErrNoName
	}

	profile := core.NameProfile{Name: name}
	var avatar string
	if err := r.call(ctx, fwd, "text", &avatar, node, "avatar"); err == nil {
		profile.Avatar = strings.TrimSpace(avatar)
	}
	return profile, nil
}

func (r *Resolver) resolverOf(ctx context.Context, node [32]byte) (common.Address, error) {
	var res common.Address
	if err := r.call(ctx, Registry, "resolver", &res, node); err != nil {
		return common.Address{}, err
	}
	if res == (common.Address{}) {
		return common.Address{}, ErrNoName
	}
	return res, nil
}

func (r *Resolver) call(ctx context.Context, to common.Address, method string, out any, args ...any) error {
	data, err := ensABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("ens: pack %s: %w", method, err)
	}
	ret, err := r.caller.CallContract(ctx, to, data)
	if err != nil {
		return fmt.Errorf("ens: %s: %w", method, err)
	}
	if len(ret) == 0 {
		return ErrNoName
	}
	if err := ensABI.UnpackIntoInterface(out, method, ret); err != nil {
		return fmt.Errorf("ens: unpack %s: %w", method, err)
	}
	return nil
}

// Namehash implements the EIP-137 name hash. name must already be normalized.
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		copy(node[:], crypto.Keccak256(node[:], label))
	}
	return node
}
