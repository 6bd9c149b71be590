package siwe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller is the chain access needed for contract-wallet signatures.
type ContractCaller interface {
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	// SimulateCalls executes calls in order against a single simulated block,
	// with state changes from earlier calls visible to later ones.
	// It returns an error wrapping ErrSimulateUnsupported when the node lacks
	// block simulation.
	SimulateCalls(ctx context.Context, calls []SimCall) ([]SimResult, error)
	// CallDeployless runs creation code through eth_call and returns what the
	// constructor returns.
	CallDeployless(ctx context.Context, code []byte) ([]byte, error)
}

// SimCall is one call inside a simulated block.
type SimCall struct {
	To   common.Address
	Data []byte
}

// SimResult is the outcome of one simulated call.
type SimResult struct {
	ReturnData []byte
	Success    bool
	Error      string
}

// erc1271Magic is both the isValidSignature selector and its success return value.
var erc1271Magic = [4]byte{0x16, 0x26, 0xba, 0x7e}

// erc6492Suffix marks a counterfactual signature: 0x6492 repeated to 32 bytes.
var erc6492Suffix = bytes.Repeat([]byte{0x64, 0x92}, 16)

const erc1271ABI = `[{"type":"function","name":"isValidSignature","stateMutability":"view",
"inputs":[{"name":"hash","type":"bytes32"},{"name":"signature","type":"bytes"}],
"outputs":[{"name":"magicValue","type":"bytes4"}]}]`

var (
	erc1271     abi.ABI
	erc6492Args abi.Arguments
)

func init() {
	var err error
	erc1271, err = abi.JSON(strings.NewReader(erc1271ABI))
	if err != nil {
		panic(err)
	}
	addrT, _ := abi.NewType("address", "", nil)
	bytesT, _ := abi.NewType("bytes", "", nil)
	erc6492Args = abi.Arguments{{Type: addrT}, {Type: bytesT}, {Type: bytesT}}
}

// WrappedSignature is the decoded payload of an ERC-6492 signature.
type WrappedSignature struct {
	Factory         common.Address
	FactoryCalldata []byte
	Signature       []byte
}

// IsERC6492 reports whether sig carries the ERC-6492 magic suffix.
func IsERC6492(sig []byte) bool {
	return len(sig) > len(erc6492Suffix) && bytes.HasSuffix(sig, erc6492Suffix)
}

// UnwrapERC6492 decodes sig as abi.encode(address, bytes, bytes) ++ magic.
func UnwrapERC6492(sig []byte) (*WrappedSignature, error) {
	if !IsERC6492(sig) {
		return nil, errors.New("not an erc-6492 signature")
	}
	vals, err := erc6492Args.Unpack(sig[:len(sig)-len(erc6492Suffix)])
	if err != nil {
		return nil, fmt.Errorf("decode erc-6492 payload: %w", err)
	}
	factory, ok1 := vals[0].(common.Address)
	calldata, ok2 := vals[1].([]byte)
	inner, ok3 := vals[2].([]byte)
	if !ok1 || !ok2 || !ok3 {
		return nil, errors.New("decode erc-6492 payload: unexpected types")
	}
	return &WrappedSignature{Factory: factory, FactoryCalldata: calldata, Signature: inner}, nil
}

// WrapERC6492 builds an ERC-6492 signature. Wallet SDKs do this client-side.
func WrapERC6492(w WrappedSignature) ([]byte, error) {
	payload, err := erc6492Args.Pack(w.Factory, w.FactoryCalldata, w.Signature)
	if err != nil {
		return nil, err
	}
	return append(payload, erc6492Suffix...), nil
}

// IsValidSignatureCalldata encodes isValidSignature(hash, sig).
func IsValidSignatureCalldata(hash common.Hash, sig []byte) ([]byte, error) {
	return erc1271.Pack("isValidSignature", [32]byte(hash), sig)
}

func isMagic(ret []byte) bool {
	return len(ret) >= 4 && bytes.Equal(ret[:4], erc1271Magic[:])
}

func verifyContractSignature(ctx context.Context, caller ContractCaller, wallet common.Address, hash common.Hash, sig []byte) (bool, error) {
	if !IsERC6492(sig) {
		return isValidSignature(ctx, caller, wallet, hash, sig)
	}
	wrapped, err := UnwrapERC6492(sig)
	if err != nil {
		return false, err
	}
	code, err := caller.CodeAt(ctx, wallet)
	if err != nil {
		return false, fmt.Errorf("get code: %w", err)
	}
	if len(code) > 0 {
		if ok, err := isValidSignature(ctx, caller, wallet, hash, wrapped.Signature); ok && err == nil {
			return true, nil
		}
		// A deployed wallet may still need the wrapped prepare call first.
	}
	return verifyWithFactory(ctx, caller, wallet, hash, wrapped)
}

func isValidSignature(ctx context.Context, caller ContractCaller, wallet common.Address, hash common.Hash, sig []byte) (bool, error) {
	data, err := IsValidSignatureCalldata(hash, sig)
	if err != nil {
		return false, err
	}
	ret, err := caller.CallContract(ctx, wallet, data)
	if err != nil {
		return false, fmt.Errorf("isValidSignature: %w", err)
	}
	return isMagic(ret), nil
}

// verifyWithFactory runs the factory call and isValidSignature against the
// same pending state: eth_simulateV1 when the node has it, a deployless
// eth_call otherwise.
func verifyWithFactory(ctx context.Context, caller ContractCaller, wallet common.Address, hash common.Hash, w *WrappedSignature) (bool, error) {
	check, err := IsValidSignatureCalldata(hash, w.Signature)
	if err != nil {
		return false, err
	}
	results, err := caller.SimulateCalls(ctx, []SimCall{
		{To: w.Factory, Data: w.FactoryCalldata},
		{To: wallet, Data: check},
	})
	if errors.Is(err, ErrSimulateUnsupported) {
		ret, err := caller.CallDeployless(ctx, deploylessValidator(w.Factory, w.FactoryCalldata, wallet, check))
		if err != nil {
			return false, fmt.Errorf("deployless validation: %w", err)
		}
		return isMagic(ret), nil
	}
	if err != nil {
		return false, fmt.Errorf("simulate deployment: %w", err)
	}
	if len(results) != 2 {
		return false, fmt.Errorf("simulate deployment: got %d results", len(results))
	}
	if !results[0].Success {
		return false, fmt.Errorf("factory call failed: %s", results[0].Error)
	}
	return results[1].Success && isMagic(results[1].ReturnData), nil
}
