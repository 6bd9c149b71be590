package siwe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Signature size bounds in bytes. The upper bound leaves room for ERC-6492
// wrapped signatures that carry factory calldata.
const (
	MinSignatureLength = 65
	MaxSignatureLength = 32 * 1024
)

// Path identifies which verification strategy accepted a signature.
type Path string

const (
	PathEOA      Path = "eoa"
	PathContract Path = "contract"
)

// ParseSignature decodes a hex signature (0x prefix optional) and checks its size.
func ParseSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMalformedSignature
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode("0x" + s[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(b) < MinSignatureLength || len(b) > MaxSignatureLength {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedSignature, len(b))
	}
	return b, nil
}

// MessageHash returns the EIP-191 personal_sign hash of message.
func MessageHash(message string) common.Hash {
	return common.BytesToHash(accounts.TextHash([]byte(message)))
}

// RecoverAddress recovers the signer of an EIP-191 signed message.
// The recovery id may be 0/1 or 27/28.
func RecoverAddress(message string, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrMalformedSignature, len(sig))
	}
	s := make([]byte, crypto.SignatureLength)
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), s)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// ChainResolver hands out a ContractCaller for a chain id.
// Unknown chains yield ErrUnconfiguredChain.
type ChainResolver interface {
	Caller(ctx context.Context, chainID uint64) (ContractCaller, error)
}

// Verifier checks that a message was signed by a claimed address. It tries
// local ECDSA recovery first and falls back to an on-chain contract-wallet
// check for the message's chain.
type Verifier struct {
	chains ChainResolver
	logger *zap.Logger
}

// NewVerifier returns a Verifier. chains may be nil, in which case only EOA
// signatures can be verified.
func NewVerifier(chains ChainResolver, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{chains: chains, logger: logger}
}

// Verify returns the path that accepted sig, or ErrInvalidSignature,
// ErrUnconfiguredChain, ErrInvalidAddress or ErrMalformedSignature.
func (v *Verifier) Verify(ctx context.Context, message string, sig []byte, claimed string, chainID uint64) (Path, error) {
	addr, err := Normalize(claimed)
	if err != nil {
		return "", err
	}
	if len(sig) < MinSignatureLength || len(sig) > MaxSignatureLength {
		return "", ErrMalformedSignature
	}

	if len(sig) == crypto.SignatureLength {
		recovered, err := RecoverAddress(message, sig)
		if err == nil && recovered.Hex() == addr {
			return PathEOA, nil
		}
	}

	if v.chains == nil {
		return "", ErrUnconfiguredChain
	}
	caller, err := v.chains.Caller(ctx, chainID)
	if err != nil {
		if errors.Is(err, ErrUnconfiguredChain) {
			return "", ErrUnconfiguredChain
		}
		v.logger.Warn("rpc unavailable", zap.Uint64("chain_id", chainID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ok, err := verifyContractSignature(ctx, caller, common.HexToAddress(addr), MessageHash(message), sig)
	if err != nil {
		v.logger.Info("contract signature check failed",
			zap.String("address", addr),
			zap.Uint64("chain_id", chainID),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return "", ErrInvalidSignature
	}
	return PathContract, nil
}
