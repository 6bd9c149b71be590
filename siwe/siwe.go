// Package siwe implements Sign In With Ethereum (EIP-4361) message handling for
// wallet-agnostic authentication: address checksumming, message parsing with a
// lenient fallback, security validation against the server identity, nonce
// formatting, and signature verification for both EOAs and contract wallets
// (ERC-1271 / ERC-6492).
package siwe

import "errors"

var (
	ErrInvalidAddress     = errors.New("invalid address")
	ErrMalformedMessage   = errors.New("malformed message")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrUnconfiguredChain  = errors.New("unconfigured chain")
	ErrInvalidChainID     = errors.New("invalid chain id")
	ErrInvalidNonce       = errors.New("invalid nonce format")

	// ErrSimulateUnsupported reports a node without eth_simulateV1.
	ErrSimulateUnsupported = errors.New("eth_simulateV1 not supported")
)

// MaxChainID is the largest chain id accepted (int32 max, matching common wallet tooling).
const MaxChainID = 2147483647

// ValidateChainID checks that id is within 1..MaxChainID.
func ValidateChainID(id uint64) error {
	if id < 1 || id > MaxChainID {
		return ErrInvalidChainID
	}
	return nil
}
