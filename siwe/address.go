package siwe

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsWellFormed reports whether raw looks like a 20-byte hex address with a 0x prefix.
// It does not compute or check the checksum.
func IsWellFormed(raw string) bool {
	if len(raw) < 2 || (raw[:2] != "0x" && raw[:2] != "0X") {
		return false
	}
	return common.IsHexAddress(raw)
}

// Normalize returns the EIP-55 checksummed form of raw.
// Input case is ignored, so differently-cased spellings of one address normalize identically.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !IsWellFormed(raw) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(raw).Hex(), nil
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
