package veriport

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Digest computes the keccak256 commitment over the literal byte sequence.
// The same primitive the ledger uses; no normalization of any kind happens
// here. Returns a 0x-prefixed 64-hex-char string.
func Digest(b []byte) string {
	return crypto.Keccak256Hash(b).Hex()
}

// EqualHash compares two hex digests case-insensitively.
func EqualHash(a, b string) bool {
	return strings.EqualFold(a, b)
}

// IsHash reports whether s is a well-formed 32-byte hex digest.
func IsHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// IsAddress reports whether s is a well-formed hex account address.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

// NormalizeAddress returns the checksummed form of a hex address.
func NormalizeAddress(s string) string {
	return common.HexToAddress(s).Hex()
}
