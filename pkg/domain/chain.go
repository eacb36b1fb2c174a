package domain

import (
	"regexp"

	dErrors "treasury/pkg/domain-errors"
)

// Format rules for on-chain identifiers. Only syntax is checked; hashes and
// addresses are never verified against a chain.
const (
	RuleHash32  = "must match ^0x[0-9a-fA-F]{64}$"
	RuleAddress = "must match ^0x[0-9a-fA-F]{40}$"
)

var (
	hash32Pattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// Hash32 is a 32-byte value rendered as a 0x-prefixed, 64 hex character string.
// Case is preserved exactly as received so values round-trip byte for byte.
//
// Usage: construct via ParseHash32 at trust boundaries; direct casting bypasses validation.
type Hash32 string

// ParseHash32 validates a bytes32 hex string.
//
// Errors: returns CodeInvalidInput when the value does not match RuleHash32.
func ParseHash32(s string) (Hash32, error) {
	if !hash32Pattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid bytes32 hex string")
	}
	return Hash32(s), nil
}

func (h Hash32) String() string {
	return string(h)
}

// IsNil returns true if the hash is empty.
func (h Hash32) IsNil() bool {
	return h == ""
}

// Address is a 20-byte account address rendered as a 0x-prefixed, 40 hex
// character string. No checksum validation is performed.
type Address string

// ParseAddress validates an account address.
//
// Errors: returns CodeInvalidInput when the value does not match RuleAddress.
func ParseAddress(s string) (Address, error) {
	if !addressPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid address")
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}

// IsNil returns true if the address is empty.
func (a Address) IsNil() bool {
	return a == ""
}
