package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "treasury/pkg/domain-errors"
)

const (
	validHash    = "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	validAddress = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
)

// TestParseHash32_Invariants validates the parsing invariant:
// "identifiers are 0x followed by exactly 64 hex characters"
func TestParseHash32_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"lowercase", validHash, false},
		{"uppercase hex digits", "0x" + strings.ToUpper(validHash[2:]), false},
		{"mixed case", "0xABCDEF1234567890abcdef1234567890abcdef1234567890abcdef1234567890", false},
		{"all zeros", "0x" + strings.Repeat("0", 64), false},

		{"empty", "", true},
		{"missing prefix", validHash[2:], true},
		{"uppercase prefix", "0X" + validHash[2:], true},
		{"too short", validHash[:65], true},
		{"too long", validHash + "0", true},
		{"non-hex character", "0x" + strings.Repeat("g", 64), true},
		{"trailing newline", validHash + "\n", true},
		{"leading whitespace", " " + validHash, true},
		{"address length", validAddress, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHash32(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				assert.True(t, h.IsNil())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, h.String(), "case must be preserved")
		})
	}
}

func TestParseAddress_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"checksummed", validAddress, false},
		{"lowercase", strings.ToLower(validAddress), false},

		{"empty", "", true},
		{"missing prefix", validAddress[2:], true},
		{"39 hex characters", validAddress[:41], true},
		{"41 hex characters", validAddress + "a", true},
		{"non-hex character", "0x" + strings.Repeat("z", 40), true},
		{"hash length", validHash, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Address(tt.input), a)
		})
	}
}

func TestParseJurisdiction(t *testing.T) {
	for _, ok := range []string{"US", "DE", "SG"} {
		_, err := ParseJurisdiction(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "us", "USA", "U", "U1", "Us"} {
		_, err := ParseJurisdiction(bad)
		assert.Error(t, err, bad)
	}
}
