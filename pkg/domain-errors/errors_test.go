package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	err := Validation("kycStatus", "must be one of PENDING, VERIFIED, REJECTED, EXEMPT, UNKNOWN", "BOGUS")

	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, de.Code)
	assert.Equal(t, "kycStatus", de.Field)
	assert.Equal(t, "BOGUS", de.Value)
	assert.Contains(t, err.Error(), "kycStatus")
}

func TestHasCode(t *testing.T) {
	t.Run("wrapped coded error keeps outer code", func(t *testing.T) {
		inner := New(CodeNotFound, "record not found")
		err := Wrap(inner, CodeInternal, "failed to load record")
		assert.True(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("fmt wrapping is transparent", func(t *testing.T) {
		err := fmt.Errorf("ingest: %w", New(CodeConflict, "duplicate"))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
}
