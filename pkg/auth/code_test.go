package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerificationCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		code, err := GenerateVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)

		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code must be digits only: %q", code)
		}
		assert.False(t, allSameDigits(code), "all-same-digit code must be redrawn: %q", code)

		seen[code] = true
	}

	// 200 draws from a million-code space should essentially never collide
	// into a single value.
	assert.Greater(t, len(seen), 150)
}

func TestHashCode(t *testing.T) {
	// Fixed vector so emailed links stay verifiable across versions.
	assert.Equal(t, "7c4a8d09ca3762af61e59520943dc26494f8941b", HashCode("123456"))
	assert.Equal(t, HashCode("654321"), HashCode("654321"))
	assert.NotEqual(t, HashCode("123456"), HashCode("654321"))
	assert.Len(t, HashCode("000001"), 40)
}

func TestAllSameDigits(t *testing.T) {
	assert.True(t, allSameDigits("000000"))
	assert.True(t, allSameDigits("999999"))
	assert.False(t, allSameDigits("123456"))
	assert.False(t, allSameDigits("111112"))
}
