package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Success(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct-horse", hash)
}

func TestHashPassword_EmptyPassword(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

// The declared maximum must stay within bcrypt's 72-byte input limit;
// a password at the bound has to hash cleanly.
func TestHashPassword_MaxLength(t *testing.T) {
	password := strings.Repeat("a", MaxPasswordLen)
	require.NoError(t, ValidatePassword(password))

	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, password))
}

func TestComparePassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "correct-horse"))
	assert.Error(t, ComparePassword(hash, "wrong-horse"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"minimum length", "secret", false},
		{"too short", "short", true},
		{"empty", "", true},
		{"long but allowed", string(make([]byte, MaxPasswordLen)), false},
		{"over maximum", string(make([]byte, MaxPasswordLen+1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
