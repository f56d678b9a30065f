package auth

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// GenerateVerificationCode returns a random fixed-length digit string.
// All-same-digit codes ("000000" through "999999") are rejected and
// redrawn; they are too easy to enter by accident or to guess casually.
// Expiry and single-use remain the real guards.
func GenerateVerificationCode() (string, error) {
	for {
		code, err := randomDigits(CodeLength)
		if err != nil {
			return "", err
		}
		if !allSameDigits(code) {
			return code, nil
		}
	}
}

// HashCode derives the non-secret correlation key for a code. The hash
// is embedded in emailed links so the raw code never travels in a URL.
func HashCode(code string) string {
	sum := sha1.Sum([]byte(code))
	return hex.EncodeToString(sum[:])
}

func randomDigits(length int) (string, error) {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate verification code: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

func allSameDigits(code string) bool {
	for i := 1; i < len(code); i++ {
		if code[i] != code[0] {
			return false
		}
	}
	return true
}
