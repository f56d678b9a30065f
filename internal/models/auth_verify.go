package models

import (
	"time"
)

// Verification purposes. Password reset is the only purpose today; the
// column exists so future flows reuse the same ledger.
const (
	PurposePasswordReset = "password-reset"
)

// AuthVerify is a one-time recovery artifact. The row is created with a
// human-enterable code; redeeming the code mints Token and replaces the
// expiry with the (shorter) token window; redeeming the token is terminal.
// CodeIsUsed and TokenIsUsed are monotonic - they are only ever flipped
// to true, via conditional updates, so replay fails.
type AuthVerify struct {
	ID          int64
	UserID      int64
	Code        string
	SHA1        string  // non-secret correlation key embedded in emailed links
	Token       *string // minted when the code is redeemed
	Purpose     string
	CodeIsUsed  bool
	TokenIsUsed bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the row's current window has passed.
func (v *AuthVerify) Expired(now time.Time) bool {
	return v.ExpiresAt.Before(now)
}
