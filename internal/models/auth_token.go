package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Bearer token types as they appear in the ledger and in JWT claims.
const (
	TokenTypeAccess  = "access-token"
	TokenTypeRefresh = "refresh-token"
)

// AuthToken is a ledger entry for an issued bearer token. Rows are never
// deleted; revocation flips IsRevoked. A token authorizes a request only
// when its ledger entry is live AND its signature and expiry verify.
type AuthToken struct {
	ID        int64
	UserID    int64
	Type      string // TokenTypeAccess or TokenTypeRefresh
	Token     string
	IsRevoked bool
	CreatedAt time.Time
}

// Claims is the signed payload of every bearer token. User tokens carry
// Type and UserID; password-reset tokens carry only Code.
type Claims struct {
	Type   string `json:"type,omitempty"`
	UserID int64  `json:"userId,omitempty"`
	Code   string `json:"code,omitempty"`
	jwt.RegisteredClaims
}
