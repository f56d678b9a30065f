package auth

import (
	"fmt"
	"time"

	"github.com/exzly/exzly/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager is the stateless half of token validity: it signs and
// verifies bearer tokens (HS256) and knows nothing about the ledger.
// Ledger membership is checked separately so the two can be tested and
// reasoned about independently.
type TokenManager struct {
	secret              string
	accessTokenExpiry   time.Duration
	refreshTokenExpiry  time.Duration
	passwordResetExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry, resetExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:              secret,
		accessTokenExpiry:   accessExpiry,
		refreshTokenExpiry:  refreshExpiry,
		passwordResetExpiry: resetExpiry,
	}
}

// CreateUserToken signs a bearer token of the given type for a user.
func (tm *TokenManager) CreateUserToken(tokenType string, userID int64) (string, error) {
	if tokenType != models.TokenTypeAccess && tokenType != models.TokenTypeRefresh {
		return "", fmt.Errorf("unknown token type: %s", tokenType)
	}

	expiry := tm.accessTokenExpiry
	if tokenType == models.TokenTypeRefresh {
		expiry = tm.refreshTokenExpiry
	}

	claims := &models.Claims{
		Type:   tokenType,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", tokenType, err)
	}

	return tokenString, nil
}

// CreatePasswordResetToken signs the secondary secret minted once a
// verification code has been redeemed. It carries the code, not a user
// id; the verification ledger maps it back to its owner.
func (tm *TokenManager) CreatePasswordResetToken(code string) (string, error) {
	claims := &models.Claims{
		Code: code,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.passwordResetExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign password reset token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// DecodeToken extracts claims without verifying the signature. Used on
// refresh, where the ledger check is the authority: a token the ledger
// vouches for identifies its subject from the payload alone.
func (tm *TokenManager) DecodeToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}

	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return claims, nil
}
