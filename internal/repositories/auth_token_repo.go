package repositories

import (
	"context"
	"time"

	"github.com/exzly/exzly/internal/database"
	"github.com/exzly/exzly/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthTokenRepository is the issued-token ledger. A bearer token is
// honored only while its row exists and is not revoked; rows are never
// deleted so the ledger doubles as an audit trail.
type AuthTokenRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewAuthTokenRepository(db *database.DB) *AuthTokenRepository {
	return &AuthTokenRepository{db: db, pool: db.Pool}
}

func scanAuthTokenRow(scanner rowScanner) (*models.AuthToken, error) {
	var token models.AuthToken

	err := scanner.Scan(
		&token.ID, &token.UserID, &token.Type, &token.Token,
		&token.IsRevoked, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &token, nil
}

// Create ledgers a freshly issued token.
func (r *AuthTokenRepository) Create(ctx context.Context, userID int64, tokenType, token string) (*models.AuthToken, error) {
	query := `
		INSERT INTO auth_tokens (user_id, type, token, is_revoked, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id, user_id, type, token, is_revoked, created_at
	`

	return scanAuthTokenRow(r.pool.QueryRow(ctx, query, userID, tokenType, token, time.Now()))
}

// CreatePair ledgers an access and refresh token in one transaction so
// a sign-in never leaves half a pair behind.
func (r *AuthTokenRepository) CreatePair(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	query := `
		INSERT INTO auth_tokens (user_id, type, token, is_revoked, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
	`

	now := time.Now()
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, userID, models.TokenTypeAccess, accessToken, now); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, query, userID, models.TokenTypeRefresh, refreshToken, now)
		return err
	})
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// GetByToken fetches the ledger row for a raw token string of the
// given type, revoked or not.
func (r *AuthTokenRepository) GetByToken(ctx context.Context, tokenType, token string) (*models.AuthToken, error) {
	query := `
		SELECT id, user_id, type, token, is_revoked, created_at
		FROM auth_tokens
		WHERE token = $1 AND type = $2
	`

	return scanAuthTokenRow(r.pool.QueryRow(ctx, query, token, tokenType))
}

// IsActive reports whether the ledger still honors a token. Used on
// every bearer request, so it stays a single indexed lookup.
func (r *AuthTokenRepository) IsActive(ctx context.Context, tokenType, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM auth_tokens
			WHERE token = $1 AND type = $2 AND is_revoked = FALSE
		)
	`

	var active bool
	if err := r.pool.QueryRow(ctx, query, token, tokenType).Scan(&active); err != nil {
		return false, database.MapPostgresError(err)
	}
	return active, nil
}

// Revoke marks a token revoked. Revoking an already revoked token is a
// no-op, not an error.
func (r *AuthTokenRepository) Revoke(ctx context.Context, token string) error {
	query := `UPDATE auth_tokens SET is_revoked = TRUE WHERE token = $1`

	if _, err := r.pool.Exec(ctx, query, token); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// RevokeAllForUser marks every token issued to a user revoked. Used
// when an account is trashed so outstanding credentials die with it.
func (r *AuthTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	query := `UPDATE auth_tokens SET is_revoked = TRUE WHERE user_id = $1 AND is_revoked = FALSE`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}
