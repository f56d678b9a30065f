package repositories

import (
	"context"
	"time"

	"github.com/exzly/exzly/internal/database"
	"github.com/exzly/exzly/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthVerifyRepository persists the verification ledger backing the
// forgot-password flow. Rows move through two single-use steps, code
// then token, and both flags only ever go from false to true. The
// flag transitions are atomic conditional updates so two concurrent
// redemptions cannot both win. Rows are never deleted; a fresh request
// supersedes older rows, and spent rows stay behind as the audit trail.
type AuthVerifyRepository struct {
	pool *pgxpool.Pool
}

func NewAuthVerifyRepository(db *database.DB) *AuthVerifyRepository {
	return &AuthVerifyRepository{pool: db.Pool}
}

const authVerifyColumns = "id, user_id, code, sha1, token, purpose, code_is_used, token_is_used, expires_at, created_at"

func scanAuthVerifyRow(scanner rowScanner) (*models.AuthVerify, error) {
	var verify models.AuthVerify

	err := scanner.Scan(
		&verify.ID, &verify.UserID, &verify.Code, &verify.SHA1,
		&verify.Token, &verify.Purpose, &verify.CodeIsUsed,
		&verify.TokenIsUsed, &verify.ExpiresAt, &verify.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &verify, nil
}

// Create persists a fresh verification row. Multiple live rows per
// user are allowed; lookups prefer the newest.
func (r *AuthVerifyRepository) Create(ctx context.Context, verify *models.AuthVerify) (*models.AuthVerify, error) {
	query := `
		INSERT INTO auth_verify (user_id, code, sha1, purpose, code_is_used, token_is_used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, $5, $6)
		RETURNING ` + authVerifyColumns

	return scanAuthVerifyRow(r.pool.QueryRow(ctx, query,
		verify.UserID, verify.Code, verify.SHA1, verify.Purpose,
		verify.ExpiresAt, time.Now(),
	))
}

// GetByCode returns the newest row for a raw code.
func (r *AuthVerifyRepository) GetByCode(ctx context.Context, code string) (*models.AuthVerify, error) {
	query := `
		SELECT ` + authVerifyColumns + `
		FROM auth_verify
		WHERE code = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanAuthVerifyRow(r.pool.QueryRow(ctx, query, code))
}

// GetBySHA1 returns the newest row for an emailed correlation key.
// Backs the click-through half of the recovery flow.
func (r *AuthVerifyRepository) GetBySHA1(ctx context.Context, sha1 string) (*models.AuthVerify, error) {
	query := `
		SELECT ` + authVerifyColumns + `
		FROM auth_verify
		WHERE sha1 = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanAuthVerifyRow(r.pool.QueryRow(ctx, query, sha1))
}

// RedeemCode consumes the code step in one conditional update: it
// marks the code used, stores the minted token, and replaces the
// expiry with the shorter token window. Returns ErrBadRequest if the
// code was already consumed by a concurrent request.
func (r *AuthVerifyRepository) RedeemCode(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	query := `
		UPDATE auth_verify
		SET code_is_used = TRUE, token = $2, expires_at = $3
		WHERE id = $1 AND code_is_used = FALSE
	`

	result, err := r.pool.Exec(ctx, query, id, token, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrBadRequest
	}

	return nil
}

// GetByToken returns the row holding a minted reset token together
// with its owner, joined so the reset step is one round trip.
func (r *AuthVerifyRepository) GetByToken(ctx context.Context, token string) (*models.AuthVerify, *models.User, error) {
	query := `
		SELECT v.id, v.user_id, v.code, v.sha1, v.token, v.purpose, v.code_is_used, v.token_is_used, v.expires_at, v.created_at,
		       u.id, u.email, u.username, u.password_hash, u.is_admin, u.gender, u.full_name, u.photo, u.created_at, u.updated_at, u.deleted_at
		FROM auth_verify v
		JOIN users u ON u.id = v.user_id
		WHERE v.token = $1
		ORDER BY v.created_at DESC
		LIMIT 1
	`

	var verify models.AuthVerify
	var user models.User

	err := r.pool.QueryRow(ctx, query, token).Scan(
		&verify.ID, &verify.UserID, &verify.Code, &verify.SHA1,
		&verify.Token, &verify.Purpose, &verify.CodeIsUsed,
		&verify.TokenIsUsed, &verify.ExpiresAt, &verify.CreatedAt,
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.IsAdmin, &user.Gender, &user.FullName, &user.Photo,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		return nil, nil, database.MapPostgresError(err)
	}

	return &verify, &user, nil
}

// RedeemToken consumes the token step, same conditional-update shape
// as RedeemCode.
func (r *AuthVerifyRepository) RedeemToken(ctx context.Context, id int64) error {
	query := `
		UPDATE auth_verify
		SET token_is_used = TRUE
		WHERE id = $1 AND token_is_used = FALSE
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrBadRequest
	}

	return nil
}
