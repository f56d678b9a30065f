package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/exzly/exzly/internal/database"
	"github.com/exzly/exzly/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = "id, email, username, password_hash, is_admin, gender, full_name, photo, created_at, updated_at, deleted_at"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.IsAdmin, &user.Gender, &user.FullName, &user.Photo,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (email, username, password_hash, is_admin, gender, full_name, photo, created_at, updated_at)
		VALUES (lower($1), lower($2), $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.Email, user.Username, user.PasswordHash,
		user.IsAdmin, user.Gender, user.FullName, user.Photo,
		user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetByID returns the user row regardless of lifecycle state. Callers
// that only accept active users check Lifecycle themselves.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByIdentity resolves a sign-in identity, which may be an email or a
// username, with a single case-folded lookup. Trashed users cannot be
// resolved this way.
func (r *UserRepository) GetByIdentity(ctx context.Context, identity string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE (email = lower($1) OR username = lower($1)) AND deleted_at IS NULL
	`

	return scanUserRow(r.pool.QueryRow(ctx, query, identity))
}

// EmailExists reports whether the email is taken by any row, trashed
// included, since trashed rows keep their values reserved. excludeID
// skips the row being updated; pass 0 when creating.
func (r *UserRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = lower($1) AND id <> $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = lower($1) AND id <> $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, username, excludeID).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// ListParams narrows and pages the user listing.
type ListParams struct {
	Skip    int
	Size    int
	Search  string
	InTrash bool
}

// List returns one page of users plus the total row count for the
// requested lifecycle and the count remaining after the search filter.
func (r *UserRepository) List(ctx context.Context, params ListParams) ([]*models.User, int64, int64, error) {
	lifecycle := "deleted_at IS NULL"
	if params.InTrash {
		lifecycle = "deleted_at IS NOT NULL"
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+lifecycle).Scan(&total); err != nil {
		return nil, 0, 0, database.MapPostgresError(err)
	}

	search := "%" + params.Search + "%"

	countQuery := `
		SELECT COUNT(*) FROM users
		WHERE ` + lifecycle + ` AND (email ILIKE $1 OR username ILIKE $1 OR full_name ILIKE $1)
	`
	var filtered int64
	if err := r.pool.QueryRow(ctx, countQuery, search).Scan(&filtered); err != nil {
		return nil, 0, 0, database.MapPostgresError(err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ` + lifecycle + ` AND (email ILIKE $1 OR username ILIKE $1 OR full_name ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, search, params.Size, params.Skip)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := scanUserRows(rows)
	if err != nil {
		return nil, 0, 0, err
	}

	return users, total, filtered, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, fullName string, gender *string) (*models.User, error) {
	query := `
		UPDATE users SET full_name = $1, gender = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, fullName, gender, time.Now(), id))
}

func (r *UserRepository) UpdateCredentials(ctx context.Context, id int64, email, username string) (*models.User, error) {
	query := `
		UPDATE users SET email = lower($1), username = lower($2), updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, email, username, time.Now(), id))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *UserRepository) UpdatePhoto(ctx context.Context, id int64, photo string) (*models.User, error) {
	query := `
		UPDATE users SET photo = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, photo, time.Now(), id))
}

// Trash soft-deletes an active user. Returns ErrNotFound if the row is
// missing or already trashed, so a second delete surfaces as 404.
func (r *UserRepository) Trash(ctx context.Context, id int64) error {
	query := `UPDATE users SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Restore brings a trashed user back. Only trashed rows qualify.
func (r *UserRepository) Restore(ctx context.Context, id int64) error {
	query := `UPDATE users SET deleted_at = NULL, updated_at = $1 WHERE id = $2 AND deleted_at IS NOT NULL`

	result, err := r.pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Purge hard-deletes a user that is already in the trash. Active rows
// are never purged directly; they must be trashed first.
func (r *UserRepository) Purge(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1 AND deleted_at IS NOT NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
