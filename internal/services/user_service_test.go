package services

import (
	"context"
	"testing"
	"time"

	"github.com/exzly/exzly/internal/models"
	"github.com/exzly/exzly/internal/repositories"
	pkgauth "github.com/exzly/exzly/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(users *MockUserRepository, tokens *MockAuthTokenRepository) *UserService {
	if users == nil {
		users = &MockUserRepository{}
	}
	if tokens == nil {
		tokens = &MockAuthTokenRepository{}
	}
	return NewUserService(users, tokens, newTestLogger(), newTestAuditLogger())
}

func TestUserServiceCreate(t *testing.T) {
	t.Run("hashes password and folds identity case", func(t *testing.T) {
		var created *models.User
		users := &MockUserRepository{
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				created = user
				row := *user
				row.ID = 9
				return &row, nil
			},
		}
		svc := newTestUserService(users, nil)

		user, err := svc.Create(context.Background(), CreateUserInput{
			Email:    "Jane.Doe@exzly.dev",
			Username: "Jane.Doe",
			Password: "sup3rsecret",
			FullName: "Jane Doe",
			IsAdmin:  true,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(9), user.ID)
		assert.Equal(t, "jane.doe@exzly.dev", created.Email)
		assert.Equal(t, "jane.doe", created.Username)
		assert.True(t, created.IsAdmin)
		assert.NoError(t, pkgauth.ComparePassword(created.PasswordHash, "sup3rsecret"))
	})

	t.Run("duplicate identity is a validation error", func(t *testing.T) {
		users := &MockUserRepository{
			EmailExistsFunc: func(ctx context.Context, email string, excludeID int64) (bool, error) {
				return true, nil
			},
		}
		svc := newTestUserService(users, nil)

		_, err := svc.Create(context.Background(), CreateUserInput{
			Email:    "taken@exzly.dev",
			Username: "new",
			Password: "sup3rsecret",
			FullName: "Taken",
		})

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "email", verr.Fields[0].Field)
	})
}

func TestUserServiceList(t *testing.T) {
	users := &MockUserRepository{
		ListFunc: func(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error) {
			assert.Equal(t, 10, params.Skip)
			assert.Equal(t, 5, params.Size)
			assert.True(t, params.InTrash)
			return []*models.User{{ID: 1}}, 20, 1, nil
		},
	}
	svc := newTestUserService(users, nil)

	list, total, filtered, err := svc.List(context.Background(), repositories.ListParams{Skip: 10, Size: 5, InTrash: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(20), total)
	assert.Equal(t, int64(1), filtered)
}

func TestUserServiceUpdateCredentials(t *testing.T) {
	t.Run("uniqueness excludes the target row", func(t *testing.T) {
		var excluded int64
		users := &MockUserRepository{
			EmailExistsFunc: func(ctx context.Context, email string, excludeID int64) (bool, error) {
				excluded = excludeID
				return false, nil
			},
			UpdateCredentialsFunc: func(ctx context.Context, id int64, email, username string) (*models.User, error) {
				return &models.User{ID: id, Email: email, Username: username}, nil
			},
		}
		svc := newTestUserService(users, nil)

		_, err := svc.UpdateCredentials(context.Background(), 7, UpdateCredentialsInput{
			Email:    "same@exzly.dev",
			Username: "same",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), excluded)
	})

	t.Run("optional password change rehashes", func(t *testing.T) {
		var newHash string
		users := &MockUserRepository{
			UpdateCredentialsFunc: func(ctx context.Context, id int64, email, username string) (*models.User, error) {
				return &models.User{ID: id, Email: email, Username: username}, nil
			},
			UpdatePasswordFunc: func(ctx context.Context, id int64, passwordHash string) error {
				newHash = passwordHash
				return nil
			},
		}
		svc := newTestUserService(users, nil)

		_, err := svc.UpdateCredentials(context.Background(), 7, UpdateCredentialsInput{
			Email:       "same@exzly.dev",
			Username:    "same",
			NewPassword: "brand-new",
		})
		require.NoError(t, err)
		assert.NoError(t, pkgauth.ComparePassword(newHash, "brand-new"))
	})
}

func TestUserServiceDelete(t *testing.T) {
	admin := &models.User{ID: 1, IsAdmin: true}

	t.Run("soft delete trashes and revokes tokens", func(t *testing.T) {
		var trashed, revoked bool
		users := &MockUserRepository{
			TrashFunc: func(ctx context.Context, id int64) error {
				trashed = true
				return nil
			},
		}
		tokens := &MockAuthTokenRepository{
			RevokeAllForUserFunc: func(ctx context.Context, userID int64) error {
				revoked = true
				return nil
			},
		}
		svc := newTestUserService(users, tokens)

		require.NoError(t, svc.Delete(context.Background(), admin, 2, false))
		assert.True(t, trashed)
		assert.True(t, revoked)
	})

	t.Run("force delete purges", func(t *testing.T) {
		var purged bool
		users := &MockUserRepository{
			PurgeFunc: func(ctx context.Context, id int64) error {
				purged = true
				return nil
			},
		}
		svc := newTestUserService(users, nil)

		require.NoError(t, svc.Delete(context.Background(), admin, 2, true))
		assert.True(t, purged)
	})

	t.Run("admin self-delete is a validation error", func(t *testing.T) {
		svc := newTestUserService(nil, nil)
		err := svc.Delete(context.Background(), admin, admin.ID, false)
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("second delete surfaces not found", func(t *testing.T) {
		users := &MockUserRepository{
			TrashFunc: func(ctx context.Context, id int64) error {
				return models.ErrNotFound
			},
		}
		svc := newTestUserService(users, nil)
		assert.ErrorIs(t, svc.Delete(context.Background(), admin, 2, false), models.ErrNotFound)
	})

	t.Run("force delete of an active row is not found", func(t *testing.T) {
		users := &MockUserRepository{
			PurgeFunc: func(ctx context.Context, id int64) error {
				return models.ErrNotFound
			},
		}
		svc := newTestUserService(users, nil)
		assert.ErrorIs(t, svc.Delete(context.Background(), admin, 2, true), models.ErrNotFound)
	})
}

func TestUserServiceRestore(t *testing.T) {
	admin := &models.User{ID: 1, IsAdmin: true}

	t.Run("restores a trashed user", func(t *testing.T) {
		users := &MockUserRepository{
			RestoreFunc: func(ctx context.Context, id int64) error {
				return nil
			},
			GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
				return &models.User{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()}, nil
			},
		}
		svc := newTestUserService(users, nil)

		user, err := svc.Restore(context.Background(), admin, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(4), user.ID)
		assert.Nil(t, user.DeletedAt)
	})

	t.Run("restoring an active user is not found", func(t *testing.T) {
		users := &MockUserRepository{
			RestoreFunc: func(ctx context.Context, id int64) error {
				return models.ErrNotFound
			},
		}
		svc := newTestUserService(users, nil)
		_, err := svc.Restore(context.Background(), admin, 4)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
