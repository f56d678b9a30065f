package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/exzly/exzly/internal/models"
	"github.com/exzly/exzly/internal/repositories"
	pkgauth "github.com/exzly/exzly/pkg/auth"
	pkglogger "github.com/exzly/exzly/pkg/logger"
)

// UserService handles account management business logic
type UserService struct {
	users       UserRepository
	tokens      AuthTokenRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(users UserRepository, tokens AuthTokenRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		users:       users,
		tokens:      tokens,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CreateUserInput carries the admin-create fields.
type CreateUserInput struct {
	Email    string
	Username string
	Password string
	FullName string
	Gender   *string
	IsAdmin  bool
}

// UpdateProfileInput carries the self-service profile fields.
type UpdateProfileInput struct {
	FullName string
	Gender   *string
}

// UpdateCredentialsInput carries the identity fields. NewPassword is
// optional; empty means keep the current password.
type UpdateCredentialsInput struct {
	Email       string
	Username    string
	NewPassword string
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error) {
	users, total, filtered, err := s.users.List(ctx, params)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, 0, 0, models.ErrInternalServer
	}
	return users, total, filtered, nil
}

// Create is the admin-create path. Unlike sign-up it may set isAdmin.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))

	if err := checkIdentityUniqueness(ctx, s.users, s.logger, input.Email, input.Username, 0); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		IsAdmin:      input.IsAdmin,
		Gender:       input.Gender,
		FullName:     input.FullName,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewValidationError("email", "email or username is already in use")
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_created", user.ID, 0, nil)

	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (*models.User, error) {
	user, err := s.users.UpdateProfile(ctx, id, input.FullName, input.Gender)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update profile", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// UpdateCredentials changes email, username, and optionally password.
// Uniqueness checks exclude the target row so re-submitting unchanged
// values is not a conflict.
func (s *UserService) UpdateCredentials(ctx context.Context, id int64, input UpdateCredentialsInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))

	if err := checkIdentityUniqueness(ctx, s.users, s.logger, input.Email, input.Username, id); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateCredentials(ctx, id, input.Email, input.Username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewValidationError("email", "email or username is already in use")
		}
		s.logger.Error("failed to update credentials", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if input.NewPassword != "" {
		hash, err := pkgauth.HashPassword(input.NewPassword)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
			s.logger.Error("failed to update password", slog.Int64("user_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	return user, nil
}

func (s *UserService) UpdatePhoto(ctx context.Context, id int64, photo string) (*models.User, error) {
	user, err := s.users.UpdatePhoto(ctx, id, photo)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update photo", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// Delete trashes a user, or purges an already-trashed user when force
// is set. Admins cannot delete themselves. Trashing revokes every
// outstanding token so the account's credentials die with it.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id int64, force bool) error {
	if actor.IsAdmin && actor.ID == id {
		return models.NewValidationError("userId", "admins cannot delete their own account")
	}

	if force {
		if err := s.users.Purge(ctx, id); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrNotFound
			}
			s.logger.Error("failed to purge user", slog.Int64("user_id", id), slog.Any("error", err))
			return models.ErrInternalServer
		}
		s.auditLogger.LogAccountAction("user_purged", id, actor.ID, nil)
		return nil
	}

	if err := s.users.Trash(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to trash user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
		s.logger.Error("failed to revoke tokens for trashed user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_trashed", id, actor.ID, nil)
	return nil
}

// Restore brings a trashed user back to active.
func (s *UserService) Restore(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	if err := s.users.Restore(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to restore user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_restored", id, actor.ID, nil)

	return s.Get(ctx, id)
}

// checkIdentityUniqueness collects duplicate email and username
// violations into one validation error so the caller sees every
// conflict at once. excludeID skips the row being updated.
func checkIdentityUniqueness(ctx context.Context, users UserRepository, logger *slog.Logger, email, username string, excludeID int64) error {
	var verr models.ValidationError

	taken, err := users.EmailExists(ctx, email, excludeID)
	if err != nil {
		logger.Error("failed to check email uniqueness", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if taken {
		verr.Fields = append(verr.Fields, models.FieldError{Field: "email", Message: "email is already in use"})
	}

	taken, err = users.UsernameExists(ctx, username, excludeID)
	if err != nil {
		logger.Error("failed to check username uniqueness", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if taken {
		verr.Fields = append(verr.Fields, models.FieldError{Field: "username", Message: "username is already in use"})
	}

	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}
