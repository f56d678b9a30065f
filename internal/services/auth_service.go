package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/exzly/exzly/internal/auth"
	"github.com/exzly/exzly/internal/models"
	"github.com/exzly/exzly/internal/repositories"
	pkgauth "github.com/exzly/exzly/pkg/auth"
	pkglogger "github.com/exzly/exzly/pkg/logger"
	"github.com/exzly/exzly/pkg/strutil"
)

// UserRepository defines the persistence operations services need for users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIdentity(ctx context.Context, identity string) (*models.User, error)
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error)
	List(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error)
	UpdateProfile(ctx context.Context, id int64, fullName string, gender *string) (*models.User, error)
	UpdateCredentials(ctx context.Context, id int64, email, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdatePhoto(ctx context.Context, id int64, photo string) (*models.User, error)
	Trash(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	Purge(ctx context.Context, id int64) error
}

// AuthTokenRepository is the issued-token ledger as services consume it
type AuthTokenRepository interface {
	Create(ctx context.Context, userID int64, tokenType, token string) (*models.AuthToken, error)
	CreatePair(ctx context.Context, userID int64, accessToken, refreshToken string) error
	GetByToken(ctx context.Context, tokenType, token string) (*models.AuthToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// AuthVerifyRepository is the verification ledger as services consume it
type AuthVerifyRepository interface {
	Create(ctx context.Context, verify *models.AuthVerify) (*models.AuthVerify, error)
	GetByCode(ctx context.Context, code string) (*models.AuthVerify, error)
	GetBySHA1(ctx context.Context, sha1 string) (*models.AuthVerify, error)
	RedeemCode(ctx context.Context, id int64, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*models.AuthVerify, *models.User, error)
	RedeemToken(ctx context.Context, id int64) error
}

// AuthService handles sign-up, sign-in, token lifecycle, and the
// forgot-password flow
type AuthService struct {
	users       UserRepository
	tokens      AuthTokenRepository
	verifies    AuthVerifyRepository
	tm          *auth.TokenManager
	mailer      Mailer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	resetExpiry time.Duration
	verifyURL   string
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, tokens AuthTokenRepository, verifies AuthVerifyRepository, tm *auth.TokenManager, mailer Mailer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, resetExpiry time.Duration, verifyURL string) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		verifies:    verifies,
		tm:          tm,
		mailer:      mailer,
		logger:      logger,
		auditLogger: auditLogger,
		resetExpiry: resetExpiry,
		verifyURL:   verifyURL,
	}
}

// UserResponse represents a user in the HTTP response. Email is
// omitted when the viewer is not entitled to see it.
type UserResponse struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email,omitempty"`
	Username  string  `json:"username"`
	IsAdmin   bool    `json:"isAdmin"`
	Gender    *string `json:"gender"`
	FullName  string  `json:"fullName"`
	Photo     *string `json:"photo"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
	DeletedAt *string `json:"deletedAt,omitempty"`
}

// AuthResponse represents the response from sign-up and sign-in
type AuthResponse struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

// ForgotPasswordResponse echoes a masked destination so the caller
// knows where the code went without learning the full address.
type ForgotPasswordResponse struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// VerificationResponse carries the minted reset token.
type VerificationResponse struct {
	Purpose string `json:"purpose"`
	Token   string `json:"token"`
}

// SignUpInput carries the already format-validated sign-up fields.
type SignUpInput struct {
	Email    string
	Username string
	Password string
	FullName string
	Gender   *string
	IsAdmin  bool
}

// SignUp creates a user and issues a ledgered token pair. Duplicate
// email and username are both reported in one validation error.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*AuthResponse, error) {
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

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", slog.Int64("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "sign_up",
		UserID:    user.ID,
		Success:   true,
	})

	return &AuthResponse{
		User:         UserToResponse(user, true),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// SignIn authenticates an email-or-username identity. Unknown identity
// and wrong password are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, identity, password string) (*AuthResponse, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("sign-in failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "sign_in",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to resolve sign-in identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("sign-in failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "sign_in",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", slog.Int64("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "sign_in",
		UserID:    user.ID,
		Success:   true,
	})

	return &AuthResponse{
		User:         UserToResponse(user, true),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// SignOut revokes the presented access and refresh tokens. The refresh
// token must be a live ledger entry belonging to the same user as the
// bearer access token.
func (s *AuthService) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil || claims.Type != models.TokenTypeAccess {
		return models.ErrUnauthorized
	}

	refreshRow, err := s.tokens.GetByToken(ctx, models.TokenTypeRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewValidationError("refreshToken", "invalid refresh token")
		}
		s.logger.Error("failed to look up refresh token", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if refreshRow.IsRevoked {
		return models.NewValidationError("refreshToken", "invalid refresh token")
	}
	if refreshRow.UserID != claims.UserID {
		return models.NewValidationError("refreshToken", "refresh token does not belong to this user")
	}

	if err := s.tokens.Revoke(ctx, accessToken); err != nil {
		s.logger.Error("failed to revoke access token", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.logger.Error("failed to revoke refresh token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user signed out", slog.Int64("user_id", claims.UserID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "sign_out",
		UserID:    claims.UserID,
		Success:   true,
	})

	return nil
}

// Refresh issues one new ledgered access token against a live refresh
// token. The ledger row is the authority; the token payload is decoded
// without signature verification only to read the subject.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	refreshRow, err := s.tokens.GetByToken(ctx, models.TokenTypeRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.NewValidationError("refreshToken", "invalid refresh token")
		}
		s.logger.Error("failed to look up refresh token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	if refreshRow.IsRevoked {
		return "", models.NewValidationError("refreshToken", "invalid refresh token")
	}

	claims, err := s.tm.DecodeToken(refreshToken)
	if err != nil {
		return "", models.NewValidationError("refreshToken", "invalid refresh token")
	}

	// A vanished or trashed subject reads the same as a bad token, so
	// the response does not leak account state.
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || user.Lifecycle() != models.LifecycleActive {
		return "", models.NewValidationError("refreshToken", "invalid refresh token")
	}

	accessToken, err := s.tm.CreateUserToken(models.TokenTypeAccess, user.ID)
	if err != nil {
		s.logger.Error("failed to create access token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	if _, err := s.tokens.Create(ctx, user.ID, models.TokenTypeAccess, accessToken); err != nil {
		s.logger.Error("failed to ledger access token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("access token refreshed", slog.Int64("user_id", user.ID))

	return accessToken, nil
}

// ForgotPassword begins the reset flow: generate a code, persist the
// verification row, and email the code. Returns the masked address.
func (s *AuthService) ForgotPassword(ctx context.Context, identity string) (*ForgotPasswordResponse, error) {
	user, err := s.users.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to resolve forgot-password identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	code, err := pkgauth.GenerateVerificationCode()
	if err != nil {
		s.logger.Error("failed to generate verification code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	verify := &models.AuthVerify{
		UserID:    user.ID,
		Code:      code,
		SHA1:      pkgauth.HashCode(code),
		Purpose:   models.PurposePasswordReset,
		ExpiresAt: time.Now().Add(s.resetExpiry),
	}
	if _, err := s.verifies.Create(ctx, verify); err != nil {
		s.logger.Error("failed to create verification row", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.mailer.Send(ctx, user.Email, "Reset your password", "reset-password", map[string]any{
		"Code":             code,
		"Link":             fmt.Sprintf("%s?token=%s", s.verifyURL, verify.SHA1),
		"ExpiresInMinutes": int(s.resetExpiry.Minutes()),
	}); err != nil {
		s.logger.Error("failed to send reset email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("reset code sent",
		slog.Int64("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	s.auditLogger.LogPasswordReset("code_sent", user.ID, true)

	return &ForgotPasswordResponse{
		Email:   strutil.MaskEmail(user.Email),
		IsAdmin: user.IsAdmin,
	}, nil
}

// Verification redeems a code and mints the single-use reset token.
// The code flag, token, and fresh expiry move in one conditional
// update so concurrent redemptions cannot both succeed.
func (s *AuthService) Verification(ctx context.Context, code string) (*VerificationResponse, error) {
	verify, err := s.verifies.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError("code", "invalid verification code")
		}
		s.logger.Error("failed to look up verification code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if verify.CodeIsUsed {
		return nil, models.NewValidationError("code", "verification code has already been used")
	}
	if verify.Expired(time.Now()) {
		return nil, models.NewValidationError("code", "verification code has expired")
	}
	if verify.Purpose != models.PurposePasswordReset {
		return nil, models.NewValidationError("code", "invalid verification code")
	}

	token, err := s.tm.CreatePasswordResetToken(code)
	if err != nil {
		s.logger.Error("failed to create reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	err = s.verifies.RedeemCode(ctx, verify.ID, token, time.Now().Add(s.resetExpiry))
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, models.NewValidationError("code", "verification code has already been used")
		}
		s.logger.Error("failed to redeem verification code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogPasswordReset("code_redeemed", verify.UserID, true)

	return &VerificationResponse{
		Purpose: verify.Purpose,
		Token:   token,
	}, nil
}

// VerifyByHash redeems the emailed click-through link. The hash is the
// correlation key sent alongside the code; redemption shares the same
// atomic conditional update, so a link and a typed code cannot both
// win on the same row.
func (s *AuthService) VerifyByHash(ctx context.Context, hash string) (*VerificationResponse, error) {
	verify, err := s.verifies.GetBySHA1(ctx, hash)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError("token", "the requested link has expired")
		}
		s.logger.Error("failed to look up verification link", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if verify.CodeIsUsed || verify.TokenIsUsed {
		return nil, models.NewValidationError("token", "the requested link has already been used")
	}
	if verify.Expired(time.Now()) {
		return nil, models.NewValidationError("token", "the requested link has expired")
	}
	if verify.Purpose != models.PurposePasswordReset {
		return nil, models.NewValidationError("token", "the requested link has expired")
	}

	token, err := s.tm.CreatePasswordResetToken(verify.Code)
	if err != nil {
		s.logger.Error("failed to create reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	err = s.verifies.RedeemCode(ctx, verify.ID, token, time.Now().Add(s.resetExpiry))
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, models.NewValidationError("token", "the requested link has already been used")
		}
		s.logger.Error("failed to redeem verification link", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogPasswordReset("link_redeemed", verify.UserID, true)

	return &VerificationResponse{
		Purpose: verify.Purpose,
		Token:   token,
	}, nil
}

// ResetPassword redeems the reset token and overwrites the password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	verify, user, err := s.verifies.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewValidationError("token", "invalid reset token")
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if verify.TokenIsUsed {
		return models.NewValidationError("token", "reset token has already been used")
	}
	if verify.Expired(time.Now()) {
		return models.NewValidationError("token", "reset token has expired")
	}

	if err := s.verifies.RedeemToken(ctx, verify.ID); err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return models.NewValidationError("token", "reset token has already been used")
		}
		s.logger.Error("failed to redeem reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset", slog.Int64("user_id", user.ID))
	s.auditLogger.LogPasswordReset("password_reset", user.ID, true)

	return nil
}

// issueTokenPair signs and ledgers an access and refresh token.
func (s *AuthService) issueTokenPair(ctx context.Context, userID int64) (string, string, error) {
	accessToken, err := s.tm.CreateUserToken(models.TokenTypeAccess, userID)
	if err != nil {
		s.logger.Error("failed to create access token", slog.Int64("user_id", userID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}
	refreshToken, err := s.tm.CreateUserToken(models.TokenTypeRefresh, userID)
	if err != nil {
		s.logger.Error("failed to create refresh token", slog.Int64("user_id", userID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}

	if err := s.tokens.CreatePair(ctx, userID, accessToken, refreshToken); err != nil {
		s.logger.Error("failed to ledger token pair", slog.Int64("user_id", userID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}

	return accessToken, refreshToken, nil
}

// UserToResponse converts a user model to its response DTO. Email is
// included only when the viewer is entitled to it.
func UserToResponse(user *models.User, includeEmail bool) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		Gender:    user.Gender,
		FullName:  user.FullName,
		Photo:     user.Photo,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
	if includeEmail {
		resp.Email = user.Email
	}
	if user.DeletedAt != nil {
		deletedAt := user.DeletedAt.Format(time.RFC3339)
		resp.DeletedAt = &deletedAt
	}
	return resp
}
