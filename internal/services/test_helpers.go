package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/exzly/exzly/internal/auth"
	"github.com/exzly/exzly/internal/models"
	"github.com/exzly/exzly/internal/repositories"
	pkglogger "github.com/exzly/exzly/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	GetByIDFunc           func(ctx context.Context, id int64) (*models.User, error)
	GetByIdentityFunc     func(ctx context.Context, identity string) (*models.User, error)
	EmailExistsFunc       func(ctx context.Context, email string, excludeID int64) (bool, error)
	UsernameExistsFunc    func(ctx context.Context, username string, excludeID int64) (bool, error)
	ListFunc              func(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error)
	UpdateProfileFunc     func(ctx context.Context, id int64, fullName string, gender *string) (*models.User, error)
	UpdateCredentialsFunc func(ctx context.Context, id int64, email, username string) (*models.User, error)
	UpdatePasswordFunc    func(ctx context.Context, id int64, passwordHash string) error
	UpdatePhotoFunc       func(ctx context.Context, id int64, photo string) (*models.User, error)
	TrashFunc             func(ctx context.Context, id int64) error
	RestoreFunc           func(ctx context.Context, id int64) error
	PurgeFunc             func(ctx context.Context, id int64) error
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByIdentity(ctx context.Context, identity string) (*models.User, error) {
	if m.GetByIdentityFunc != nil {
		return m.GetByIdentityFunc(ctx, identity)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	if m.EmailExistsFunc != nil {
		return m.EmailExistsFunc(ctx, email, excludeID)
	}
	return false, nil
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	if m.UsernameExistsFunc != nil {
		return m.UsernameExistsFunc(ctx, username, excludeID)
	}
	return false, nil
}

func (m *MockUserRepository) List(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, params)
	}
	return []*models.User{}, 0, 0, nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id int64, fullName string, gender *string) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, fullName, gender)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateCredentials(ctx context.Context, id int64, email, username string) (*models.User, error) {
	if m.UpdateCredentialsFunc != nil {
		return m.UpdateCredentialsFunc(ctx, id, email, username)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) UpdatePhoto(ctx context.Context, id int64, photo string) (*models.User, error) {
	if m.UpdatePhotoFunc != nil {
		return m.UpdatePhotoFunc(ctx, id, photo)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Trash(ctx context.Context, id int64) error {
	if m.TrashFunc != nil {
		return m.TrashFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) Restore(ctx context.Context, id int64) error {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) Purge(ctx context.Context, id int64) error {
	if m.PurgeFunc != nil {
		return m.PurgeFunc(ctx, id)
	}
	return nil
}

// MockAuthTokenRepository implements AuthTokenRepository for testing
type MockAuthTokenRepository struct {
	CreateFunc           func(ctx context.Context, userID int64, tokenType, token string) (*models.AuthToken, error)
	CreatePairFunc       func(ctx context.Context, userID int64, accessToken, refreshToken string) error
	GetByTokenFunc       func(ctx context.Context, tokenType, token string) (*models.AuthToken, error)
	RevokeFunc           func(ctx context.Context, token string) error
	RevokeAllForUserFunc func(ctx context.Context, userID int64) error
}

func (m *MockAuthTokenRepository) Create(ctx context.Context, userID int64, tokenType, token string) (*models.AuthToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, tokenType, token)
	}
	return &models.AuthToken{ID: 1, UserID: userID, Type: tokenType, Token: token, CreatedAt: time.Now()}, nil
}

func (m *MockAuthTokenRepository) CreatePair(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	if m.CreatePairFunc != nil {
		return m.CreatePairFunc(ctx, userID, accessToken, refreshToken)
	}
	return nil
}

func (m *MockAuthTokenRepository) GetByToken(ctx context.Context, tokenType, token string) (*models.AuthToken, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, tokenType, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthTokenRepository) Revoke(ctx context.Context, token string) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, token)
	}
	return nil
}

func (m *MockAuthTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	if m.RevokeAllForUserFunc != nil {
		return m.RevokeAllForUserFunc(ctx, userID)
	}
	return nil
}

// MockAuthVerifyRepository implements AuthVerifyRepository for testing
type MockAuthVerifyRepository struct {
	CreateFunc      func(ctx context.Context, verify *models.AuthVerify) (*models.AuthVerify, error)
	GetByCodeFunc   func(ctx context.Context, code string) (*models.AuthVerify, error)
	GetBySHA1Func   func(ctx context.Context, sha1 string) (*models.AuthVerify, error)
	RedeemCodeFunc  func(ctx context.Context, id int64, token string, expiresAt time.Time) error
	GetByTokenFunc  func(ctx context.Context, token string) (*models.AuthVerify, *models.User, error)
	RedeemTokenFunc func(ctx context.Context, id int64) error
}

func (m *MockAuthVerifyRepository) Create(ctx context.Context, verify *models.AuthVerify) (*models.AuthVerify, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, verify)
	}
	created := *verify
	created.ID = 1
	created.CreatedAt = time.Now()
	return &created, nil
}

func (m *MockAuthVerifyRepository) GetByCode(ctx context.Context, code string) (*models.AuthVerify, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthVerifyRepository) GetBySHA1(ctx context.Context, sha1 string) (*models.AuthVerify, error) {
	if m.GetBySHA1Func != nil {
		return m.GetBySHA1Func(ctx, sha1)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthVerifyRepository) RedeemCode(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	if m.RedeemCodeFunc != nil {
		return m.RedeemCodeFunc(ctx, id, token, expiresAt)
	}
	return nil
}

func (m *MockAuthVerifyRepository) GetByToken(ctx context.Context, token string) (*models.AuthVerify, *models.User, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, nil, models.ErrNotFound
}

func (m *MockAuthVerifyRepository) RedeemToken(ctx context.Context, id int64) error {
	if m.RedeemTokenFunc != nil {
		return m.RedeemTokenFunc(ctx, id)
	}
	return nil
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendFunc func(ctx context.Context, to, subject, templateName string, data map[string]any) error
	Sent     []MockSentEmail
}

type MockSentEmail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

func (m *MockMailer) Send(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	m.Sent = append(m.Sent, MockSentEmail{To: to, Subject: subject, Template: templateName, Data: data})
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, templateName, data)
	}
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-key-for-services", 15*time.Minute, 7*24*time.Hour, 10*time.Minute)
}
