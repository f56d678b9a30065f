package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/exzly/exzly/internal/auth"
	"github.com/exzly/exzly/internal/models"
	"github.com/exzly/exzly/internal/repositories"
	"github.com/exzly/exzly/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// testResetTTL is the reset-window TTL handed to handlers under test.
const testResetTTL = 10 * time.Minute

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignUpFunc         func(ctx context.Context, input services.SignUpInput) (*services.AuthResponse, error)
	SignInFunc         func(ctx context.Context, identity, password string) (*services.AuthResponse, error)
	SignOutFunc        func(ctx context.Context, accessToken, refreshToken string) error
	RefreshFunc        func(ctx context.Context, refreshToken string) (string, error)
	ForgotPasswordFunc func(ctx context.Context, identity string) (*services.ForgotPasswordResponse, error)
	VerificationFunc   func(ctx context.Context, code string) (*services.VerificationResponse, error)
	VerifyByHashFunc   func(ctx context.Context, hash string) (*services.VerificationResponse, error)
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
}

func (m *MockAuthService) SignUp(ctx context.Context, input services.SignUpInput) (*services.AuthResponse, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) SignIn(ctx context.Context, identity, password string) (*services.AuthResponse, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, identity, password)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken, refreshToken)
	}
	return nil
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return "", models.ErrInternalServer
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, identity string) (*services.ForgotPasswordResponse, error) {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, identity)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthService) Verification(ctx context.Context, code string) (*services.VerificationResponse, error) {
	if m.VerificationFunc != nil {
		return m.VerificationFunc(ctx, code)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) VerifyByHash(ctx context.Context, hash string) (*services.VerificationResponse, error) {
	if m.VerifyByHashFunc != nil {
		return m.VerifyByHashFunc(ctx, hash)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return nil
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetFunc               func(ctx context.Context, id int64) (*models.User, error)
	ListFunc              func(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error)
	CreateFunc            func(ctx context.Context, input services.CreateUserInput) (*models.User, error)
	UpdateProfileFunc     func(ctx context.Context, id int64, input services.UpdateProfileInput) (*models.User, error)
	UpdateCredentialsFunc func(ctx context.Context, id int64, input services.UpdateCredentialsInput) (*models.User, error)
	UpdatePhotoFunc       func(ctx context.Context, id int64, photo string) (*models.User, error)
	DeleteFunc            func(ctx context.Context, actor *models.User, id int64, force bool) error
	RestoreFunc           func(ctx context.Context, actor *models.User, id int64) (*models.User, error)
}

func (m *MockUserService) Get(ctx context.Context, id int64) (*models.User, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) List(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, params)
	}
	return []*models.User{}, 0, 0, nil
}

func (m *MockUserService) Create(ctx context.Context, input services.CreateUserInput) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id int64, input services.UpdateProfileInput) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) UpdateCredentials(ctx context.Context, id int64, input services.UpdateCredentialsInput) (*models.User, error) {
	if m.UpdateCredentialsFunc != nil {
		return m.UpdateCredentialsFunc(ctx, id, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) UpdatePhoto(ctx context.Context, id int64, photo string) (*models.User, error) {
	if m.UpdatePhotoFunc != nil {
		return m.UpdatePhotoFunc(ctx, id, photo)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) Delete(ctx context.Context, actor *models.User, id int64, force bool) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, actor, id, force)
	}
	return nil
}

func (m *MockUserService) Restore(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, actor, id)
	}
	return nil, models.ErrNotFound
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessionStore(t *testing.T) *auth.SessionStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return auth.NewSessionStore(client, time.Hour, "exzly.sid")
}

// withActor injects a resolved user into the request context the way
// the identity middleware would.
func withActor(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), auth.UserContextKey, user))
}

// withUserIDParam attaches a chi route context carrying the {userId}
// parameter so handlers can be tested without a router.
func withUserIDParam(r *http.Request, userID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("userId", userID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
