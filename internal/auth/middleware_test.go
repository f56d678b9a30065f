package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/exzly/exzly/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserLoader struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.User, error)
}

func (m *mockUserLoader) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

type mockTokenLedger struct {
	IsActiveFunc func(ctx context.Context, tokenType, token string) (bool, error)
}

func (m *mockTokenLedger) IsActive(ctx context.Context, tokenType, token string) (bool, error) {
	return m.IsActiveFunc(ctx, tokenType, token)
}

func activeUser(id int64) *models.User {
	return &models.User{ID: id, Email: "user@exzly.dev", Username: "user"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIdentity(t *testing.T, users UserLoader, ledger TokenLedger, whitelist []string) (*Identity, *TokenManager, *SessionStore) {
	t.Helper()

	tm := newTestTokenManager()
	store, _ := newTestSessionStore(t)
	return NewIdentity(tm, store, users, ledger, testLogger(), whitelist), tm, store
}

// captureActor returns a handler that records the resolved actor.
func captureActor(actor **models.User, token *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*actor = GetUserFromContext(r)
		if token != nil {
			*token = GetBearerTokenFromContext(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityBearer(t *testing.T) {
	users := &mockUserLoader{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return activeUser(id), nil
		},
	}
	ledger := &mockTokenLedger{
		IsActiveFunc: func(ctx context.Context, tokenType, token string) (bool, error) {
			return true, nil
		},
	}

	t.Run("valid access token resolves actor", func(t *testing.T) {
		identity, tm, _ := newTestIdentity(t, users, ledger, nil)

		tokenString, err := tm.CreateUserToken(models.TokenTypeAccess, 42)
		require.NoError(t, err)

		var actor *models.User
		var raw string
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(&actor, &raw)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, actor)
		assert.Equal(t, int64(42), actor.ID)
		assert.Equal(t, tokenString, raw)
	})

	t.Run("refresh token rejected as bearer", func(t *testing.T) {
		identity, tm, _ := newTestIdentity(t, users, ledger, nil)

		tokenString, err := tm.CreateUserToken(models.TokenTypeRefresh, 42)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		var actor *models.User
		identity.Middleware(captureActor(&actor, nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		revoked := &mockTokenLedger{
			IsActiveFunc: func(ctx context.Context, tokenType, token string) (bool, error) {
				return false, nil
			},
		}
		identity, tm, _ := newTestIdentity(t, users, revoked, nil)

		tokenString, err := tm.CreateUserToken(models.TokenTypeAccess, 42)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(new(*models.User), nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		identity, _, _ := newTestIdentity(t, users, ledger, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(new(*models.User), nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("trashed user rejected", func(t *testing.T) {
		trashed := &mockUserLoader{
			GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
				now := time.Now()
				u := activeUser(id)
				u.DeletedAt = &now
				return u, nil
			},
		}
		identity, tm, _ := newTestIdentity(t, trashed, ledger, nil)

		tokenString, err := tm.CreateUserToken(models.TokenTypeAccess, 42)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(new(*models.User), nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token swallowed on whitelisted path", func(t *testing.T) {
		identity, _, _ := newTestIdentity(t, users, ledger, []string{"/api/auth/sign-in"})

		var actor *models.User
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", nil)
		req.Header.Set("Authorization", "Bearer expired-garbage")
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(&actor, nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, actor)
	})
}

func TestIdentitySession(t *testing.T) {
	users := &mockUserLoader{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return activeUser(id), nil
		},
	}
	ledger := &mockTokenLedger{
		IsActiveFunc: func(ctx context.Context, tokenType, token string) (bool, error) {
			return true, nil
		},
	}

	t.Run("valid session cookie resolves actor", func(t *testing.T) {
		identity, _, store := newTestIdentity(t, users, ledger, nil)

		id, err := store.Create(context.Background(), &Session{UserID: 7})
		require.NoError(t, err)

		var actor *models.User
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "exzly.sid", Value: id})
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(&actor, nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, actor)
		assert.Equal(t, int64(7), actor.ID)
	})

	t.Run("reset-password session is not an identity", func(t *testing.T) {
		identity, _, store := newTestIdentity(t, users, ledger, nil)

		id, err := store.Create(context.Background(), &Session{ResetPassword: true})
		require.NoError(t, err)

		var actor *models.User
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "exzly.sid", Value: id})
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(&actor, nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, actor)
	})

	t.Run("stale session destroyed", func(t *testing.T) {
		gone := &mockUserLoader{
			GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
				return nil, models.ErrNotFound
			},
		}
		identity, _, store := newTestIdentity(t, gone, ledger, nil)

		id, err := store.Create(context.Background(), &Session{UserID: 99})
		require.NoError(t, err)

		var actor *models.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "exzly.sid", Value: id})
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(&actor, nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, actor)

		_, err = store.Get(context.Background(), id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("no credentials proceeds anonymous", func(t *testing.T) {
		identity, _, _ := newTestIdentity(t, users, ledger, nil)

		var actor *models.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		identity.Middleware(captureActor(&actor, nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, actor)
	})
}

func TestGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withActor := func(r *http.Request, user *models.User) *http.Request {
		return r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
	}

	t.Run("RequireAuthenticated rejects anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAuthenticated(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RequireAuthenticated passes actor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withActor(httptest.NewRequest(http.MethodGet, "/", nil), activeUser(1))
		RequireAuthenticated(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RequireAdmin rejects non-admin with 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withActor(httptest.NewRequest(http.MethodGet, "/", nil), activeUser(1))
		RequireAdmin(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("RequireAdmin rejects anonymous with 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RequireAdmin passes admin", func(t *testing.T) {
		admin := activeUser(1)
		admin.IsAdmin = true
		rec := httptest.NewRecorder()
		req := withActor(httptest.NewRequest(http.MethodGet, "/", nil), admin)
		RequireAdmin(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RequireAdminOrRedirect sends non-admins home", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withActor(httptest.NewRequest(http.MethodGet, "/admin/users", nil), activeUser(1))
		RequireAdminOrRedirect("/admin/sign-in", "/")(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("RequireAdminOrRedirect sends anonymous to sign-in", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		RequireAdminOrRedirect("/admin/sign-in", "/")(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/admin/sign-in", rec.Header().Get("Location"))
	})
}
