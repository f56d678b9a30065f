package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/exzly/exzly/internal/models"
	pkghttp "github.com/exzly/exzly/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the resolved actor in context
	UserContextKey contextKey = "user"
	// BearerTokenContextKey is the key for the raw bearer token string
	BearerTokenContextKey contextKey = "bearerToken"
)

// UserLoader fetches the full user record for a resolved identity.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// TokenLedger answers whether a bearer token is still honored, i.e. it
// was issued by us and has not been revoked.
type TokenLedger interface {
	IsActive(ctx context.Context, tokenType, token string) (bool, error)
}

// Identity resolves the acting user for each request. Bearer tokens
// win over session cookies; a request with neither proceeds anonymous
// and the route guards decide whether that is acceptable.
type Identity struct {
	tokens   *TokenManager
	sessions *SessionStore
	users    UserLoader
	ledger   TokenLedger
	logger   *slog.Logger

	// whitelist holds exact request paths where a failed bearer check
	// is swallowed instead of ending the request. The auth endpoints
	// themselves live here so a client with an expired access token
	// can still refresh or sign in.
	whitelist map[string]struct{}
}

// NewIdentity creates a new Identity middleware
func NewIdentity(tokens *TokenManager, sessions *SessionStore, users UserLoader, ledger TokenLedger, logger *slog.Logger, whitelist []string) *Identity {
	wl := make(map[string]struct{}, len(whitelist))
	for _, path := range whitelist {
		wl[path] = struct{}{}
	}
	return &Identity{
		tokens:    tokens,
		sessions:  sessions,
		users:     users,
		ledger:    ledger,
		logger:    logger,
		whitelist: wl,
	}
}

// Middleware resolves the actor and injects it into the request
// context. It never rejects anonymous requests; it only rejects
// requests that present bad credentials on non-whitelisted paths.
func (i *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			user, token, err := i.resolveBearer(r.Context(), authHeader)
			if err != nil {
				if _, ok := i.whitelist[r.URL.Path]; ok {
					next.ServeHTTP(w, r)
					return
				}
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			ctx = context.WithValue(ctx, BearerTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if user, ok := i.resolveSession(w, r); ok {
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveBearer validates the Authorization header end to end: scheme,
// signature, token type, ledger membership, and a live user record.
func (i *Identity) resolveBearer(ctx context.Context, authHeader string) (*models.User, string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "", models.ErrUnauthorized
	}
	tokenString := parts[1]

	claims, err := i.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, "", models.ErrUnauthorized
	}

	// Refresh tokens are only accepted by the refresh endpoint, and
	// that endpoint reads them from the request body.
	if claims.Type != models.TokenTypeAccess {
		return nil, "", models.ErrUnauthorized
	}

	active, err := i.ledger.IsActive(ctx, models.TokenTypeAccess, tokenString)
	if err != nil {
		i.logger.Error("token ledger lookup failed", slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}
	if !active {
		return nil, "", models.ErrUnauthorized
	}

	user, err := i.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, "", models.ErrUnauthorized
	}
	if user.Lifecycle() != models.LifecycleActive {
		return nil, "", models.ErrUnauthorized
	}

	return user, tokenString, nil
}

// resolveSession tries the session cookie. A stale session, one whose
// user no longer exists, is destroyed on the spot so the browser stops
// presenting it.
func (i *Identity) resolveSession(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, ok := i.sessions.ReadCookie(r)
	if !ok {
		return nil, false
	}

	session, err := i.sessions.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			i.logger.Error("session lookup failed", slog.Any("error", err))
		}
		i.sessions.ClearCookie(w)
		return nil, false
	}

	if session.UserID == 0 {
		return nil, false
	}

	user, err := i.users.GetByID(r.Context(), session.UserID)
	if err != nil || user.Lifecycle() != models.LifecycleActive {
		if err := i.sessions.Destroy(r.Context(), id); err != nil {
			i.logger.Error("failed to destroy stale session", slog.Any("error", err))
		}
		i.sessions.ClearCookie(w)
		return nil, false
	}

	return user, true
}

// GetUserFromContext extracts the resolved actor from request context.
// Returns nil for anonymous requests.
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetBearerTokenFromContext returns the raw bearer token the actor
// authenticated with, if any.
func GetBearerTokenFromContext(r *http.Request) string {
	token, ok := r.Context().Value(BearerTokenContextKey).(string)
	if !ok {
		return ""
	}
	return token
}
