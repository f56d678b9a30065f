package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

const sessionTokenBytes = 32

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side state referenced by the session cookie.
// UserID marks a signed-in browser session; ResetPassword marks a
// browser that has redeemed a verification code and may proceed to the
// reset form.
type Session struct {
	UserID        int64     `json:"userId,omitempty"`
	ResetPassword bool      `json:"resetPassword,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SessionStore keeps sessions in Redis keyed by a random id. The
// cookie carries only the id; expiry is enforced by the key TTL.
type SessionStore struct {
	redis      *redis.Client
	ttl        time.Duration
	cookieName string
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(client *redis.Client, ttl time.Duration, cookieName string) *SessionStore {
	return &SessionStore{
		redis:      client,
		ttl:        ttl,
		cookieName: cookieName,
	}
}

// Create stores a new session and returns its id.
func (s *SessionStore) Create(ctx context.Context, session *Session) (string, error) {
	return s.CreateWithTTL(ctx, session, s.ttl)
}

// CreateWithTTL stores a new session that expires after ttl instead of
// the store default. Reset-only sessions are scoped to the shorter
// password-reset window this way.
func (s *SessionStore) CreateWithTTL(ctx context.Context, session *Session, ttl time.Duration) (string, error) {
	id, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+id, data, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return id, nil
}

// Get looks up a session by id. Returns ErrSessionNotFound for unknown
// or expired ids.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Update overwrites an existing session's state, resetting its TTL.
func (s *SessionStore) Update(ctx context.Context, id string, session *Session) error {
	return s.UpdateWithTTL(ctx, id, session, s.ttl)
}

// UpdateWithTTL overwrites a session and rescopes its expiry to ttl.
func (s *SessionStore) UpdateWithTTL(ctx context.Context, id string, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Destroy removes a session. Destroying an unknown id is not an error.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SetCookie writes the session cookie on the response.
func (s *SessionStore) SetCookie(w http.ResponseWriter, id string) {
	s.SetCookieWithTTL(w, id, s.ttl)
}

// SetCookieWithTTL writes the session cookie with a max age of ttl, so
// the cookie lifetime matches a rescoped session.
func (s *SessionStore) SetCookieWithTTL(w http.ResponseWriter, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the response.
func (s *SessionStore) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie extracts the session id from the request, if present.
func (s *SessionStore) ReadCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func generateSessionID() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
