package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewSessionStore(client, time.Hour, "exzly.sid"), mr
}

func TestSessionStoreCreateGet(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, &Session{UserID: 42})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	session, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), session.UserID)
	assert.False(t, session.ResetPassword)
	assert.False(t, session.CreatedAt.IsZero())
}

func TestSessionStoreGetUnknown(t *testing.T) {
	store, _ := newTestSessionStore(t)

	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreExpiry(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, &Session{UserID: 1})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreUpdate(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, &Session{ResetPassword: true})
	require.NoError(t, err)

	err = store.Update(ctx, id, &Session{UserID: 7})
	require.NoError(t, err)

	session, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), session.UserID)
	assert.False(t, session.ResetPassword)
}

func TestSessionStoreDestroy(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, &Session{UserID: 3})
	require.NoError(t, err)

	require.NoError(t, store.Destroy(ctx, id))

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// destroying again is a no-op
	require.NoError(t, store.Destroy(ctx, id))
}

func TestSessionCookies(t *testing.T) {
	store, _ := newTestSessionStore(t)

	rec := httptest.NewRecorder()
	store.SetCookie(rec, "abc123")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "exzly.sid", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	id, ok := store.ReadCookie(req)
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	rec = httptest.NewRecorder()
	store.ClearCookie(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)

	_, ok = store.ReadCookie(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}
