package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitByIP(t *testing.T) {
	t.Run("allows requests under the limit", func(t *testing.T) {
		handler := LimitByIP(3, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", nil)
			req.RemoteAddr = "203.0.113.1:55000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}
	})

	t.Run("rejects requests over the limit with a retry hint", func(t *testing.T) {
		handler := LimitByIP(1, 5*time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", nil)
		req.RemoteAddr = "203.0.113.2:55000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", nil)
		req.RemoteAddr = "203.0.113.2:55000"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Too many requests. Please try again after 5 minutes"}`, rec.Body.String())
	})

	t.Run("buckets are per client IP", func(t *testing.T) {
		handler := LimitByIP(1, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		first := httptest.NewRequest(http.MethodPost, "/api/auth/sign-up", nil)
		first.RemoteAddr = "203.0.113.3:55000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		require.Equal(t, http.StatusOK, rec.Code)

		other := httptest.NewRequest(http.MethodPost, "/api/auth/sign-up", nil)
		other.RemoteAddr = "203.0.113.4:55000"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, other)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("honors forwarded IP from a trusted proxy", func(t *testing.T) {
		handler := LimitByIP(1, time.Minute, []string{"10.0.0.0/8"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i, client := range []string{"203.0.113.10", "203.0.113.11"} {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", nil)
			req.RemoteAddr = "10.0.0.1:44000"
			req.Header.Set("X-Forwarded-For", client)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "client %d", i+1)
		}
	})

	t.Run("ignores forwarded IP from an untrusted source", func(t *testing.T) {
		handler := LimitByIP(1, time.Minute, []string{"10.0.0.0/8"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i, spoofed := range []string{"203.0.113.20", "203.0.113.21"} {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", nil)
			req.RemoteAddr = "198.51.100.9:44000"
			req.Header.Set("X-Forwarded-For", spoofed)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if i == 0 {
				require.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			}
		}
	})
}
