package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	run := func(env string, forwardedProto string) *httptest.ResponseRecorder {
		handler := SecurityHeaders(SecurityHeadersConfig{Env: env})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if forwardedProto != "" {
			req.Header.Set("X-Forwarded-Proto", forwardedProto)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("baseline headers are always set", func(t *testing.T) {
		rec := run("development", "")

		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
		assert.Equal(t, "same-origin", rec.Header().Get("Cross-Origin-Opener-Policy"))
		assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	})

	t.Run("HSTS only on forwarded HTTPS in production", func(t *testing.T) {
		rec := run("production", "https")
		assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")

		rec = run("production", "")
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

		rec = run("development", "https")
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("CSP tightens in production", func(t *testing.T) {
		prod := run("production", "").Header().Get("Content-Security-Policy")
		dev := run("development", "").Header().Get("Content-Security-Policy")

		assert.Contains(t, prod, "frame-ancestors 'none'")
		assert.NotContains(t, prod, "unsafe-eval")
		assert.Contains(t, dev, "unsafe-eval")
	})
}
