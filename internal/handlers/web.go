package handlers

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/exzly/exzly/internal/auth"
)

// WebHandler serves the navigation endpoints of the browser surfaces.
// Page rendering is delegated to the frontend; these endpoints only
// manage the session and emit plain placeholders.
type WebHandler struct {
	sessions *auth.SessionStore
	logger   *slog.Logger
	home     string
}

// NewWebHandler creates a new WebHandler. home is the public surface
// prefix that sign-out redirects to.
func NewWebHandler(sessions *auth.SessionStore, logger *slog.Logger, home string) *WebHandler {
	return &WebHandler{
		sessions: sessions,
		logger:   logger,
		home:     home,
	}
}

// Home serves the public landing page.
func (h *WebHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html><title>exzly</title><h1>exzly</h1>")
}

// SignOut destroys the browser session and returns to the public
// surface. Bearer tokens are untouched; API clients revoke those
// through the API sign-out endpoint.
func (h *WebHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.sessions.ReadCookie(r); ok {
		if err := h.sessions.Destroy(r.Context(), id); err != nil {
			h.logger.Warn("failed to destroy session", slog.Any("error", err))
		}
		h.sessions.ClearCookie(w)
	}
	http.Redirect(w, r, h.home, http.StatusFound)
}

// ResetPasswordPage serves the reset form placeholder. Only a browser
// holding a session that redeemed a verification code may view it;
// anyone else gets a plain 404, as if the page did not exist.
func (h *WebHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.ReadCookie(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	session, err := h.sessions.Get(r.Context(), id)
	if err != nil || !session.ResetPassword {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html><title>exzly</title><h1>Reset password</h1>")
}

// AdminSignIn serves the admin sign-in page placeholder.
func (h *WebHandler) AdminSignIn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html><title>exzly admin</title><h1>Sign in</h1>")
}

// AdminDashboard serves the admin landing page placeholder.
func (h *WebHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html><title>exzly admin</title><h1>Welcome, %s</h1>", html.EscapeString(user.Username))
}
