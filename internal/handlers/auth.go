package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/exzly/exzly/internal/auth"
	"github.com/exzly/exzly/internal/services"
	pkghttp "github.com/exzly/exzly/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	SignUp(ctx context.Context, input services.SignUpInput) (*services.AuthResponse, error)
	SignIn(ctx context.Context, identity, password string) (*services.AuthResponse, error)
	SignOut(ctx context.Context, accessToken, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ForgotPassword(ctx context.Context, identity string) (*services.ForgotPasswordResponse, error)
	Verification(ctx context.Context, code string) (*services.VerificationResponse, error)
	VerifyByHash(ctx context.Context, hash string) (*services.VerificationResponse, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler handles the authentication endpoints
type AuthHandler struct {
	service  AuthServiceInterface
	sessions *auth.SessionStore
	logger   *slog.Logger
	env      string
	resetTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler. resetTTL bounds the
// reset-password browser session and its cookie.
func NewAuthHandler(service AuthServiceInterface, sessions *auth.SessionStore, logger *slog.Logger, env string, resetTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		logger:   logger,
		env:      env,
		resetTTL: resetTTL,
	}
}

// Request DTOs

// SignUpRequest represents the request body for sign-up
type SignUpRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,username"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	FullName string  `json:"fullName" validate:"required,min=2,max=80"`
	Gender   *string `json:"gender" validate:"omitempty,oneof=male female"`
}

// SignInRequest represents the request body for sign-in. Identity may
// be an email address or a username.
type SignInRequest struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignOutRequest represents the request body for sign-out
type SignOutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ForgotPasswordRequest represents the request body for forgot-password
type ForgotPasswordRequest struct {
	Identity string `json:"identity" validate:"required"`
}

// VerificationRequest represents the request body for code verification
type VerificationRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest represents the request body for reset-password
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// SignUp handles account creation
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	resp, err := h.service.SignUp(r.Context(), services.SignUpInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Gender:   req.Gender,
	})
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// SignIn authenticates and establishes both credential channels: the
// token pair for API clients and the session cookie for browsers.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	resp, err := h.service.SignIn(r.Context(), req.Identity, req.Password)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), &auth.Session{UserID: resp.User.ID})
	if err != nil {
		h.logger.Error("failed to create session", slog.Any("error", err))
	} else {
		h.sessions.SetCookie(w, sessionID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// SignOut revokes the presented token pair and tears down the session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	accessToken := bearerToken(r)
	if accessToken == "" {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	var req SignOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	if err := h.service.SignOut(r.Context(), accessToken, req.RefreshToken); err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	if id, ok := h.sessions.ReadCookie(r); ok {
		if err := h.sessions.Destroy(r.Context(), id); err != nil {
			h.logger.Error("failed to destroy session", slog.Any("error", err))
		}
		h.sessions.ClearCookie(w)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RefreshToken issues a new access token against a live refresh token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	token, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ForgotPassword begins the reset flow
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	resp, err := h.service.ForgotPassword(r.Context(), req.Identity)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Verification redeems the emailed code for the reset token. For
// browsers it also sets the session flag that authorizes exactly the
// reset-password page.
func (h *AuthHandler) Verification(w http.ResponseWriter, r *http.Request) {
	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	resp, err := h.service.Verification(r.Context(), req.Code)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	h.setResetSessionFlag(w, r)

	writeJSON(w, http.StatusOK, resp)
}

// VerificationLink redeems the emailed click-through link on the web
// surface. The correlation key in the query redeems the code
// server-side, the reset token lands in the browser session, and the
// client is sent on to the reset page at resetPath.
func (h *AuthHandler) VerificationLink(resetPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := r.URL.Query().Get("token")
		if hash == "" {
			pkghttp.WriteBadRequest(w, "Missing verification token")
			return
		}

		if _, err := h.service.VerifyByHash(r.Context(), hash); err != nil {
			pkghttp.WriteDomainError(w, err, h.env)
			return
		}

		h.setResetSessionFlag(w, r)

		http.Redirect(w, r, resetPath, http.StatusFound)
	}
}

// ResetPassword redeems the reset token and clears the session flag.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	h.clearResetSessionFlag(w, r)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// setResetSessionFlag marks the browser session as authorized for the
// reset-password page, reusing an existing session when one is live.
// The session and its cookie are rescoped to the reset window rather
// than the full session TTL.
func (h *AuthHandler) setResetSessionFlag(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.sessions.ReadCookie(r); ok {
		if session, err := h.sessions.Get(r.Context(), id); err == nil {
			session.ResetPassword = true
			if err := h.sessions.UpdateWithTTL(r.Context(), id, session, h.resetTTL); err != nil {
				h.logger.Error("failed to update session", slog.Any("error", err))
				return
			}
			h.sessions.SetCookieWithTTL(w, id, h.resetTTL)
			return
		}
	}

	id, err := h.sessions.CreateWithTTL(r.Context(), &auth.Session{ResetPassword: true}, h.resetTTL)
	if err != nil {
		h.logger.Error("failed to create session", slog.Any("error", err))
		return
	}
	h.sessions.SetCookieWithTTL(w, id, h.resetTTL)
}

func (h *AuthHandler) clearResetSessionFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.ReadCookie(r)
	if !ok {
		return
	}
	session, err := h.sessions.Get(r.Context(), id)
	if err != nil || !session.ResetPassword {
		return
	}

	if session.UserID == 0 {
		// The session exists only for the reset flow; drop it entirely.
		if err := h.sessions.Destroy(r.Context(), id); err != nil {
			h.logger.Error("failed to destroy session", slog.Any("error", err))
		}
		h.sessions.ClearCookie(w)
		return
	}

	session.ResetPassword = false
	if err := h.sessions.Update(r.Context(), id, session); err != nil {
		h.logger.Error("failed to update session", slog.Any("error", err))
	}
}

// bearerToken extracts the raw token from the Authorization header, or
// empty when the header is absent or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
