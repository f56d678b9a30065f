package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/exzly/exzly/internal/auth"
	"github.com/exzly/exzly/internal/config"
	"github.com/exzly/exzly/internal/database"
	"github.com/exzly/exzly/internal/handlers"
	middlewareCustom "github.com/exzly/exzly/internal/middleware"
	"github.com/exzly/exzly/internal/repositories"
	"github.com/exzly/exzly/internal/routes"
	"github.com/exzly/exzly/internal/services"
	pkglogger "github.com/exzly/exzly/pkg/logger"
)

// SentEmail is one captured outbound message.
type SentEmail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// CaptureMailer records outbound email instead of dialing SES.
type CaptureMailer struct {
	mu   sync.Mutex
	Sent []SentEmail
}

func (m *CaptureMailer) Send(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: to, Subject: subject, Template: templateName, Data: data})
	return nil
}

// LastEmail returns the most recent captured message, or nil.
func (m *CaptureMailer) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// TestServer wraps httptest.Server with the full middleware and route
// stack against a real database and an in-process redis.
type TestServer struct {
	Server   *httptest.Server
	DB       *database.DB
	Mailer   *CaptureMailer
	Sessions *auth.SessionStore
	Config   *config.Config

	redisSrv *miniredis.Miniredis
	logger   *slog.Logger
}

// NewTestServer assembles the application against db with a captured
// mailer and a miniredis session backend.
func NewTestServer(db *database.DB) (*TestServer, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Env:     "test",
			BaseURL: "http://localhost:8080",
		},
		Routes: config.RoutesConfig{
			Web:   "/",
			API:   "/api",
			Admin: "/admin",
		},
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:   15 * time.Minute,
			RefreshTokenExpiry:  7 * 24 * time.Hour,
			PasswordResetExpiry: 10 * time.Minute,
			SessionTTL:          time.Hour,
			SessionCookieName:   "exzly.sid",
		},
		RateLimit: config.RateLimitConfig{
			SignUpMax:            1000,
			SignUpWindow:         time.Minute,
			SignInMax:            1000,
			SignInWindow:         time.Minute,
			VerificationMax:      1000,
			VerificationWindow:   time.Minute,
			ForgotPasswordMax:    1000,
			ForgotPasswordWindow: time.Minute,
		},
	}

	redisSrv, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisSrv.Addr()})

	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewAuthTokenRepository(db)
	verifyRepo := repositories.NewAuthVerifyRepository(db)

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.PasswordResetExpiry,
	)
	sessions := auth.NewSessionStore(redisClient, cfg.Auth.SessionTTL, cfg.Auth.SessionCookieName)
	mailer := &CaptureMailer{}
	auditLogger := pkglogger.NewAuditLogger(logger)

	ns := routes.NewNamespaces(cfg.Routes)

	authService := services.NewAuthService(
		userRepo, tokenRepo, verifyRepo, tokenManager, mailer,
		logger, auditLogger, cfg.Auth.PasswordResetExpiry,
		cfg.Server.BaseURL+ns.WebPath("/verification"),
	)
	userService := services.NewUserService(userRepo, tokenRepo, logger, auditLogger)
	authHandler := handlers.NewAuthHandler(authService, sessions, logger, cfg.Server.Env, cfg.Auth.PasswordResetExpiry)
	usersHandler := handlers.NewUsersHandler(userService, cfg.Server.Env)
	webHandler := handlers.NewWebHandler(sessions, logger, cfg.Routes.Web)

	identity := auth.NewIdentity(tokenManager, sessions, userRepo, tokenRepo, logger, ns.AuthWhitelist())

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(identity.Middleware)

	routes.RegisterRoutes(router, ns, authHandler, usersHandler, webHandler, cfg.RateLimit)

	return &TestServer{
		Server:   httptest.NewServer(router),
		DB:       db,
		Mailer:   mailer,
		Sessions: sessions,
		Config:   cfg,
		redisSrv: redisSrv,
		logger:   logger,
	}, nil
}

// Close shuts down the HTTP server and the redis backend.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.redisSrv.Close()
}

// PostJSON sends a JSON POST and decodes the JSON response into out
// when out is non-nil. bearer is attached as an Authorization header
// when non-empty.
func (ts *TestServer) PostJSON(path string, body any, bearer string, out any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.Server.Client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("failed to decode response %q: %w", raw, err)
		}
	}

	return resp, nil
}

// GetJSON sends a GET with an optional bearer token.
func (ts *TestServer) GetJSON(path, bearer string, out any) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+path, nil)
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.Server.Client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("failed to decode response %q: %w", raw, err)
		}
	}

	return resp, nil
}
