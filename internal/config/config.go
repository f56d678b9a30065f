package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Routes    RoutesConfig
	Auth      AuthConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	URL string
}

type ServerConfig struct {
	Port           string
	BaseURL        string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// RoutesConfig holds the namespace prefixes for the three surfaces.
// Requests are classified as web, api, or admin by matching the incoming
// path against these prefixes.
type RoutesConfig struct {
	Web   string
	API   string
	Admin string
}

type AuthConfig struct {
	JWTSecret           string
	AccessTokenExpiry   time.Duration
	RefreshTokenExpiry  time.Duration
	PasswordResetExpiry time.Duration
	SessionTTL          time.Duration
	SessionCookieName   string
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

// RateLimitConfig mirrors the per-route-family limits of the auth surface.
type RateLimitConfig struct {
	SignUpMax            int
	SignUpWindow         time.Duration
	SignInMax            int
	SignInWindow         time.Duration
	VerificationMax      int
	VerificationWindow   time.Duration
	ForgotPasswordMax    int
	ForgotPasswordWindow time.Duration
	// TrustedProxies lists CIDR ranges whose forwarding headers are
	// honored when keying the limiter by client IP.
	TrustedProxies []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "exzly"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Routes: RoutesConfig{
			Web:   normalizePrefix(getEnv("WEB_ROUTE", "/")),
			API:   normalizePrefix(getEnv("API_ROUTE", "/api")),
			Admin: normalizePrefix(getEnv("ADMIN_ROUTE", "/admin")),
		},
		Auth: AuthConfig{
			JWTSecret:           jwtSecret,
			AccessTokenExpiry:   getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry:  getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			PasswordResetExpiry: getEnvAsDuration("PASSWORD_RESET_EXPIRY", 10*time.Minute),
			SessionTTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "exzly.sid"),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@exzly.dev"),
		},
		RateLimit: RateLimitConfig{
			SignUpMax:            getEnvAsInt("RATE_LIMIT_SIGN_UP_MAX", 20),
			SignUpWindow:         getEnvAsDuration("RATE_LIMIT_SIGN_UP_WINDOW", 10*time.Minute),
			SignInMax:            getEnvAsInt("RATE_LIMIT_SIGN_IN_MAX", 30),
			SignInWindow:         getEnvAsDuration("RATE_LIMIT_SIGN_IN_WINDOW", 5*time.Minute),
			VerificationMax:      getEnvAsInt("RATE_LIMIT_VERIFICATION_MAX", 20),
			VerificationWindow:   getEnvAsDuration("RATE_LIMIT_VERIFICATION_WINDOW", 5*time.Minute),
			ForgotPasswordMax:    getEnvAsInt("RATE_LIMIT_FORGOT_PASSWORD_MAX", 40),
			ForgotPasswordWindow: getEnvAsDuration("RATE_LIMIT_FORGOT_PASSWORD_WINDOW", 10*time.Minute),
			TrustedProxies:       parseCSV(getEnv("TRUSTED_PROXIES", "")),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Routes.API == cfg.Routes.Web || cfg.Routes.Admin == cfg.Routes.Web {
		return nil, fmt.Errorf("API_ROUTE and ADMIN_ROUTE must differ from WEB_ROUTE")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the signing secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// normalizePrefix ensures a route prefix starts with "/" and carries no
// trailing slash (except the bare web root "/").
func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimRight(prefix, "/")
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// parseCSV splits a comma-separated env value, trimming whitespace and
// dropping empty entries.
func parseCSV(value string) []string {
	if value == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		return parseCSV(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
