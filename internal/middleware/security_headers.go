package middleware

import "net/http"

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Env string
}

// SecurityHeaders adds the standard browser hardening headers to every
// response. The CSP is strict in production and relaxed in development
// so hot reloading keeps working.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	production := config.Env == "production"

	var csp string
	if production {
		csp = "default-src 'self'; " +
			"script-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data: https:; " +
			"font-src 'self'; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	} else {
		csp = "default-src 'self' http: https: ws:; " +
			"script-src 'self' 'unsafe-inline' 'unsafe-eval' http: https: ws:; " +
			"style-src 'self' 'unsafe-inline' http: https:; " +
			"img-src 'self' data: https: http:; " +
			"font-src 'self' data: http: https:; " +
			"connect-src 'self' http: https: ws: wss:; " +
			"frame-ancestors 'self'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("Permissions-Policy",
				"accelerometer=(), camera=(), geolocation=(), gyroscope=(), "+
					"magnetometer=(), microphone=(), payment=(), usb=()")
			w.Header().Set("X-DNS-Prefetch-Control", "off")
			w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

			if production {
				w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
				if r.Header.Get("X-Forwarded-Proto") == "https" || r.URL.Scheme == "https" {
					w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
				}
			} else {
				w.Header().Set("Cross-Origin-Embedder-Policy", "credentialless")
			}

			next.ServeHTTP(w, r)
		})
	}
}
