package middleware

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/exzly/exzly/pkg/http"
)

// LimitByIP throttles a route family to max requests per window per
// client IP. Forwarding headers feed the key only for requests arriving
// from a trusted proxy CIDR. The 429 body tells the client when to come
// back.
func LimitByIP(max int, window time.Duration, trustedProxies []string) func(next http.Handler) http.Handler {
	minutes := int(math.Ceil(window.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: trustedProxies}

	return httprate.Limit(
		max,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, ipConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"Too many requests. Please try again after %d minutes"}`, minutes)
		}),
	)
}
