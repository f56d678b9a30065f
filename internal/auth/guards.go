package auth

import (
	"net/http"

	pkghttp "github.com/exzly/exzly/pkg/http"
)

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r) == nil {
			pkghttp.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects non-admin actors with 403. Anonymous requests
// get 401 so clients can tell the two apart.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r)
		if user == nil {
			pkghttp.WriteUnauthorized(w, "authentication required")
			return
		}
		if !user.IsAdmin {
			pkghttp.WriteForbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminOrRedirect guards the admin web surface. Anonymous
// browsers are sent to the admin sign-in page; signed-in non-admins
// are sent back to the public surface instead of an error page.
func RequireAdminOrRedirect(signIn, home string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				http.Redirect(w, r, signIn, http.StatusFound)
				return
			}
			if !user.IsAdmin {
				http.Redirect(w, r, home, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
