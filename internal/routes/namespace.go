package routes

import (
	"strings"

	"github.com/exzly/exzly/internal/config"
)

// Surface names a route namespace.
type Surface string

const (
	SurfaceWeb   Surface = "web"
	SurfaceAPI   Surface = "api"
	SurfaceAdmin Surface = "admin"
)

// Namespaces classifies request paths into the three surfaces using
// the configured prefixes. The web prefix is usually "/" and matches
// whatever the other two do not.
type Namespaces struct {
	Web   string
	API   string
	Admin string
}

// NewNamespaces builds the classifier from configuration.
func NewNamespaces(cfg config.RoutesConfig) Namespaces {
	return Namespaces{Web: cfg.Web, API: cfg.API, Admin: cfg.Admin}
}

// Classify reports which surface the path belongs to.
func (n Namespaces) Classify(path string) Surface {
	switch {
	case matchesPrefix(path, n.API):
		return SurfaceAPI
	case matchesPrefix(path, n.Admin):
		return SurfaceAdmin
	default:
		return SurfaceWeb
	}
}

// AuthPath joins the API prefix with an auth route suffix.
func (n Namespaces) AuthPath(suffix string) string {
	return n.API + "/auth" + suffix
}

// WebPath joins the web prefix with a route suffix.
func (n Namespaces) WebPath(suffix string) string {
	if n.Web == "/" || n.Web == "" {
		return suffix
	}
	return n.Web + suffix
}

// AuthWhitelist lists the exact auth endpoint paths where identity
// resolution must not reject a bad bearer token. These routes handle
// credentials themselves.
func (n Namespaces) AuthWhitelist() []string {
	suffixes := []string{
		"/sign-up",
		"/sign-in",
		"/sign-out",
		"/refresh-token",
		"/verification",
		"/forgot-password",
		"/reset-password",
	}
	paths := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		paths = append(paths, n.AuthPath(s))
	}
	return paths
}

// matchesPrefix is a path-segment aware prefix check: "/api" matches
// "/api" and "/api/users" but not "/apiv2".
func matchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || strings.HasPrefix(rest, "/")
}
