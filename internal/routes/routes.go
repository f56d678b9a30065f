package routes

import (
	"github.com/exzly/exzly/internal/auth"
	"github.com/exzly/exzly/internal/config"
	"github.com/exzly/exzly/internal/handlers"
	"github.com/exzly/exzly/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the API, web, and admin surfaces.
func RegisterRoutes(
	router chi.Router,
	ns Namespaces,
	authHandler *handlers.AuthHandler,
	usersHandler *handlers.UsersHandler,
	webHandler *handlers.WebHandler,
	limits config.RateLimitConfig,
) {
	// API surface
	router.Route(ns.API, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.LimitByIP(limits.SignUpMax, limits.SignUpWindow, limits.TrustedProxies)).
				Post("/sign-up", authHandler.SignUp)
			r.With(middleware.LimitByIP(limits.SignInMax, limits.SignInWindow, limits.TrustedProxies)).
				Post("/sign-in", authHandler.SignIn)
			r.Post("/sign-out", authHandler.SignOut)
			r.Post("/refresh-token", authHandler.RefreshToken)
			r.With(middleware.LimitByIP(limits.ForgotPasswordMax, limits.ForgotPasswordWindow, limits.TrustedProxies)).
				Post("/forgot-password", authHandler.ForgotPassword)
			r.With(middleware.LimitByIP(limits.VerificationMax, limits.VerificationWindow, limits.TrustedProxies)).
				Post("/verification", authHandler.Verification)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(auth.RequireAdmin).Get("/", usersHandler.List)
			r.With(auth.RequireAdmin).Post("/", usersHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuthenticated)
				r.Get("/profile/{userId}", usersHandler.GetProfile)
				r.Put("/profile/{userId}", usersHandler.UpdateProfile)
				r.Put("/profile/{userId}/photo", usersHandler.UpdatePhoto)
				r.Put("/credentials/{userId}", usersHandler.UpdateCredentials)
				r.Delete("/profile/{userId}", usersHandler.Delete)
				r.With(auth.RequireAdmin).Patch("/profile/{userId}", usersHandler.Restore)
			})
		})
	})

	// Admin surface: session-driven, anonymous browsers go to the admin
	// sign-in page, non-admins back to the public surface.
	router.Route(ns.Admin, func(r chi.Router) {
		r.Get("/sign-in", webHandler.AdminSignIn)
		r.Get("/sign-out", webHandler.SignOut)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdminOrRedirect(ns.Admin+"/sign-in", webRoot(ns.Web)))
			r.Get("/", webHandler.AdminDashboard)
		})
	})

	// Web surface
	router.Get(webRoot(ns.Web), webHandler.Home)
	router.Get(ns.WebPath("/sign-out"), webHandler.SignOut)
	router.Get(ns.WebPath("/verification"),
		authHandler.VerificationLink(ns.WebPath("/reset-password")))
	router.Get(ns.WebPath("/reset-password"), webHandler.ResetPasswordPage)
}

func webRoot(prefix string) string {
	if prefix == "" {
		return "/"
	}
	return prefix
}

