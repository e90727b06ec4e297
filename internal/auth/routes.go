package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nestars16/study-buddy/internal/middleware"
)

// SetupRoutes mounts the auth endpoints. The session middleware runs for
// every route but never rejects by itself; log_out and me gate themselves
// through utils.RequireUser.
func SetupRoutes(limiter *middleware.RateLimiter) http.Handler {
	sessionFetcher := SessionInfo{}

	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(sessionFetcher))

	r.With(limiter.Middleware).Post("/create_user", CreateUserHandler)
	r.With(limiter.Middleware).Post("/log_in", LogInHandler)
	r.Post("/log_out", LogOutHandler)
	r.Get("/me", MeHandler)

	return r
}
