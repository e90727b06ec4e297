package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nestars16/study-buddy/internal/utils"
)

// ErrSessionNotFound is returned by a UserFetcher when no user row holds the
// presented session id. Any other error is treated as a store fault.
var ErrSessionNotFound = errors.New("session not found")

// UserFetcher resolves a session id to the owning user's id.
type UserFetcher interface {
	FindUserBySession(ctx context.Context, sessionID string) (string, error)
}

// SecureCookies controls the Secure flag on session cookies. main sets it
// from config so local dev over plain HTTP keeps working.
var SecureCookies bool

func SessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     "session_id",
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   SecureCookies,
	}
}

// ExpiredSessionCookie tells the client to drop its session_id cookie.
func ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     "session_id",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   SecureCookies,
	}
}

// SessionMiddleware resolves the session_id cookie into an AuthOutcome and
// attaches it to the request context. It never rejects the request itself —
// that's utils.RequireUser's job — so routes that don't need a user can share
// the same chain. A cookie that turns out to be invalid is actively cleared.
func SessionMiddleware(fetcher UserFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := resolveSession(r, fetcher)

			if outcome.Kind != utils.Authenticated && outcome.Kind != utils.NoSessionCookie {
				// Client presented a cookie that didn't pan out; scrub it.
				http.SetCookie(w, ExpiredSessionCookie())
			}

			ctx := utils.WithAuthOutcome(r.Context(), outcome)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSession(r *http.Request, fetcher UserFetcher) utils.AuthOutcome {
	cookie, err := r.Cookie("session_id")
	if err != nil || cookie.Value == "" {
		return utils.AuthOutcome{Kind: utils.NoSessionCookie}
	}

	// A malformed token is indistinguishable from an unknown one on purpose;
	// we don't leak anything about the expected format.
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return utils.AuthOutcome{Kind: utils.UnknownOrExpiredSession}
	}

	userID, err := fetcher.FindUserBySession(r.Context(), cookie.Value)
	if errors.Is(err, ErrSessionNotFound) {
		return utils.AuthOutcome{Kind: utils.UnknownOrExpiredSession}
	}
	if err != nil {
		// Store fault, not a client error. Log it, don't conflate.
		log.Printf("session lookup failed: %v", err)
		return utils.AuthOutcome{Kind: utils.LookupFailure}
	}

	return utils.AuthOutcome{Kind: utils.Authenticated, UserID: userID}
}

// CORSMiddleware echoes the origin back only if it's on the allow-list.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
