package utils

import (
	"context"
	"net/http"
)

type contextKey string

const ContextAuthOutcomeKey contextKey = "authOutcome"

// AuthKind tags the result of resolving a session cookie.
type AuthKind int

const (
	Authenticated AuthKind = iota
	NoSessionCookie
	UnknownOrExpiredSession
	LookupFailure
)

// AuthOutcome is written once per request by the session middleware and
// read once by RequireUser. UserID is only set when Kind is Authenticated.
type AuthOutcome struct {
	Kind   AuthKind
	UserID string
}

// UserContext is what a protected handler gets after RequireUser succeeds.
type UserContext struct {
	UserID string
}

func WithAuthOutcome(ctx context.Context, outcome AuthOutcome) context.Context {
	return context.WithValue(ctx, ContextAuthOutcomeKey, outcome)
}

func GetAuthOutcome(ctx context.Context) (AuthOutcome, bool) {
	outcome, ok := ctx.Value(ContextAuthOutcomeKey).(AuthOutcome)
	return outcome, ok
}

// RequireUser rejects the request unless the session middleware resolved an
// authenticated user. On failure it writes the response itself and returns
// ok=false; the handler body must return immediately.
func RequireUser(w http.ResponseWriter, r *http.Request) (UserContext, bool) {
	outcome, ok := GetAuthOutcome(r.Context())
	if !ok {
		// Middleware wasn't mounted for this route. That's a wiring bug on
		// our side, not a client error.
		http.Error(w, "Lookup Failed", http.StatusInternalServerError)
		return UserContext{}, false
	}

	switch outcome.Kind {
	case Authenticated:
		return UserContext{UserID: outcome.UserID}, true
	case NoSessionCookie:
		http.Error(w, "No session cookie found", http.StatusUnauthorized)
		return UserContext{}, false
	case UnknownOrExpiredSession:
		http.Error(w, "Invalid user session", http.StatusUnauthorized)
		return UserContext{}, false
	default:
		http.Error(w, "Lookup Failed", http.StatusInternalServerError)
		return UserContext{}, false
	}
}
