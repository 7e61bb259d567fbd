package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. With a plain string key, any
// package that knows the string could read or shadow the value. Only this
// package can create a contextKey, so only this package can set the account.
type contextKey string

const accountKey contextKey = "account"

// FailureRecorder counts authentication failures by reason.
// The metrics middleware implements it.
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from the "Authorization: Bearer <token>" header, asks the
// guard for the account, and stores it in the request context. Any failure
// ends the request with 401 and a "WWW-Authenticate: Bearer" challenge.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one wrapping it:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before ...
//	        next.ServeHTTP(w, r)
//	        // ... after ...
//	    })
//	}
//
// recorder may be nil.
func RequireAuth(guard *Guard, recorder FailureRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := guard.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				if !errors.Is(err, apperror.ErrUnauthenticated) {
					logger.Error("authenticating request", "error", err, "path", r.URL.Path)
					writeAuthError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
					return
				}

				reason := apperror.ReasonOf(err)
				logger.Info("authentication failed", "reason", reason, "method", r.Method, "path", r.URL.Path)
				if recorder != nil {
					recorder.RecordAuthFailure(reason)
				}

				w.Header().Set("WWW-Authenticate", "Bearer")
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromContext returns the account set by RequireAuth.
//
// Returns (nil, false) on routes that are not behind RequireAuth.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	account, ok := ctx.Value(accountKey).(*model.Account)
	return account, ok && account != nil
}

// WithAccount returns a copy of ctx carrying account. Handler tests use it
// to skip the token round trip.
func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// BearerToken extracts the token from the Authorization header. It returns ""
// when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
