package httpx

import (
	"net/http"
	"strings"
)

// Middleware wraps an http.Handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h in reverse order, so the first listed
// middleware is the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// SessionVerifier validates a bearer session token and returns the
// caller it identifies.
type SessionVerifier interface {
	Verify(token string) (userID int64, username string, err error)
}

// OptionalSession extracts a Bearer token from the Authorization header
// and, if it verifies, records the caller on the context. Requests
// without a token pass through anonymously; requests with a bad token
// are rejected so a caller never silently downgrades to anonymous.
func OptionalSession(verifier SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				http.Error(w, "malformed authorization header", http.StatusUnauthorized)
				return
			}

			userID, username, err := verifier.Verify(token)
			if err != nil {
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), userID, username)))
		})
	}
}
