package auth

import (
	"encoding/json"
	"net/http"

	"orderbuddy/pkg/logger"
)

// Middleware returns an HTTP middleware that validates the Bearer JWT on
// every request and injects the Principal into the request context. Requests
// with a bad or missing credential get 401 with the stable UNAUTHENTICATED
// code; handlers behind the middleware can rely on MustPrincipal.
func Middleware(secret string, log logger.ILogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := ParseBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				log.Warning("rejected request", logger.String("path", r.URL.Path), logger.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "UNAUTHENTICATED",
					"message": "invalid or missing credentials",
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// MustPrincipal returns the principal stored by Middleware. It panics when
// called outside an authenticated route; that is a routing bug, not a
// runtime condition.
func MustPrincipal(r *http.Request) *Principal {
	p, ok := FromContext(r.Context())
	if !ok {
		panic("auth: no principal in context")
	}
	return p
}
