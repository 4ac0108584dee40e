package middleware

import (
	"net/http"

	"memorylane.app/core/appview/session"
)

type middlewareFunc func(http.Handler) http.Handler

// AuthMiddleware rejects requests without an authenticated principal
// and attaches the principal to the request context for handlers.
func AuthMiddleware(store *session.Store) middlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := store.Principal(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			r = r.WithContext(session.IntoContext(r.Context(), principal))
			next.ServeHTTP(w, r)
		})
	}
}
