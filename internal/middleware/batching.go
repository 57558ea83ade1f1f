package middleware

import (
	"net/http"

	"modelql/internal/loader"
	"modelql/internal/store"
)

// BatchingMiddleware attaches a fresh association loader to every request so
// sibling association fields resolve through one query per batch. The loader
// and its cache live only as long as the request.
func BatchingMiddleware(source store.Source) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(loader.NewContext(r.Context(), source)))
		})
	}
}
