package middleware

import "net/http"

// Vary returns middleware that adds Accept to the Vary header on all responses.
// The health endpoint and error responses pick JSON or CBOR from Accept, so
// shared caches must key on it. CORS adds Origin on its own.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept")
			next.ServeHTTP(w, r)
		})
	}
}
