package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a middleware allowing read-only cross-origin access from any origin.
// The service exposes no mutating routes, so only safe methods are advertised.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"traceparent",
			"X-Request-Id",
		},
		ExposedHeaders: []string{"Link", "Location", "X-Request-Id"},
		MaxAge:         300,
	})
}
