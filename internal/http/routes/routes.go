package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/simple-web-app/internal/http/greeting"
	"github.com/janisto/simple-web-app/internal/http/health"
	"github.com/janisto/simple-web-app/internal/platform/respond"
)

// WelcomePath is the conventional welcome file, redirected to the greeting.
const WelcomePath = "/index.html"

// Register wires all HTTP routes. Documented operations go through api;
// plain redirects are mounted on router and stay out of the OpenAPI document.
func Register(router chi.Router, api huma.API) {
	greeting.Register(api)
	health.Register(api)

	router.Get(WelcomePath, func(w http.ResponseWriter, r *http.Request) {
		respond.WriteRedirect(w, r, greeting.Path, http.StatusMovedPermanently)
	})
}
