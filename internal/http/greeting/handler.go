// Package greeting serves the static HTML greeting at the site root.
package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/simple-web-app/internal/platform/logging"
)

const (
	Path        = "/"
	ContentType = "text/html"
	Body        = "<h1>Hello from Simple Java Web App!</h1>\n"
)

// Register wires the greeting route into the provided API router.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Get the HTML greeting",
		Tags:        []string{"Greeting"},
	}, getHandler)
}

func getHandler(ctx context.Context, _ *struct{}) (*Output, error) {
	applog.LogInfo(ctx, "greeting get", zap.String("path", Path))
	return &Output{ContentType: ContentType, Body: []byte(Body)}, nil
}
