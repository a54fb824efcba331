// Package health exposes the liveness endpoint used by load balancers and Cloud Run.
package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/simple-web-app/internal/platform/timeutil"
)

const (
	Path          = "/health"
	StatusHealthy = "healthy"
)

// Data is the payload for the health endpoint.
type Data struct {
	Status    string        `json:"status"    doc:"Service status"        example:"healthy"`
	Timestamp timeutil.Time `json:"timestamp" doc:"Server time, RFC 3339"`
}

// Output wraps the health payload.
type Output struct {
	Body Data
}

// Register wires the health check into the provided API router.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Report service health",
		Tags:        []string{"Health"},
	}, handler)
}

func handler(_ context.Context, _ *struct{}) (*Output, error) {
	return &Output{Body: Data{Status: StatusHealthy, Timestamp: timeutil.Now()}}, nil
}
