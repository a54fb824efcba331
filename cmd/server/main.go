package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/janisto/simple-web-app/internal/http/routes"
	"github.com/janisto/simple-web-app/internal/platform/config"
	applog "github.com/janisto/simple-web-app/internal/platform/logging"
	"github.com/janisto/simple-web-app/internal/platform/metrics"
	appmiddleware "github.com/janisto/simple-web-app/internal/platform/middleware"
	"github.com/janisto/simple-web-app/internal/platform/respond"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const (
	apiTitle    = "Simple Web App"
	metricsPath = "/metrics"
)

func main() {
	os.Exit(run(os.Args[0], os.Args[1:]))
}

func run(name string, args []string) int {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	cfg, err := config.Load(name, args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		applog.LogError(context.Background(), "invalid configuration", err)
		return 1
	}
	applog.SetLevel(cfg.LogLevel)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		if m, err = metrics.New(nil); err != nil {
			applog.LogError(context.Background(), "metrics init error", err)
			return 1
		}
	}

	srv := newServer(cfg.Addr(), newRouter(cfg, m))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, srv, cfg.ShutdownTimeout); err != nil {
		applog.LogError(context.Background(), "listen failed", err, zap.String("addr", srv.Addr))
		return 1
	}
	return 0
}

// newRouter assembles the middleware stack, the huma API and the routes.
// m may be nil, in which case requests are not instrumented.
func newRouter(cfg config.Config, m *metrics.Metrics) chi.Router {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	stack := []func(http.Handler) http.Handler{
		appmiddleware.Security(cfg.DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP trusts X-Real-IP and X-Forwarded-For; deploy behind a trusted proxy only.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1 << 20), // 1 MB limit
	}
	if m != nil {
		stack = append(stack, m.Middleware())
	}
	stack = append(stack,
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
		// HEAD is answered by the GET handler; net/http drops the body.
		chimiddleware.GetHead,
	)
	router.Use(stack...)

	humaCfg := huma.DefaultConfig(apiTitle, Version)
	humaCfg.DocsPath = cfg.DocsPath
	api := humachi.New(router, humaCfg)
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)

	routes.Register(router, api)

	if m != nil {
		router.Method(http.MethodGet, metricsPath, m.Handler())
	}
	return router
}

// addCBORContent advertises CBOR wherever an operation accepts or returns JSON.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}

// serve runs srv until ctx is done, then drains in-flight requests for up to
// timeout. It returns an error only when the listener fails.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(context.Background(), "server listening", zap.String("addr", srv.Addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		applog.LogInfo(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
	}
	applog.LogInfo(context.Background(), "server exited")
	return nil
}
