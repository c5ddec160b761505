// Package app wires the storefront services, transport and servers together.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/abgdnv/storefront/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Dependencies struct {
	UserService     service.UserService
	ProductService  service.ProductService
	CheckoutService service.CheckoutService
	// Metrics is optional; without it /metrics is not served.
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// SetupDependencies builds the services on top of s. Create metrics before
// calling it so that the checkout counters bind to the installed meter provider.
func SetupDependencies(s store.Store, publisher messaging.Publisher, metrics *telemetry.Metrics, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		UserService:     service.NewUserService(s),
		ProductService:  service.NewProductService(s),
		CheckoutService: service.NewCheckoutService(s, publisher),
		Metrics:         metrics,
		Logger:          logger,
	}
}

// SetupHttpHandler initializes the router with middleware and all storefront routes.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	var reg prometheus.Registerer
	if deps.Metrics != nil {
		reg = deps.Metrics.Registry
	}
	mux := server.NewChiRouter(deps.Logger, reg)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.UserService, deps.ProductService, deps.CheckoutService, deps.Logger)
	handler.RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}
}

// SetupHttpServer creates the HTTP server, instrumented with OpenTelemetry.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	handler := otelhttp.NewHandler(SetupHttpHandler(deps), "storefront-http")

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, handler)
}
