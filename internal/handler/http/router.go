package http

import (
	"embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yangxb919/prspares-website/internal/auth"
	"github.com/yangxb919/prspares-website/pkg/health"
	"github.com/yangxb919/prspares-website/pkg/middleware"
)

//go:embed static
var staticFS embed.FS

// RouterConfig carries the handlers' collaborators.
type RouterConfig struct {
	ServiceName string
	Products    ProductLister
	Fetchers    FetcherFactory
	Gate        *auth.Gate
	LoginPath   string
	Health      *health.Handler
	// RateLimiter throttles the data endpoints per client IP. Nil disables it.
	RateLimiter *middleware.RateLimiter
	CORS        middleware.CORSConfig
	PprofCIDRs  []string
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())

	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	r.Handle("/static/*", http.FileServerFS(staticFS))

	// Catalog data API
	productHandler := NewProductHandler(cfg.Products, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS))
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimit(cfg.RateLimiter, logger))
		}

		// Prices are shown to signed-in users only. The model list is public.
		r.With(auth.RequireSessionAPI(cfg.Gate)).Get("/products", productHandler.ListProducts)
		r.Get("/models", productHandler.ListModels)
	})

	// Pricing page
	pricingHandler := NewPricingHandler(cfg.Fetchers, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(auth.RequireSession(cfg.Gate, cfg.LoginPath))

		r.Get("/pricing", pricingHandler.ServeHTTP)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/pricing", http.StatusFound)
	})

	return r
}
