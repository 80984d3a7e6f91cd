package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yangxb919/prspares-website/internal/auth"
	"github.com/yangxb919/prspares-website/internal/client"
	"github.com/yangxb919/prspares-website/internal/config"
	"github.com/yangxb919/prspares-website/internal/event"
	handler "github.com/yangxb919/prspares-website/internal/handler/http"
	"github.com/yangxb919/prspares-website/internal/repository"
	"github.com/yangxb919/prspares-website/internal/repository/postgres"
	"github.com/yangxb919/prspares-website/internal/repository/redis"
	"github.com/yangxb919/prspares-website/internal/service"
	"github.com/yangxb919/prspares-website/migrations"
	"github.com/yangxb919/prspares-website/pkg/database"
	"github.com/yangxb919/prspares-website/pkg/health"
	"github.com/yangxb919/prspares-website/pkg/httpclient"
	pkgkafka "github.com/yangxb919/prspares-website/pkg/kafka"
	"github.com/yangxb919/prspares-website/pkg/middleware"
	"github.com/yangxb919/prspares-website/pkg/tracing"
)

// ServiceName identifies the catalog in logs, metrics and traces.
const ServiceName = "prspares-catalog"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	if err := a.init(ctx); err != nil {
		_ = a.closeClients()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	rdb, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rdb
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Search events are optional. An untyped nil keeps the service from
	// calling into a disabled producer.
	var (
		searches  service.SearchPublisher
		kafkaPing health.Checker
	)
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka unreachable, continuing in degraded mode", slog.String("error", err.Error()))
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		searches = event.NewProducer(a.producer, logger)
		kafkaPing = a.producer.Ping
	}

	c := buildComponents(cfg, logger, pool, rdb, searches, kafkaPing)
	a.limiter = c.limiter

	if cfg.KafkaEnabled {
		a.consumer = pkgkafka.NewConsumer(
			pkgkafka.DefaultConsumerConfig(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, event.ProductTopics()...),
			event.NewProductChangeHandler(c.catalog, logger),
			logger,
		)
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           c.handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// components is the request path built over connected clients.
type components struct {
	catalog *service.CatalogService
	limiter *middleware.RateLimiter
	handler http.Handler
}

// buildComponents wires repositories, caches, the access gate and the HTTP
// router. kafkaPing may be nil.
func buildComponents(
	cfg *config.Config,
	logger *slog.Logger,
	db database.DBTX,
	rdb *goredis.Client,
	searches service.SearchPublisher,
	kafkaPing health.Checker,
) components {
	products := postgres.NewProductRepository(db)
	userCache := redis.NewUserCache(rdb, cfg.UserCacheTTL())

	// Catalog pages are cached only when a TTL is configured.
	var catalogCache repository.CatalogCache
	if ttl := cfg.CatalogCacheTTL(); ttl > 0 {
		catalogCache = redis.NewCatalogCache(rdb, ttl)
	}

	catalogService := service.NewCatalogService(products, catalogCache, searches, logger)

	// Access gate.
	provider := auth.NewProvider(
		auth.NewTokenManager(cfg.SessionSecret),
		postgres.NewSessionRepository(db),
		postgres.NewUserRepository(db),
		userCache,
		cfg.SessionCookieName,
		logger,
	)


	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", catalogService.Ping)
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if kafkaPing != nil {
		healthHandler.RegisterNonCritical("kafka", kafkaPing)
	}

	limiter := middleware.NewRateLimiter(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst, 3*time.Minute)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: ServiceName,
		Products:    catalogService,
		Fetchers:    newCatalogClient(cfg, logger),
		Gate:        auth.NewGate(provider),
		LoginPath:   cfg.LoginPath,
		Health:      healthHandler,
		RateLimiter: limiter,
		CORS:        cors,
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
		Logger:      logger,
	})

	return components{catalog: catalogService, limiter: limiter, handler: router}
}

// newCatalogClient builds the client the pricing page reads the data endpoint
// through. A failed fetch is reported to the visitor, who retries by hand.
func newCatalogClient(cfg *config.Config, logger *slog.Logger) *client.CatalogClient {
	hc := httpclient.DefaultConfig()
	hc.MaxRetries = 0
	return client.NewCatalogClient(
		httpclient.NewCircuitBreakerClient(
			httpclient.New(hc),
			httpclient.DefaultCircuitBreakerConfig(client.ServiceName),
			logger,
		),
		cfg.CatalogAPIBaseURL,
		logger,
	)
}

// Run starts the HTTP server and background workers, then blocks until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.limiter.Run(gctx)
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			if err := a.consumer.Run(gctx); err != nil {
				return fmt.Errorf("product change consumer: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka, Redis, then the PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeClients())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeClients() error {
	var errs []error
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}

// Migrate applies pending schema migrations and exits.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	pending, err := database.PendingMigrations(migrations.FS)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	logger.Info("applying migrations", slog.Int("files", len(pending)))

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
