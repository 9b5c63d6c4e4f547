package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/config"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/handlers"
	"github.com/benvon/civiz/internal/logger"
	"github.com/benvon/civiz/internal/metrics"
	"github.com/benvon/civiz/internal/middleware"
	"github.com/benvon/civiz/internal/ratelimit"
	"github.com/benvon/civiz/internal/services/imagegen"
	"github.com/benvon/civiz/internal/services/oidc"
	"github.com/benvon/civiz/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "civiz-api"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("image_provider", cfg.ImageProvider),
		zap.String("image_model", cfg.ImageModel),
		zap.String("anon_limit_store", cfg.AnonLimitStore),
		zap.Int("anon_generation_limit", cfg.AnonGenerationLimit),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry
	tracing := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracing = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.InitSchema(initCtx); err != nil {
		initCancel()
		zapLogger.Fatal("failed_to_initialize_schema", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	registry, err := loadCategories(cfg.CategoriesFile)
	if err != nil {
		initCancel()
		zapLogger.Fatal("failed_to_load_categories", zap.Error(err))
	}
	zapLogger.Info("categories_loaded",
		zap.Int("count", len(registry.All())),
		zap.String("default_category", registry.Default().ID),
	)

	// Redis is optional. Without it both limiters keep their counters in memory.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = ratelimit.OpenRedis(initCtx, cfg.RedisURL)
		if err != nil {
			initCancel()
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}
	initCancel()

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector("civiz")
	}

	// Repositories
	userRepo := database.NewUserRepository(db)
	visionRepo := database.NewVisionRepository(db)
	oidcConfigRepo := database.NewOIDCConfigRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)
	accounts := &database.AccountStore{Users: userRepo, Visions: visionRepo}

	// Services
	oidcProvider := oidc.NewProvider(oidcConfigRepo, cfg.OIDCProvider, oidc.NewJWKSManager())
	imageService := newImageService(cfg, registry, collector, zapLogger)

	var anonStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.AnonLimitStore == config.AnonStoreRedis {
		anonStore = ratelimit.NewRedisStore(redisClient, "civiz:anon")
	}
	anonLimiter := ratelimit.New(anonStore, ratelimit.WithLimit(cfg.AnonGenerationLimit))

	apiStore, err := newAPIRateStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimitReloader := middleware.NewRateLimitReloader(apiStore, ratelimitConfigRepo, cfg.APIRateLimit, zapLogger, time.Minute)
	rateLimitReloader.OnAnonymousLimit(anonLimiter.SetLimit)
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, time.Minute)

	// Handlers
	authHandler := handlers.NewAuthHandler(oidcProvider, userRepo, accounts, collector, zapLogger)
	visionHandler := handlers.NewVisionHandler(visionRepo, registry, imageService, collector, zapLogger)
	anonymousHandler := handlers.NewAnonymousHandler(anonLimiter, registry, imageService, collector, zapLogger)
	categoryHandler := handlers.NewCategoryHandler(registry)
	fundingHandler := handlers.NewFundingHandler(userRepo, registry, zapLogger)
	conversionHandler := handlers.NewConversionHandler()

	var redisPinger handlers.Pinger
	if redisClient != nil {
		redisPinger = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthChecker := handlers.NewHealthChecker(db, redisPinger, imageService)

	r := mux.NewRouter()

	// In gorilla/mux the middleware registered first is the outermost wrapper
	zapLogger.Info("setting_up_middleware")
	if tracing {
		r.Use(otelmux.Middleware(serviceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	if collector != nil {
		r.Use(collector.Middleware())
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes, not rate limited
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", versionInfo).Methods(http.MethodGet)
	if collector != nil {
		r.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	}

	openAPIHandler, err := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"))
	if err != nil {
		zapLogger.Warn("openapi_document_unavailable", zap.Error(err))
	} else {
		openAPIHandler.RegisterRoutes(r)
	}

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(rateLimitReloader.Middleware())

	categoryHandler.RegisterRoutes(apiRouter.PathPrefix("/categories").Subrouter())
	conversionHandler.RegisterRoutes(apiRouter.PathPrefix("/conversion").Subrouter())

	// Visions are readable by guests; create and like check the account themselves
	visionsRouter := apiRouter.PathPrefix("/visions").Subrouter()
	visionsRouter.Use(middleware.OptionalAuth(oidcProvider, userRepo, zapLogger))
	anonymousHandler.RegisterRoutes(visionsRouter)
	visionHandler.RegisterRoutes(visionsRouter)

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	authHandler.RegisterPublicRoutes(authRouter)
	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(middleware.Auth(oidcProvider, userRepo, zapLogger))
	authHandler.RegisterRoutes(protectedAuthRouter)

	fundingRouter := apiRouter.PathPrefix("/funding").Subrouter()
	fundingRouter.Use(middleware.Auth(oidcProvider, userRepo, zapLogger))
	fundingHandler.RegisterRoutes(fundingRouter)

	// Preflight requests; CORS headers are already set by the middleware
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Image generation can take most of the request timeout
	writeTimeout := cfg.RequestTimeout + 15*time.Second
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go rateLimitReloader.Start(reloadCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
		return
	}

	zapLogger.Info("server_exited")
}

// loadCategories reads the registry file when one is configured and the
// embedded registry otherwise
func loadCategories(path string) (*categories.Registry, error) {
	if path == "" {
		return categories.Default()
	}
	return categories.LoadFile(path)
}

// newImageService builds the image service. Without a usable provider every
// vision gets its category's fallback image.
func newImageService(cfg *config.Config, registry *categories.Registry, m *metrics.Collector, log *zap.Logger) *imagegen.Service {
	generator, err := imagegen.NewProviderRegistry().GetProvider(cfg.ImageProvider, cfg.ImageProviderConfig())
	if err != nil {
		log.Warn("failed_to_create_image_provider_using_fallback_images", zap.Error(err))
		generator = nil
	}
	return imagegen.NewService(generator, registry,
		imagegen.WithLogger(log),
		imagegen.WithMetrics(m),
		imagegen.WithTimeout(time.Duration(cfg.ImageTimeoutSeconds)*time.Second),
		imagegen.WithBreaker(imagegen.DefaultBreakerConfig()),
	)
}

// newAPIRateStore shares API rate counters through redis when it is
// configured, so limits hold across replicas
func newAPIRateStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memorystore.NewStore(), nil
	}
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   "civiz:api",
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return store, nil
}

func versionInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":%q,"timestamp":%q}`, version, time.Now().UTC().Format(time.RFC3339))
}
