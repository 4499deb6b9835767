package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gally-search/gally/internal/config"
	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/db/memory"
	dbOpenSearch "github.com/gally-search/gally/internal/db/opensearch"
	dbPostgres "github.com/gally-search/gally/internal/db/postgres"
	dbRedis "github.com/gally-search/gally/internal/db/redis"
	"github.com/gally-search/gally/internal/domain/search/request"
	logpkg "github.com/gally-search/gally/internal/logger"
	"github.com/gally-search/gally/internal/metrics"
	catalogrepo "github.com/gally-search/gally/internal/repository/catalog"
	categoryrepo "github.com/gally-search/gally/internal/repository/category"
	facetconfigrepo "github.com/gally-search/gally/internal/repository/facetconfig"
	fixturerepo "github.com/gally-search/gally/internal/repository/fixture"
	"github.com/gally-search/gally/internal/repository/mappingcache"
	sourcefieldrepo "github.com/gally-search/gally/internal/repository/sourcefield"
	chiTransport "github.com/gally-search/gally/internal/transport/chi"
	"github.com/gally-search/gally/internal/usecase/facet"
	healthuc "github.com/gally-search/gally/internal/usecase/health"
	mappinguc "github.com/gally-search/gally/internal/usecase/mapping"
	searchuc "github.com/gally-search/gally/internal/usecase/search"
	sortorderuc "github.com/gally-search/gally/internal/usecase/sortorder"
	"github.com/gally-search/gally/internal/version"
)

// backends are the stores and engine the services run on.
type backends struct {
	engine     db.Engine
	catalogs   searchuc.CatalogResolver
	categories facet.CategoryStore
	configs    facet.ConfigStore
	mappings   mappinguc.Provider
	checks     map[string]healthuc.Pinger
	closers    []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting gally search API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("engine", cfg.Engine.Kind),
	)

	metrics.RegisterSearchMetrics()

	ctx := context.Background()
	var b *backends
	switch cfg.Engine.Kind {
	case config.EngineMemory:
		b, err = memoryBackends(cfg)
	default:
		b, err = openSearchBackends(ctx, cfg, logger)
	}
	if err != nil {
		logger.Fatal("Failed to create backends", zap.Error(err))
	}
	defer b.close()

	if len(cfg.Redis.Addrs) > 0 {
		if err := withMappingCache(ctx, cfg, b, logger); err != nil {
			logger.Fatal("Failed to create mapping cache", zap.Error(err))
		}
	}

	mappingSvc := mappinguc.New(b.mappings)
	sortSvc := sortorderuc.New(mappingSvc).WithMultiSort(cfg.Search.AllowMultiSort)
	facetSvc := facet.New(mappingSvc, b.configs, b.categories).WithViewMoreSize(cfg.Facet.ViewMoreSize)
	searchSvc := searchuc.New(mappingSvc, b.catalogs, b.categories, sortSvc, facetSvc, b.engine).
		WithIndexPrefix(cfg.Search.IndexPrefix)

	healthSvc := healthuc.New(b.engine)
	for name, p := range b.checks {
		healthSvc.WithCheck(name, p)
	}

	server := chiTransport.NewServer(searchSvc, mappingSvc, sortSvc, facetSvc, healthSvc, logger).
		WithPageLimits(request.Limits{
			DefaultPageSize: cfg.Search.DefaultPageSize,
			MaxPageSize:     cfg.Search.MaxPageSize,
		})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuth(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.NotFound(server.NotFound)
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// memoryBackends serves every store and the engine from the fixtures file.
func memoryBackends(cfg config.Config) (*backends, error) {
	store, err := fixturerepo.Load(cfg.Engine.Fixtures)
	if err != nil {
		return nil, err
	}
	engine, err := memory.LoadFixtures(cfg.Engine.Fixtures)
	if err != nil {
		return nil, err
	}
	return &backends{
		engine:     engine,
		catalogs:   store,
		categories: store,
		configs:    store,
		mappings:   store,
		checks:     map[string]healthuc.Pinger{},
	}, nil
}

// openSearchBackends connects to OpenSearch and the catalog database.
func openSearchBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	client, err := dbOpenSearch.NewClient(dbOpenSearch.Config{
		Addresses:          cfg.OpenSearch.Addresses,
		Username:           cfg.OpenSearch.Username,
		Password:           cfg.OpenSearch.Password,
		MaxRetries:         cfg.OpenSearch.MaxRetries,
		InsecureSkipVerify: cfg.OpenSearch.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}
	if err := client.WaitForReady(ctx, time.Duration(cfg.OpenSearch.ReadinessTimeout)*time.Second); err != nil {
		return nil, err
	}
	logger.Info("Connected to opensearch", zap.Strings("addresses", cfg.OpenSearch.Addresses))

	pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxConns:     cfg.Postgres.MaxConns,
		QueryTimeout: cfg.Postgres.QueryTimeout(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to postgres")

	timeout := pool.QueryTimeout()
	return &backends{
		engine:     client,
		catalogs:   catalogrepo.New(pool, timeout),
		categories: categoryrepo.New(pool, timeout),
		configs:    facetconfigrepo.New(pool, timeout),
		mappings:   sourcefieldrepo.New(pool, timeout),
		checks:     map[string]healthuc.Pinger{"postgres": pool},
		closers:    []func(){pool.Close},
	}, nil
}

// withMappingCache puts the Redis mapping cache in front of the mapping provider.
func withMappingCache(ctx context.Context, cfg config.Config, b *backends, logger *zap.Logger) error {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		return err
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return err
	}
	logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))

	b.mappings = mappingcache.New(b.mappings, store, metrics.MappingCacheTotal, logger).
		WithTTL(cfg.Redis.MappingCacheTTL())
	b.checks["redis"] = store
	b.closers = append(b.closers, store.Close)
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.String("entity_type", chi.URLParamFromCtx(r.Context(), "entityType")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
