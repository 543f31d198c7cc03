package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/config"
	dbRedis "github.com/kailas-cloud/holdex/internal/db/redis"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
	logpkg "github.com/kailas-cloud/holdex/internal/logger"
	"github.com/kailas-cloud/holdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/holdex/internal/repository/budget"
	"github.com/kailas-cloud/holdex/internal/repository/fallback"
	holdingsrepo "github.com/kailas-cloud/holdex/internal/repository/holdings"
	"github.com/kailas-cloud/holdex/internal/repository/tiercache"
	chiTransport "github.com/kailas-cloud/holdex/internal/transport/chi"
	"github.com/kailas-cloud/holdex/internal/usecase/degrade"
	healthuc "github.com/kailas-cloud/holdex/internal/usecase/health"
	holdingsuc "github.com/kailas-cloud/holdex/internal/usecase/holdings"
	"github.com/kailas-cloud/holdex/internal/usecase/lookup"
	usageuc "github.com/kailas-cloud/holdex/internal/usecase/usage"
	"github.com/kailas-cloud/holdex/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting holdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("holdings_path", cfg.Holdings.Path),
		zap.Bool("remote_cache", cfg.RemoteCache.Enabled()),
	)

	metrics.RegisterProtectionMetrics()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	holdingsRepo, err := holdingsrepo.Open(cfg.Holdings.Path)
	if err != nil {
		logger.Fatal("Failed to open holdings store", zap.Error(err))
	}
	defer func() { _ = holdingsRepo.Close() }()

	// Remote cache is optional. Without it the service runs on the fast
	// layer and static snapshots only.
	var remote *dbRedis.Store
	if cfg.RemoteCache.Enabled() {
		remote, err = connectRemote(ctx, cfg.RemoteCache, logger)
		if err != nil {
			logger.Warn("Remote cache unavailable, continuing without it", zap.Error(err))
		}
	}
	if remote != nil {
		defer remote.Close()
	}

	specs, err := cfg.QuotaSpecs()
	if err != nil {
		logger.Fatal("Invalid quotas", zap.Error(err))
	}
	tracker := usageuc.NewTracker(specs, logger)
	if remote != nil && cfg.Usage.Persist {
		tracker.WithStore(ctx, budgetrepo.New(remote, 48*time.Hour, 62*24*time.Hour))
	}
	resolver := usageuc.NewResolver(tracker)

	cacheOpts := []tiercache.Option{
		tiercache.WithRefreshWindow(time.Duration(cfg.Cache.RefreshWindowSec) * time.Second),
		tiercache.WithHighWater(cfg.Cache.HighWater),
		tiercache.WithRemoteTimeout(time.Duration(cfg.RemoteCache.OpTimeoutMs) * time.Millisecond),
		tiercache.WithKeyPrefix(cfg.Cache.KeyPrefix),
	}
	// Pass the remote only when connected: a typed nil *Store would look
	// attached to the cache.
	if remote != nil {
		cacheOpts = append(cacheOpts, tiercache.WithRemote(remote, tracker.Budget(quota.ServiceRemoteCache)))
	}
	cache := tiercache.New(logger, cacheOpts...)

	static := fallback.New(cfg.Fallback.Dir, logger)
	degrader := degrade.New(degrade.WithLimits(cfg.Degrade.ReducedLimit, cfg.Degrade.MinimalLimit))

	holdingsSvc := holdingsuc.NewService(
		holdingsuc.NewLoader(holdingsRepo),
		lookup.Deps{
			Limiter:  tracker,
			Cache:    cache,
			Static:   static,
			Degrader: degrader,
			Resolver: resolver,
			Logger:   logger,
		},
		cfg.Catalogue(),
		lookup.WithStaticWriteThrough(cfg.Fallback.WriteThrough),
	)
	usageSvc := usageuc.New(tracker, resolver, cache)

	// Pass nil interface (not typed nil pointer!) when no remote is wired.
	var remotePinger healthuc.Pinger
	if remote != nil {
		remotePinger = remote
	}
	healthSvc := healthuc.New(holdingsRepo, remotePinger)

	meter := usageuc.NewHostingMeter(tracker, quota.ServiceHosting,
		time.Duration(cfg.Usage.HostingMeterIntervalSec)*time.Second, logger)
	go meter.Run(ctx)

	server := chiTransport.NewServer(holdingsSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// connectRemote dials the remote cache and waits for it to answer.
func connectRemote(ctx context.Context, rc config.RemoteCacheConfig, logger *zap.Logger) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    rc.Addrs,
		Username: rc.Username,
		Password: rc.Password,
		TLS:      rc.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", rc.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(rc.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", rc.Driver, err)
	}
	logger.Info("Connected to remote cache", zap.String("driver", rc.Driver), zap.Strings("addrs", rc.Addrs))
	return store, nil
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
						Error: "Internal server error",
						Code:  chiTransport.CodeInternal,
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

			// One line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("service_level", ww.Header().Get(metrics.HeaderServiceLevel)),
				zap.String("data_source", ww.Header().Get(metrics.HeaderDataSource)),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
