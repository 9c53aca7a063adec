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

	"github.com/papper-ai/vaultd/internal/background"
	"github.com/papper-ai/vaultd/internal/config"
	"github.com/papper-ai/vaultd/internal/crypto"
	dbRedis "github.com/papper-ai/vaultd/internal/db/redis"
	"github.com/papper-ai/vaultd/internal/extract"
	logpkg "github.com/papper-ai/vaultd/internal/logger"
	"github.com/papper-ai/vaultd/internal/metrics"
	blobrepo "github.com/papper-ai/vaultd/internal/repository/blob"
	documentrepo "github.com/papper-ai/vaultd/internal/repository/document"
	vaultrepo "github.com/papper-ai/vaultd/internal/repository/vault"
	chiTransport "github.com/papper-ai/vaultd/internal/transport/chi"
	"github.com/papper-ai/vaultd/internal/transport/kb"
	healthuc "github.com/papper-ai/vaultd/internal/usecase/health"
	ingestuc "github.com/papper-ai/vaultd/internal/usecase/ingest"
	vaultuc "github.com/papper-ai/vaultd/internal/usecase/vault"
	"github.com/papper-ai/vaultd/internal/version"
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

	logger.Info("Starting vaultd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register KB and background-task metrics explicitly (no init())
	metrics.RegisterKBMetrics()

	cipher, err := crypto.New(cfg.Encryption.Secret)
	if err != nil {
		logger.Fatal("Failed to create cipher", zap.Error(err))
	}

	kbClient := kb.NewClient(&kb.Config{
		GraphURL:  cfg.KnowledgeBase.GraphURL,
		VectorURL: cfg.KnowledgeBase.VectorURL,
		Timeout:   time.Duration(cfg.KnowledgeBase.TimeoutSec) * time.Second,
		Logger:    logger,
	})

	runner := background.NewRunner(logger, time.Duration(cfg.KnowledgeBase.TaskTimeoutSec)*time.Second)

	// Repositories
	vaultRepo := vaultrepo.New(store)
	documentRepo := documentrepo.New(store)
	blobRepo := blobrepo.New(store)

	// Use case services
	ingestSvc := ingestuc.NewService(documentRepo, blobRepo, extract.New(), cipher, logger)
	vaultSvc := vaultuc.NewService(vaultRepo, documentRepo, blobRepo, ingestSvc, kbClient, runner, cipher, logger)
	healthSvc := healthuc.NewService(store)

	server := chiTransport.NewServer(vaultSvc, healthSvc, chiTransport.Limits{
		MaxFileSizeBytes: cfg.Ingest.MaxFileSizeBytes,
		MaxFiles:         cfg.Ingest.MaxFiles,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Let in-flight KB reconciliation tasks finish.
	if !runner.Wait(time.Duration(cfg.HTTP.ShutdownSec) * time.Second) {
		logger.Warn("Background tasks still running at shutdown")
	}

	logger.Info("Server stopped gracefully")
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
