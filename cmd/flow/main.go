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

	"github.com/ViewWay/flow-sub000/internal/config"
	"github.com/ViewWay/flow-sub000/internal/content"
	"github.com/ViewWay/flow-sub000/internal/extension"
	"github.com/ViewWay/flow-sub000/internal/index"
	logpkg "github.com/ViewWay/flow-sub000/internal/logger"
	"github.com/ViewWay/flow-sub000/internal/metrics"
	"github.com/ViewWay/flow-sub000/internal/search"
	"github.com/ViewWay/flow-sub000/internal/store"
	chiTransport "github.com/ViewWay/flow-sub000/internal/transport/chi"
	"github.com/ViewWay/flow-sub000/internal/version"
)

// rawContentAnnotation carries the rendered body of a resource for
// full-text projection.
const rawContentAnnotation = "content.flow.dev/raw-content"

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

	logger.Info("Starting flow API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("database_path", cfg.Storage.DatabasePath),
		zap.Bool("search_enabled", cfg.Search.Enabled),
	)

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	resources, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open resource store", zap.Error(err))
	}
	defer resources.Close()

	// Full-text engine, optionally behind the result cache
	var fts search.Engine
	if cfg.Search.Enabled {
		bleveEngine, err := search.NewBleveEngine(cfg.Storage.SearchIndexPath, logger)
		if err != nil {
			logger.Fatal("Failed to open full-text index", zap.Error(err))
		}
		fts = bleveEngine
		if cfg.Search.CacheEnabled {
			fts = search.NewCachedEngine(
				bleveEngine,
				cfg.Search.CacheSize,
				time.Duration(cfg.Search.CacheTTLSec)*time.Second,
				logger,
			)
		}
		defer fts.Close()
	}

	// Query engine — composition root
	engine := index.NewEngine(
		index.WithLogger(logger),
		index.WithFieldMapping(content.DefaultFieldMapping()),
		index.WithSearcher(fts),
	)

	client := store.NewClient(resources, engine, fts, logger)
	if err := registerContentKinds(client); err != nil {
		logger.Fatal("Failed to register content kinds", zap.Error(err))
	}

	// The query index is in-memory: rebuild it from the store at boot.
	ctx := context.Background()
	if err := client.Rebuild(ctx); err != nil {
		logger.Fatal("Failed to rebuild indexes", zap.Error(err))
	}

	server := chiTransport.NewServer(client, fts, chiTransport.Options{
		DefaultPageSize:    cfg.List.DefaultPageSize,
		MaxPageSize:        cfg.List.MaxPageSize,
		DefaultSearchLimit: cfg.Search.DefaultLimit,
		MaxSearchLimit:     cfg.Search.MaxLimit,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

	logger.Info("Server stopped gracefully")
}

// registerContentKinds wires the built-in kinds into the client: index
// specs, decoders, and full-text projections.
func registerContentKinds(client *store.Client) error {
	if err := client.RegisterKind(store.Kind{
		Handle:  index.HandleOf[*content.Post](),
		KindTag: content.PostKindTag,
		Specs:   content.PostIndexSpecs(),
		Decode: func(raw []byte) (extension.Extension, error) {
			var post content.Post
			if err := json.Unmarshal(raw, &post); err != nil {
				return nil, fmt.Errorf("decode post: %w", err)
			}
			return &post, nil
		},
		Project: projectWithBody,
	}); err != nil {
		return err
	}
	return client.RegisterKind(store.Kind{
		Handle:  index.HandleOf[*content.SinglePage](),
		KindTag: content.SinglePageKindTag,
		Specs:   content.SinglePageIndexSpecs(),
		Decode: func(raw []byte) (extension.Extension, error) {
			var page content.SinglePage
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("decode single page: %w", err)
			}
			return &page, nil
		},
		Project: projectWithBody,
	})
}

func projectWithBody(ext extension.Extension) (search.Document, bool) {
	body := ext.Metadata().Annotations[rawContentAnnotation]
	return content.BuildDocument(ext, body)
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

			// Set X-Request-ID in response header
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
