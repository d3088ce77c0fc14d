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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/config"
	dbRedis "github.com/Wenjunyun123/Cognimark-Agent/internal/db/redis"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/index"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/keyword"
	logpkg "github.com/Wenjunyun123/Cognimark-Agent/internal/logger"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/metrics"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/registry"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/repository/embcache"
	recordsrepo "github.com/Wenjunyun123/Cognimark-Agent/internal/repository/records"
	snapshotrepo "github.com/Wenjunyun123/Cognimark-Agent/internal/repository/snapshot"
	chiTransport "github.com/Wenjunyun123/Cognimark-Agent/internal/transport/chi"
	openaiEmb "github.com/Wenjunyun123/Cognimark-Agent/internal/transport/openai"
	healthuc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/health"
	indexeruc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/indexer"
	retrievaluc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/retrieval"
	statusuc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/status"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/version"
)

func main() {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cognimark retrieval server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Int("sources", len(cfg.Sources)),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Source registry from config — the one place YAML becomes domain aggregates.
	sourceConfigs, err := buildSources(cfg.Sources)
	if err != nil {
		logger.Fatal("Invalid source configuration", zap.Error(err))
	}
	reg, err := registry.New(sourceConfigs, cfg.Retrieval.FallbackEnabled())
	if err != nil {
		logger.Fatal("Failed to build source registry", zap.Error(err))
	}

	// Embedder chain: OpenAI-compatible provider -> cache
	embedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	idx := index.New()
	snapRepo := snapshotrepo.New(store, cfg.Storage.KeyPrefix)
	recRepo := recordsrepo.New(store, cfg.Storage.KeyPrefix)
	matcher := keyword.New()

	searchSvc := retrievaluc.New(reg, recRepo, matcher, idx, embedder, retrievaluc.Config{
		EnableKeywordSearch: cfg.Retrieval.KeywordSearchEnabled(),
		EnableVectorSearch:  cfg.Retrieval.VectorSearchEnabled(),
		KeywordBoost:        cfg.Retrieval.KeywordBoost,
		OversampleFactor:    cfg.Retrieval.OversampleFactor,
	}, logger)
	indexerSvc := indexeruc.New(reg, recRepo, embedder, idx, snapRepo, logger)
	statusSvc := statusuc.New(reg, idx)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder))

	// Restore persisted collections before taking traffic.
	indexerSvc.Warm(ctx)

	server := chiTransport.NewServer(searchSvc, indexerSvc, statusSvc, healthSvc)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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

// buildSources validates every configured source up front so a bad config
// fails the process at startup, not on the first query.
func buildSources(raw []config.SourceConfig) ([]source.Config, error) {
	out := make([]source.Config, 0, len(raw))
	for _, sc := range raw {
		cfg, err := source.New(
			sc.Name,
			sc.TriggerKeywords,
			sc.KeywordFields,
			sc.IndexFields,
			sc.NumericFields,
			sc.DisplayFields,
			sc.CollectionName,
			sc.DefaultLimit,
		)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", sc.Name, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	return embcache.New(base, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
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
