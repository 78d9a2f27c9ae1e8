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

	"github.com/contextforge/contextforge/internal/answer"
	"github.com/contextforge/contextforge/internal/chunker"
	"github.com/contextforge/contextforge/internal/config"
	dbRedis "github.com/contextforge/contextforge/internal/db/redis"
	"github.com/contextforge/contextforge/internal/extract"
	"github.com/contextforge/contextforge/internal/fetch"
	logpkg "github.com/contextforge/contextforge/internal/logger"
	"github.com/contextforge/contextforge/internal/metrics"
	indexrepo "github.com/contextforge/contextforge/internal/repository/index"
	"github.com/contextforge/contextforge/internal/segment"
	chiTransport "github.com/contextforge/contextforge/internal/transport/chi"
	openaiTransport "github.com/contextforge/contextforge/internal/transport/openai"
	healthuc "github.com/contextforge/contextforge/internal/usecase/health"
	ingestuc "github.com/contextforge/contextforge/internal/usecase/ingest"
	queryuc "github.com/contextforge/contextforge/internal/usecase/query"
	"github.com/contextforge/contextforge/internal/version"
)

func main() {
	// Local development convenience; missing .env is fine.
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

	logger.Info("Starting contextforge API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
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

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Document and query embedders share the provider but carry different
	// instruction prefixes.
	docEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:      cfg.Embedding.APIKey,
		BaseURL:     cfg.Embedding.BaseURL,
		Model:       cfg.Embedding.Model,
		Dimensions:  cfg.Embedding.Dimensions,
		Instruction: cfg.Embedding.DocumentInstruction,
		Logger:      logger,
	})
	queryEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:      cfg.Embedding.APIKey,
		BaseURL:     cfg.Embedding.BaseURL,
		Model:       cfg.Embedding.Model,
		Dimensions:  cfg.Embedding.Dimensions,
		Instruction: cfg.Embedding.QueryInstruction,
		Logger:      logger,
	})
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	rewriter := openaiTransport.NewRewriter(&openaiTransport.RewriterConfig{
		APIKey:    cfg.Rewrite.APIKey,
		BaseURL:   cfg.Rewrite.BaseURL,
		Model:     cfg.Rewrite.Model,
		MaxTokens: cfg.Rewrite.MaxTokens,
		Logger:    logger,
	})

	repo := indexrepo.New(store, indexrepo.Config{
		KeyPrefix:       cfg.Storage.KeyPrefix,
		Dimensions:      cfg.Embedding.Dimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := repo.Init(ctx); err != nil {
		logger.Fatal("Failed to initialize chunk index", zap.Error(err))
	}

	segCfg := segment.Config{
		MaxStructuralPages: cfg.Segmenter.MaxStructuralPages,
		MinParagraphChars:  cfg.Segmenter.MinParagraphChars,
		WindowWords:        cfg.Segmenter.WindowWords,
		WindowOverlap:      cfg.Segmenter.WindowOverlap,
	}

	chunkr := chunker.New(docEmbedder, chunker.Config{
		MinTokens:    cfg.Chunker.MinTokens,
		MaxTokens:    cfg.Chunker.MaxTokens,
		SimThreshold: cfg.Chunker.SimThreshold,
		BatchSize:    cfg.Chunker.BatchSize,
	})

	ingestSvc := ingestuc.New(fetch.New(), extract.New(), chunkr, docEmbedder, repo, segCfg)
	querySvc := queryuc.New(queryEmbedder, repo, rewriter, queryuc.Config{
		TopK:    cfg.Retrieval.TopK,
		RerankK: cfg.Retrieval.RerankK,
		FinalK:  cfg.Retrieval.FinalK,
		Assemble: answer.Config{
			MaxChunks:     cfg.Retrieval.MaxChunks,
			MinScoreRatio: cfg.Retrieval.MinScoreRatio,
		},
	})

	healthSvc := healthuc.New(store, docEmbedder)

	server := chiTransport.NewServer(ingestSvc, querySvc, healthSvc, logger)

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
