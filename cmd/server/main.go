package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/ai"
	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/cache"
	"github.com/SAP-F-2025/qpaper-service/internal/config"
	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	"github.com/SAP-F-2025/qpaper-service/internal/handlers"
	"github.com/SAP-F-2025/qpaper-service/internal/observability"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/storage"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/SAP-F-2025/qpaper-service/pkg"
	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout  = 15 * time.Second
	evictionInterval = time.Minute
	tokenTTL         = 24 * time.Hour
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger utils.Logger) error {
	slogger := utils.ToSlogLogger(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.OTelEnabled,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTelURL,
	}, slogger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	repo := postgres.NewRepository(db)
	defer repo.Close()

	cacheService, closeCache := newCache(cfg, slogger)
	defer closeCache()

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("init events: %w", err)
	}
	defer publisher.Close()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	if closer, ok := blobs.(io.Closer); ok {
		defer closer.Close()
	}

	var generator ai.Generator
	if cfg.AI.APIKey != "" {
		generator = ai.NewClient(ai.Config{
			BaseURL:    cfg.AI.BaseURL,
			APIKey:     cfg.AI.APIKey,
			ChatModel:  cfg.AI.ChatModel,
			EmbedModel: cfg.AI.EmbedModel,
			Timeout:    cfg.AI.Timeout,
		})
	} else {
		logger.Warn("AI_API_KEY not set, AI endpoints will report not ready")
	}

	uploads := services.NewUploadService(blobs, cfg.UploadMaxBytes, slogger)
	if cfg.UploadEndpoint != "" {
		uploads = services.NewRemoteUploadService(cfg.UploadEndpoint, cfg.UploadToken, blobs, cfg.UploadMaxBytes, slogger)
		logger.Info("forwarding editor images", "endpoint", cfg.UploadEndpoint)
	}
	editors := editor.NewManager(uploads.Uploader(), cfg.EditorIdleTTL, slogger)
	go editors.RunEviction(ctx, evictionInterval)

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:           repo,
		Cache:          cacheService,
		Publisher:      publisher,
		Generator:      generator,
		Blobs:          blobs,
		Uploads:        uploads,
		Editors:        editors,
		Logger:         slogger,
		DraftTTL:       cfg.DraftTTL,
		UploadMaxBytes: cfg.UploadMaxBytes,
	})

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Services:           serviceManager,
		Verifier:           verifier,
		Logger:             logger,
		CORSOrigins:        cfg.CORSOrigins,
		Tracing:            cfg.OTelEnabled,
		MaxMultipartMemory: cfg.UploadMaxBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "environment", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newCache prefers redis and falls back to process memory when no URL is
// configured or the server is unreachable.
func newCache(cfg *config.Config, logger *slog.Logger) (cache.CacheService, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryCache(), func() {}
	}
	client, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, using memory cache", "error", err)
		return cache.NewMemoryCache(), func() {}
	}
	return cache.NewRedisCache(client, logger, "qpaper:"), func() { _ = client.Close() }
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch strings.ToLower(cfg.BlobDriver) {
	case "gcs":
		return storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.CDNDomain)
	case "", "fs":
		return storage.NewFSStore(cfg.BlobBasePath, strings.TrimRight(cfg.PublicURL, "/")+"/uploads")
	default:
		return nil, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
	}
}

func newVerifier(cfg *config.Config) (auth.Verifier, error) {
	switch strings.ToLower(cfg.AuthProvider) {
	case "casdoor":
		return auth.NewCasdoorVerifier(auth.CasdoorConfig(cfg.Casdoor)), nil
	case "", "jwt":
		if cfg.IsProduction() && cfg.JWTSecret == "supersecretkey" {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		return auth.NewJWTVerifier(cfg.JWTSecret, tokenTTL), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}
}
