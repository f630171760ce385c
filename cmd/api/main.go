//	@title			Content Archiver API
//	@version		1.0
//	@description	Gated relay that copies remote content into an S3-compatible bucket.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Shared secret or HS256 JWT. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/archiver/service/internal/archive"
	"github.com/archiver/service/internal/auth"
	"github.com/archiver/service/internal/config"
	"github.com/archiver/service/internal/db"
	"github.com/archiver/service/internal/fetch"
	"github.com/archiver/service/internal/location"
	"github.com/archiver/service/internal/logging"
	"github.com/archiver/service/internal/metrics"
	"github.com/archiver/service/internal/server"
	"github.com/archiver/service/internal/storage"
	"github.com/archiver/service/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger level is known yet.
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	traceShutdown, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	}, log)
	if err != nil {
		log.Fatal("tracing init failed", zap.Error(err))
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		log.Fatal("object storage init failed", zap.Error(err))
	}

	m := metrics.New()
	opts := []archive.Option{archive.WithMetrics(m)}

	if cfg.DatabaseURL != "" {
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		opts = append(opts, archive.WithLedger(archive.NewRepository(pool)))
		log.Info("archive ledger enabled")
	}

	// Wire dependencies: fetcher + storage -> service -> handler
	svc := archive.NewService(fetch.New(nil), store, location.New(cfg.PublicURL), log, opts...)
	router := server.NewRouter(server.Deps{
		Archive:  archive.NewHandler(svc, log),
		Verifier: newVerifier(cfg),
		Metrics:  m,
		Tracer:   otel.GetTracerProvider(),
		Log:      log,
	})

	// No WriteTimeout: a response is only written once the relay has
	// finished, which may take as long as the source needs.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("bucket", cfg.BucketName),
			zap.String("driver", cfg.StorageDriver),
			zap.String("auth", cfg.AuthMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down gracefully", zap.Duration("timeout", cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	if err := traceShutdown(shutdownCtx); err != nil {
		log.Warn("trace flush failed", zap.Error(err))
	}

	log.Info("server stopped")
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMinio:
		return storage.NewMinio(cfg.Endpoint, cfg.Region, cfg.AccessKey, cfg.SecretKey, cfg.BucketName)
	default:
		return storage.NewS3(ctx, storage.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			Bucket:    cfg.BucketName,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			PathStyle: cfg.PathStyle,
		})
	}
}

func newVerifier(cfg *config.Config) auth.Verifier {
	if cfg.AuthMode == config.AuthJWT {
		return auth.NewJWTVerifier(cfg.BearerToken)
	}
	return auth.NewStaticVerifier(cfg.BearerToken)
}
