package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"xrpals-lps/internal/db"
	"xrpals-lps/internal/server"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	logger := newLogger()

	if err := server.ValidateAllConfiguration(os.Getenv); err != nil {
		logger.Error("invalid_configuration", nil, err)
		os.Exit(1)
	}
	server.WarnOnOptionalMissingConfig(logger, os.Getenv)

	if err := run(logger); err != nil {
		logger.Error("fatal", nil, err)
		os.Exit(1)
	}
}

func run(logger *server.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logger = logger

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Upload ledger
	if dsn := getenvDefault("DATABASE_URL", ""); dsn != "" {
		dbConn, err := server.OpenDB(dsn)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer func() { _ = dbConn.Close() }()

		logger.Info("running_migrations", nil)
		if err := db.RunMigrations(dbConn); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		logger.Info("migrations_complete", nil)
		cfg.Ledger = server.NewPostgresLedger(dbConn)
	}

	// Artifact mirror
	mirrorCfg := server.MirrorConfig{
		Endpoint:  getenvDefault("XRP_S3_ENDPOINT", ""),
		AccessKey: getenvDefault("XRP_S3_ACCESS_KEY", ""),
		SecretKey: getenvDefault("XRP_S3_SECRET_KEY", ""),
		Bucket:    getenvDefault("XRP_BUCKET", ""),
		Prefix:    getenvDefault("XRP_S3_PREFIX", ""),
	}
	if mirrorCfg.Enabled() {
		mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mirror, err := server.NewMinioMirror(mctx, mirrorCfg)
		cancel()
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		breaker := server.NewCircuitBreaker(5, 30*time.Second, nil, logger)
		cfg.Mirror = server.GuardMirror(mirror, breaker)
		logger.Info("mirror_enabled", map[string]interface{}{
			"bucket": mirrorCfg.Bucket,
			"prefix": mirrorCfg.Prefix,
		})
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	go srv.StartRetention(ctx)

	// Serve in the background so we can listen for OS signals.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting", map[string]interface{}{
			"version": cfg.Build.Version,
			"commit":  cfg.Build.Commit,
		})
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting_down", map[string]interface{}{"signal": sig.String()})
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("shutdown_complete", nil)
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}

// loadConfig builds the server config from the environment. Values have
// already passed ValidateAllConfiguration.
func loadConfig() (server.Config, error) {
	maxBytes, err := strconv.ParseInt(getenvDefault("XRP_MAX_UPLOAD_BYTES", strconv.Itoa(server.DefaultMaxUploadBytes)), 10, 64)
	if err != nil {
		return server.Config{}, fmt.Errorf("XRP_MAX_UPLOAD_BYTES: %w", err)
	}
	naming, err := server.ParseNaming(getenvDefault("XRP_NAMING", ""))
	if err != nil {
		return server.Config{}, err
	}
	retention, err := time.ParseDuration(getenvDefault("XRP_RETENTION", "0s"))
	if err != nil {
		return server.Config{}, fmt.Errorf("XRP_RETENTION: %w", err)
	}
	interval, err := time.ParseDuration(getenvDefault("XRP_RETENTION_INTERVAL", "1h"))
	if err != nil {
		return server.Config{}, fmt.Errorf("XRP_RETENTION_INTERVAL: %w", err)
	}

	return server.Config{
		Addr:              getenvDefault("XRP_ADDR", server.DefaultAddr),
		AdminAddr:         getenvDefault("XRP_ADMIN_ADDR", ""),
		UploadDir:         getenvDefault("XRP_UPLOAD_DIR", server.DefaultUploadDir),
		MaxUploadBytes:    maxBytes,
		Naming:            naming,
		Retention:         retention,
		RetentionInterval: interval,
		Build: server.BuildInfo{
			Version: getenvDefault("XRP_VERSION", "dev"),
			Commit:  getenvDefault("XRP_COMMIT", "unknown"),
		},
	}, nil
}

// newLogger picks JSON output in production or when XRP_LOG_FORMAT=json.
func newLogger() *server.Logger {
	level, ok := server.ParseLogLevel(getenvDefault("XRP_LOG_LEVEL", "info"))
	if !ok {
		level = server.LogLevelInfo
	}
	format := getenvDefault("XRP_LOG_FORMAT", "")
	enableJSON := format == "json" || (format == "" && os.Getenv("XRP_ENV") == "production")
	return server.NewLogger(os.Stdout, level, enableJSON)
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

var _ server.Ledger = (*server.PostgresLedger)(nil)
