package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/artistlink/internal/api"
	"github.com/sydlexius/artistlink/internal/database"
	"github.com/sydlexius/artistlink/internal/metrics"
	"github.com/sydlexius/artistlink/internal/profile"
	"github.com/sydlexius/artistlink/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}
}

func runServe(cmd *cobra.Command, cc *commandContext) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}

	logManager, logger := cc.logger(cmd.OutOrStdout())
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("starting artistlink",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("logging", cfg.Logging.String()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsManager := metrics.NewManager()
	svc, err := cc.service(logger, metricsManager)
	if err != nil {
		return err
	}
	logger.Info("platforms enabled", slog.Any("platforms", svc.Platforms()))

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	if cfg.Database.BackupInterval > 0 {
		go newBackupService(cfg, db, logger).Run(ctx, cfg.Database.BackupInterval)
	}

	router := api.NewRouter(api.RouterDeps{
		Resolver:   svc,
		Profiles:   profile.NewSQLStore(db),
		Metrics:    metricsManager,
		LogManager: logManager,
		Logger:     logger,
		BasePath:   cfg.Server.BasePath,
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Cross-platform search waits on the matcher.
		WriteTimeout: cfg.Resolve.MatcherTimeout + 2*cfg.Resolve.AdapterTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
