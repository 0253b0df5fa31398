package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpDelivery "github.com/compario/backend/internal/delivery/http"
	"github.com/compario/backend/internal/infrastructure/cache"
	"github.com/compario/backend/internal/infrastructure/persistence"
	"github.com/compario/backend/internal/infrastructure/token"
	"github.com/compario/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", httpDelivery.Version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Str("database", cfg.Database.Driver).
		Msg("starting compario backend")

	// Initialize infrastructure dependencies
	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer store.Close()

	db, err := persistence.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer persistence.Close(db)

	if cfg.Database.AutoMigrate {
		if err := persistence.Migrate(ctx, db, cfg.Database.Driver, logger); err != nil {
			return err
		}
	}

	tokens, err := token.NewManager(token.Config{
		Secret:     cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	// Initialize usecase layer
	authService := usecase.NewAuthService(
		persistence.NewUserRepository(db),
		tokens,
		store,
		usecase.AuthServiceConfig{},
		logger,
	)
	historyService := usecase.NewHistoryService(persistence.NewHistoryRepository(db), logger)
	visionService := newVisionService(cfg, store, logger)

	handler := httpDelivery.NewHandler(
		visionService,
		historyService,
		authService,
		httpDelivery.HandlerConfig{MaxUploadBytes: cfg.Vision.MaxUploadBytes},
		logger,
	)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
