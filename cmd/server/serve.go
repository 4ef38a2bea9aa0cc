package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/rueidis"
	"github.com/spf13/cobra"
	"github.com/yukikurage/role-task-api/internal/auth"
	"github.com/yukikurage/role-task-api/internal/config"
	"github.com/yukikurage/role-task-api/internal/database"
	"github.com/yukikurage/role-task-api/internal/handlers"
	"github.com/yukikurage/role-task-api/internal/repository"
	"github.com/yukikurage/role-task-api/internal/services"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Migrates the schema, seeds the default roles and serves the API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	roles := services.NewRoleRegistry(repository.NewRoleRepository(db))
	if err := roles.EnsureDefaultRoles(ctx); err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	revoker, closeRevoker, err := newRevoker(cfg)
	if err != nil {
		return err
	}
	defer closeRevoker()

	router := handlers.NewRouter(handlers.RouterConfig{
		DB:                 db,
		Identity:           services.NewIdentityService(userRepo, tokens, revoker),
		Auth:               services.NewAuthService(userRepo, roles, tokens, revoker, cfg.RegistrationVerifier()),
		Users:              services.NewUserService(userRepo, roles),
		Tasks:              services.NewTaskService(taskRepo, userRepo),
		Logger:             slog.Default(),
		CORSOrigins:        cfg.CORSOrigins,
		CORSOriginSuffixes: cfg.CORSOriginSuffixes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		slog.Info("HTTP server shut down gracefully")
		return nil
	})

	return g.Wait()
}

// newRevoker uses Redis when an address is configured, so logouts are
// shared between instances.
func newRevoker(cfg *config.Config) (auth.Revoker, func(), error) {
	if cfg.RedisAddr == "" {
		slog.Warn("REDIS_ADDR not set, revoked tokens are kept in memory")
		return auth.NewMemoryRevoker(), func() {}, nil
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return auth.NewRedisRevoker(client), client.Close, nil
}
