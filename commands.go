package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lovepage-app/config"
	"lovepage-app/database"
	"lovepage-app/internal/infra/cache"
	"lovepage-app/internal/infra/logging"
	"lovepage-app/internal/infra/stripe"
	"lovepage-app/internal/service/payments"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lovepage",
		Short:         "Love page builder backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newReconcileCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <session-id>",
		Short: "Re-run payment reconciliation for a checkout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			a, err := buildApp(cfg, log, deps{DB: db, Provider: newProvider(cfg, log)})
			if err != nil {
				return err
			}
			res, err := a.reconciler.Confirm(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("reconcile failed (%s): %w", payments.FailureCode(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slug=%s replayed=%t\n", res.Slug, res.Replayed)
			return nil
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	var pageCache *cache.PageCache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, page cache disabled")
		} else {
			defer client.Close()
			pageCache = cache.NewPageCache(client, cfg.PageCacheTTL, log.With().Str("component", "cache").Logger())
		}
	}

	a, err := buildApp(cfg, log, deps{DB: db, Provider: newProvider(cfg, log), PageCache: pageCache})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.AppEnv).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.RequireDB(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.LogLevel), nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg.DBURL)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newProvider returns nil when Stripe is not configured; paid flows then
// fail with checkout_failed / payment_error instead of crashing.
func newProvider(cfg *config.Config, log zerolog.Logger) payments.Provider {
	client, err := stripe.New(cfg.StripeSecretKey)
	if err != nil {
		log.Warn().Err(err).Msg("stripe disabled")
		return nil
	}
	return client
}
