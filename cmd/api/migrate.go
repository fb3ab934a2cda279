package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/repair-desk/internal/config"
	"github.com/spec-kit/repair-desk/internal/observability"
	"github.com/spec-kit/repair-desk/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), statusOnly)
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "print migration status without applying")
	return cmd
}

func runMigrate(ctx context.Context, statusOnly bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required to run migrations")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if statusOnly {
		return persistence.MigrationStatus(ctx, pg.PoolHandle())
	}
	return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
}
