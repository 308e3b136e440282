package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

var (
	migrateRollback bool
	migrateStatus   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Apply the embedded goose migrations. Use --rollback to undo the latest one or --status to list them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		switch {
		case migrateRollback && migrateStatus:
			return fmt.Errorf("--rollback and --status are exclusive")
		case migrateRollback:
			command = "down"
		case migrateStatus:
			command = "status"
		}
		return runMigrations(cmd.Context(), command)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Roll back the most recent migration")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Print migration status")
}

func runMigrations(ctx context.Context, command string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), command, logger); err != nil {
		logger.Error("migration failed", zap.String("command", command), zap.Error(err))
		return err
	}
	logger.Info("migrations finished", zap.String("command", command))
	return nil
}
