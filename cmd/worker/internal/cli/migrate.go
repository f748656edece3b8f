package cli

import (
	"github.com/spf13/cobra"

	"github.com/abdallahh166/TowerOps-sub002/internal/persistence"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down>",
	Short:     "Apply or roll back the embedded schema migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{persistence.MigrateUp, persistence.MigrateDown},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return persistence.RunMigrations(cfg.Postgres.DSN, args[0], logger)
	},
}
