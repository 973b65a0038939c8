package main

import (
	"github.com/spf13/cobra"

	"github.com/kjannette/trahn-tracker/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down>",
	Short:     "Applies or rolls back the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := db.Migrate(cfg.DSN(), args[0]); err != nil {
			return err
		}
		log.Info().Str("direction", args[0]).Msg("migration complete")
		return nil
	},
}
