package main

import (
	"github.com/spf13/cobra"
	"github.com/trogers1052/crop-price-monitor/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	},
}
