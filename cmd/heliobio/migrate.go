package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/heliobio/internal/infrastructure/db"
)

var errArchiveDisabled = errors.New("persistence is disabled; set persistence.enabled and persistence.dsn or PG_DSN")

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the archive tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Persistence.Enabled {
				return errArchiveDisabled
			}
			mgr, err := db.NewManager(cmd.Context(), cfg.Persistence)
			if err != nil {
				return err
			}
			defer mgr.Close()
			if err := mgr.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "archive schema applied")
			return nil
		},
	}
}
