package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/artistlink/internal/backup"
	"github.com/sydlexius/artistlink/internal/config"
	"github.com/sydlexius/artistlink/internal/database"
)

func newBackupService(cfg *config.Config, db *sql.DB, logger *slog.Logger) *backup.Service {
	return backup.NewService(db, cfg.Database.BackupDir, backup.Policy{Keep: cfg.Database.BackupKeep}, logger)
}

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var listOnly bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the profile database and prune old snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logManager, logger := ctx.logger(cmd.ErrOrStderr())
			defer logManager.Close() //nolint:errcheck

			db, err := database.Open(cmd.Context(), cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close() //nolint:errcheck

			svc := newBackupService(cfg, db, logger)
			if !listOnly {
				if err := database.Migrate(cmd.Context(), db); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				if _, err := svc.Snapshot(cmd.Context()); err != nil {
					return err
				}
				if _, err := svc.Prune(); err != nil {
					return err
				}
			}

			snaps, err := svc.List()
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, snaps)
			}
			rows := make([][]string, 0, len(snaps))
			for _, s := range snaps {
				rows = append(rows, []string{s.Filename, strconv.FormatInt(s.Size, 10), s.CreatedAt.Format("2006-01-02 15:04:05")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Snapshot", "Bytes", "Created (UTC)"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&listOnly, "list", false, "List existing snapshots without writing a new one")
	return cmd
}
