package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"hrms/internal/platform/legacy"
)

func newImportLegacyCmd() *cobra.Command {
	var dsn string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import employees, holidays, leaves and attendance from the legacy MySQL database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if dsn == "" {
				dsn = cfg.LegacyMySQLDSN
			}
			if dsn == "" {
				return errors.New("--dsn or LEGACY_MYSQL_DSN is required")
			}

			source, err := legacy.Open(dsn)
			if err != nil {
				return err
			}
			if sqlDB, err := source.DB(); err == nil {
				defer sqlDB.Close()
			}
			slog.Info("legacy import starting", "source", legacy.RedactDSN(dsn), "dryRun", dryRun)

			report, err := legacy.NewImporter(source, pool, dryRun).Run(cmd.Context())
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintln(out, "dry run: nothing was written")
			}
			fmt.Fprintf(out, "employees   %s\n", report.Employees)
			fmt.Fprintf(out, "holidays    %s\n", report.Holidays)
			fmt.Fprintf(out, "leaves      %s\n", report.Leaves)
			fmt.Fprintf(out, "attendance  %s\n", report.Attendance)
			return err
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "legacy MySQL DSN (default LEGACY_MYSQL_DSN)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read and map rows without writing")
	return cmd
}
