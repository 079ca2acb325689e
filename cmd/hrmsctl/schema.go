package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hrms/internal/platform/db"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Schema maintenance",
	}
	cmd.AddCommand(newEnsureColumnsCmd(), newDiagnoseCmd())
	return cmd
}

func newEnsureColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-columns",
		Short: "Add columns missing from databases created by older releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			results, err := db.EnsureColumns(cmd.Context(), pool, db.ColumnPatches)
			out := cmd.OutOrStdout()
			added := 0
			for _, res := range results {
				state := "skipped"
				if res.Added {
					state = "added"
					added++
				}
				fmt.Fprintf(out, "%-8s %s.%s\n", state, res.Table, res.Column)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d added, %d already present\n", added, len(results)-added)
			return nil
		},
	}
}

func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Report row counts, missing columns, orphaned rows and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			diag, err := db.Diagnose(cmd.Context(), pool, cfg.MigrationsDir)
			if err != nil {
				return err
			}
			printDiagnosis(cmd, diag)
			if !diag.Healthy() {
				return fmt.Errorf("diagnostics found problems")
			}
			return nil
		},
	}
}

func printDiagnosis(cmd *cobra.Command, diag db.Diagnosis) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()

	tables := make([]string, 0, len(diag.RowCounts))
	for table := range diag.RowCounts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, table := range tables {
		fmt.Fprintf(tw, "%s\t%d\n", table, diag.RowCounts[table])
	}

	fmt.Fprintln(tw, "\nORPHAN CHECK\tCOUNT")
	for _, o := range diag.Orphans {
		fmt.Fprintf(tw, "%s\t%d\n", o.Name, o.Count)
	}

	fmt.Fprintln(tw, "\nMISSING COLUMNS\t")
	if len(diag.MissingColumns) == 0 {
		fmt.Fprintln(tw, "none\t")
	}
	for _, col := range diag.MissingColumns {
		fmt.Fprintf(tw, "%s\t\n", col)
	}

	fmt.Fprintln(tw, "\nPENDING MIGRATIONS\t")
	if len(diag.PendingMigrations) == 0 {
		fmt.Fprintln(tw, "none\t")
	}
	for _, version := range diag.PendingMigrations {
		fmt.Fprintf(tw, "%s\t\n", version)
	}
}
