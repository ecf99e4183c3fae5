package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/influencer-desk/internal/config"
	"github.com/ashureev/influencer-desk/internal/store"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed <influencers.csv>",
		Short: "Append an influencer CSV export to the local table",
		Long: `Seed reads a CSV export of the influencer sheet and appends its rows to
the influencers table. The header row names the columns; common aliases such
as "username" or "followers count" are understood and unknown columns are
ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dbPath = cfg.DBPath
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			rows, err := store.ReadCSV(f)
			if err != nil {
				return err
			}

			repo, err := store.NewSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer repo.Close()

			n, err := repo.InsertRecords(cmd.Context(), rows)
			if err != nil {
				return fmt.Errorf("insert records: %w", err)
			}
			slog.Info("Influencers imported", "file", args[0], "rows", n, "db", dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path (defaults to DB_PATH)")
	return cmd
}
