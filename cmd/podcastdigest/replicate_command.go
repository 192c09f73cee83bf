package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"podcast-digest/pkg/config"
	"podcast-digest/pkg/replication"
)

func newReplicateCommand(ctx *commandContext) *cobra.Command {
	var (
		target    string
		batchSize int
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Copy the MongoDB transcript archive into a SQL archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			res := newResources(cfg, logger)
			defer res.Close()

			source, err := res.mongoClient(cmd.Context())
			if err != nil {
				return err
			}
			if target == "" {
				target = cfg.Archive.Backend
			}
			if target == config.BackendSQLite && cfg.Archive.SQLitePath == "" {
				cfg.Archive.SQLitePath = filepath.Join("data", "archive.db")
			}
			sqlArchive, err := res.sqlArchive(cmd.Context(), target)
			if err != nil {
				return err
			}

			replicator, err := replication.NewReplicator(replication.Config{
				Source:    source,
				Target:    sqlArchive,
				BatchSize: batchSize,
				Workers:   workers,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			stats, err := replicator.Replicate(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Replicated %d transcripts, %d new\n", stats.Processed, stats.Inserted)
			return err
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "SQL backend to copy into (sqlite, postgres, supabase); defaults to the archive backend")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "Transcripts per insert batch")
	cmd.Flags().IntVar(&workers, "workers", 5, "Parallel insert workers")
	return cmd
}
