package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/txrace/db"
)

var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Apply the log store schema",
	Long:  "Creates the transaction_logs table in the configured sqlite or pgsql database",
	RunE:  runInitDb,
}

func init() {
	rootCmd.AddCommand(initDbCmd)

	initDbCmd.Flags().Int64("schema-version", -2, "Schema version to migrate to (-2 = latest, -1 = next)")
}

func runInitDb(cmd *cobra.Command, args []string) error {
	cfg, logWriter, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logWriter.Dispose()

	store, err := db.NewStore(logger, &cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	version, _ := cmd.Flags().GetInt64("schema-version")
	if err := store.ApplyEmbeddedDbSchema(version); err != nil {
		return fmt.Errorf("error applying db schema: %w", err)
	}

	logger.Infof("%v schema applied", store.Engine())
	return nil
}
