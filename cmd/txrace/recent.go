package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/txrace/analysis"
	"github.com/ethpandaops/txrace/cache"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent analyses published to redis",
	Long:  "Reads the recent analyses list kept by the dashboard publisher, optionally with the full report of each entry",
	RunE:  runRecent,
}

func init() {
	rootCmd.AddCommand(recentCmd)

	recentCmd.Flags().Int64("limit", 20, "Number of entries to list")
	recentCmd.Flags().Bool("details", false, "Print the stored report of each entry")
}

func runRecent(cmd *cobra.Command, args []string) error {
	cfg, logWriter, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logWriter.Dispose()

	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	redisCache, err := cache.InitRedisCache(ctx, logger, &cfg.Redis)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	limit, _ := cmd.Flags().GetInt64("limit")
	details, _ := cmd.Flags().GetBool("details")

	entries, err := redisCache.GetRecent(ctx, analysis.DashboardRecentKey, limit)
	if err != nil {
		return fmt.Errorf("error reading recent analyses: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, raw := range entries {
		entry := &analysis.RecentEntry{}
		if err := json.Unmarshal([]byte(raw), entry); err != nil {
			logger.WithError(err).Warn("skipping malformed recent entry")
			continue
		}

		fmt.Fprintf(out, "%v  %-13v  %v\n", entry.Time.UTC().Format("2006-01-02 15:04:05"), entry.Outcome, entry.Hash)
		if !details {
			continue
		}

		report := &analysis.Report{}
		if _, err := redisCache.Get(ctx, analysis.ReportKey(entry.Hash), report); err != nil {
			fmt.Fprintf(out, "  report unavailable: %v\n", err)
			continue
		}
		fmt.Fprint(out, analysis.FormatReport(report))
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "no analyses published yet")
	}
	return nil
}
