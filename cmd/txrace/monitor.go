package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/txrace/monitor"
	"github.com/ethpandaops/txrace/utils"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Analyze failed submissions from the bot's results file",
	Long:  "Follows the bot's results file, checks each submission's receipt and searches the competitor for reverted or not included transactions",
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().String("results", "", "Results file (overrides monitor.resultsFile)")
	monitorCmd.Flags().Bool("once", false, "Process the whole file once and exit")
	monitorCmd.Flags().Bool("from-start", false, "Process existing entries before following the file")
	monitorCmd.Flags().Int("last", 0, "Analyze the last N entries and exit")
	monitorCmd.Flags().Duration("interval", 0, "Check interval (overrides monitor.interval)")
	monitorCmd.Flags().Bool("quiet", false, "Do not print reports to stdout")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	svc, err := initServices(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	if err := svc.startMetrics(); err != nil {
		return err
	}

	monitorCfg := monitor.Config{
		ResultsFile: svc.cfg.Monitor.ResultsFile,
		Interval:    svc.cfg.Monitor.Interval,
		MinAge:      svc.cfg.Monitor.MinAge,

		ReceiptAttempts:   svc.cfg.Monitor.ReceiptAttempts,
		ReceiptRetryDelay: svc.cfg.Monitor.ReceiptRetryDelay,
	}
	if results, _ := cmd.Flags().GetString("results"); results != "" {
		monitorCfg.ResultsFile = results
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		monitorCfg.Interval = interval
	}
	if monitorCfg.ResultsFile == "" {
		return fmt.Errorf("no results file configured")
	}

	var output io.Writer = os.Stdout
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		output = nil
	}
	analyzer := svc.newAnalyzer(output)

	watcher := monitor.NewWatcher(svc.logger.WithField("module", "monitor"), monitorCfg, svc.client, analyzer, svc.metrics)

	svc.logger.WithFields(logrus.Fields{
		"results":  monitorCfg.ResultsFile,
		"endpoint": svc.cfg.Execution.Endpoint,
		"log":      svc.cfg.Analysis.LogFile,
	}).Info("submission monitor started")

	last, _ := cmd.Flags().GetInt("last")
	once, _ := cmd.Flags().GetBool("once")
	fromStart, _ := cmd.Flags().GetBool("from-start")

	switch {
	case last > 0:
		return watcher.RunLast(ctx, last)
	case once:
		return watcher.RunOnce(ctx)
	case fromStart:
		return watcher.RunFromStart(ctx)
	default:
		return watcher.Run(ctx)
	}
}
