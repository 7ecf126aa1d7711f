package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/txrace/analysis"
	"github.com/ethpandaops/txrace/utils"
)

var scanCmd = &cobra.Command{
	Use:   "scan <tx-hash>",
	Short: "Find the competitor that beat a transaction",
	Long:  "Re-simulates the transaction at every earlier position of its block, from its own index down to 0, and reports the first position where value sent to the target exceeds the transaction's value",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Uint64("block", 0, "Block to scan when the transaction was not included")
	scanCmd.Flags().Int64("batch", -1, "Batch (flashblock) the transaction targeted, -1 if unknown")
}

func runScan(cmd *cobra.Command, args []string) error {
	if _, err := analysis.NormalizeHash(args[0]); err != nil {
		return err
	}

	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	svc, err := initServices(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	req := &analysis.Request{
		Hash: args[0],
	}
	if cmd.Flags().Changed("block") {
		block, _ := cmd.Flags().GetUint64("block")
		req.BlockHint = &block
	}
	if batch, _ := cmd.Flags().GetInt64("batch"); batch >= 0 {
		batchIdx := uint64(batch)
		req.BatchHint = &batchIdx
	}

	report, err := svc.newAnalyzer(os.Stdout).Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis %v: %w", report.Outcome, err)
	}
	return nil
}
