package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/txrace/analysis"
	"github.com/ethpandaops/txrace/simulation"
	"github.com/ethpandaops/txrace/utils"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Simulate a call at a single block position",
	Long:  "Simulates one call at {block, index} and prints how much value it sends to the target address",
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().String("tx", "", "Take sender, recipient, calldata, value and position from this transaction")
	probeCmd.Flags().Uint64("block", 0, "Block number")
	probeCmd.Flags().Uint64("index", 0, "Transaction index inside the block")
	probeCmd.Flags().String("from", "", "Sender address")
	probeCmd.Flags().String("to", "", "Recipient address")
	probeCmd.Flags().String("data", "0x", "Calldata")
	probeCmd.Flags().String("value", "0", "Call value in wei (decimal or 0x hex)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	svc, err := initServices(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	call, pos, err := probeTarget(ctx, cmd, svc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tracing call at block %v, index %v\n", pos.Block, pos.Index)
	fmt.Fprintf(out, "From: %v\n", call.From.Hex())
	fmt.Fprintf(out, "To: %v\n", call.To.Hex())
	fmt.Fprintf(out, "Calldata: %v\n", hexutil.Encode(call.Data))
	fmt.Fprintf(out, "Value: %v\n", utils.FormatWeiETH(call.Value))

	result, err := svc.prober.Probe(ctx, call, *pos)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal transferred to %v: %v\n", svc.cfg.Scan.TargetAddress, utils.FormatWeiETH(result.Transferred))
	if result.RootError != "" {
		fmt.Fprintf(out, "Call error: %v\n", result.RootError)
	}
	if result.Transferred.Gt(call.Value) {
		excess := new(uint256.Int).Sub(result.Transferred, call.Value)
		fmt.Fprintf(out, "Transferred amount exceeds call value by %v\n", utils.FormatWeiETH(excess))
	} else {
		fmt.Fprintln(out, "Transferred amount does not exceed call value")
	}
	return nil
}

func probeTarget(ctx context.Context, cmd *cobra.Command, svc *services) (*simulation.SyntheticCall, *simulation.BlockPosition, error) {
	flags := cmd.Flags()
	call := &simulation.SyntheticCall{
		GasLimit: svc.cfg.Scan.GasLimit,
		Value:    new(uint256.Int),
	}
	pos := &simulation.BlockPosition{}

	if txArg, _ := flags.GetString("tx"); txArg != "" {
		txHash, err := analysis.NormalizeHash(txArg)
		if err != nil {
			return nil, nil, err
		}
		tx, err := svc.resolver.Lookup(ctx, txHash)
		if err != nil {
			return nil, nil, err
		}
		if tx.To == nil {
			return nil, nil, fmt.Errorf("%w: %v has no recipient", analysis.ErrMissingField, txHash.Hex())
		}

		call.From = tx.From
		call.To = *tx.To
		call.Data = tx.Input
		call.Value.Set(tx.Value)
		if tx.BlockNumber != nil && tx.Index != nil {
			pos.Block = *tx.BlockNumber
			pos.Index = *tx.Index
		}
	} else {
		from, _ := flags.GetString("from")
		to, _ := flags.GetString("to")
		if !common.IsHexAddress(from) || !common.IsHexAddress(to) {
			return nil, nil, fmt.Errorf("--from and --to must be addresses when --tx is not set")
		}
		call.From = common.HexToAddress(from)
		call.To = common.HexToAddress(to)

		data, _ := flags.GetString("data")
		input, err := hexutil.Decode(data)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --data: %w", err)
		}
		call.Data = input

		value, _ := flags.GetString("value")
		if err := call.Value.SetFromDecimal(value); err != nil {
			if err := call.Value.SetFromHex(value); err != nil {
				return nil, nil, fmt.Errorf("invalid --value %q", value)
			}
		}
	}

	if flags.Changed("block") {
		pos.Block, _ = flags.GetUint64("block")
	}
	if flags.Changed("index") {
		pos.Index, _ = flags.GetUint64("index")
	}
	if pos.Block == 0 {
		return nil, nil, fmt.Errorf("no block position, use --block/--index or an included --tx")
	}

	return call, pos, nil
}

