package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/txrace/timing"
	"github.com/ethpandaops/txrace/utils"
)

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 80)
)

// FormatReport renders a report for terminals and the analysis log.
func FormatReport(r *Report) string {
	var sb strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&sb, format, args...)
		sb.WriteByte('\n')
	}

	line("")
	line(heavyRule)
	if r.Block != nil && r.Index != nil {
		line("ANALYSIS %v (block %v, index %v)", r.OriginalHash.Hex(), *r.Block, *r.Index)
	} else {
		line("ANALYSIS %v", r.OriginalHash.Hex())
	}
	line("FINISHED: %v", r.FinishedAt.UTC().Format("2006-01-02 15:04:05.000 UTC"))
	line(heavyRule)

	if sub := r.Submission; sub != nil {
		if sub.Strategy != "" {
			line("STRATEGY:           %v", sub.Strategy)
		}
		line("EXPECTED PROFIT:    %.6f ETH", sub.ExpectedProfitETH)
		if sub.FlashblockIndex != nil {
			line("TARGET BATCH:       %v", *sub.FlashblockIndex)
		}
		if sub.Status != "" {
			line("STATUS:             %v", strings.ToUpper(sub.Status))
		}
		if sub.GasUsed != nil {
			line("GAS USED:           %v", utils.FormatFloat(float64(*sub.GasUsed), 0))
		}
		if sub.GasPrice != nil {
			line("GAS PRICE:          %v", utils.FormatWeiGwei(sub.GasPrice))
		}
		line(lightRule)
	}

	line("OUTCOME:            %v", strings.ToUpper(string(r.Outcome)))
	if r.Error != "" {
		line("ERROR:              %v", r.Error)
	}
	if r.Declared != nil {
		line("DECLARED VALUE:     %v", utils.FormatWeiETH(r.Declared))
	}
	if r.Probes > 0 {
		line("PROBES:             %v (%v failed)", r.Probes, r.FailedProbes)
	}

	switch r.Outcome {
	case OutcomeNotFound:
		line("No transaction index found where transfers exceed msg.value")
	case OutcomeFound:
		formatCompetitor(line, r.Competitor)
	}

	line(heavyRule)
	return sb.String()
}

func formatCompetitor(line func(string, ...interface{}), c *CompetitorAnalysis) {
	if c == nil {
		return
	}

	line(lightRule)
	line("ORIGINAL TX:        %v", c.OriginalHash.Hex())
	if c.WinnerHash != nil {
		line("WINNER TX:          %v", c.WinnerHash.Hex())
	} else {
		line("WINNER TX:          unresolved (%v)", c.ResolutionError)
	}
	if c.WinnerFrom != nil {
		line("WINNER FROM:        %v", c.WinnerFrom.Hex())
	}
	if c.WinnerTo != nil {
		line("WINNER TO:          %v", c.WinnerTo.Hex())
	}
	line("WINNER POSITION:    block %v, index %v", c.Block, c.Index)
	line("TRANSFERRED:        %v", utils.FormatWeiETH(c.Transferred))

	if c.WinnerHash == nil {
		return
	}

	line(lightRule)
	formatObservation(line, "ORIGINAL", c.OriginalObservation)
	formatObservation(line, "WINNER", c.WinnerObservation)
	if c.TimeDelta != nil {
		line("TIME DIFFERENCE:    %v", utils.FormatDurationSeconds(*c.TimeDelta))
	}
	if c.SameBatch != nil {
		verdict := "NO"
		if *c.SameBatch {
			verdict = "YES"
		}
		estimated := ""
		if c.BatchEstimated {
			estimated = ", estimated"
		}
		line("SAME BATCH:         %v (original %v, winner %v%v)", verdict, *c.OriginalBatch, *c.WinnerBatch, estimated)
	}

	line(lightRule)
	if c.OriginalGasPrice != nil {
		line("ORIGINAL GAS PRICE: %v%v", utils.FormatWeiGwei(c.OriginalGasPrice.Wei), upperBoundNote(c.OriginalGasPrice.UpperBound))
	}
	if c.WinnerGasPrice != nil {
		line("WINNER GAS PRICE:   %v%v", utils.FormatWeiGwei(c.WinnerGasPrice.Wei), upperBoundNote(c.WinnerGasPrice.UpperBound))
	}
	if c.GasPriceDelta != nil {
		line("GAS DIFFERENCE:     %v", utils.FormatWeiGwei(c.GasPriceDelta))
	}
}

func formatObservation(line func(string, ...interface{}), label string, obs *timing.HistoricalObservation) {
	if obs == nil {
		line("%-19v %v", label+" TIMESTAMP:", "Not found in database")
		line("%-19v %v", label+" SOURCE:", "N/A")
		return
	}
	line("%-19v %v", label+" TIMESTAMP:", obs.FirstSeen.UTC().Format(time.RFC3339Nano))
	line("%-19v %v", label+" SOURCE:", strings.Join(obs.Sources, ", "))
}

func upperBoundNote(upperBound bool) string {
	if upperBound {
		return " [upper bound, max fee per gas]"
	}
	return ""
}
