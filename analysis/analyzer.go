package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/txrace/competitor"
	"github.com/ethpandaops/txrace/metrics"
	"github.com/ethpandaops/txrace/scanner"
	"github.com/ethpandaops/txrace/simulation"
	"github.com/ethpandaops/txrace/timing"
)

// TransactionSource resolves transactions from the node.
type TransactionSource interface {
	Lookup(ctx context.Context, txHash common.Hash) (*competitor.TransactionRecord, error)
	Resolve(ctx context.Context, pos simulation.BlockPosition) (*competitor.TransactionRecord, error)
	BlockTransactionCount(ctx context.Context, block uint64) (uint64, error)
}

type Scanner interface {
	Scan(ctx context.Context, call *simulation.SyntheticCall, start simulation.BlockPosition) (*scanner.ScanResult, error)
}

type Correlator interface {
	Correlate(ctx context.Context, original, competitor timing.Subject) *timing.TimingReport
}

// Request is one analysis job.
type Request struct {
	Hash string

	// BlockHint is used as scan start when the transaction was never included
	BlockHint *uint64
	// BatchHint is the batch the submitter targeted
	BatchHint  *uint64
	Submission *Submission
}

type Analyzer struct {
	logger     logrus.FieldLogger
	source     TransactionSource
	scanner    Scanner
	correlator Correlator
	sinks      []Sink
	gasLimit   uint64
	metrics    *metrics.ScanMetrics
}

func NewAnalyzer(logger logrus.FieldLogger, source TransactionSource, scanner Scanner, correlator Correlator, gasLimit uint64, scanMetrics *metrics.ScanMetrics, sinks ...Sink) *Analyzer {
	if gasLimit == 0 {
		gasLimit = simulation.DefaultGasLimit
	}

	return &Analyzer{
		logger:     logger,
		source:     source,
		scanner:    scanner,
		correlator: correlator,
		sinks:      sinks,
		gasLimit:   gasLimit,
		metrics:    scanMetrics,
	}
}

// Analyze runs scan, competitor resolution and timing correlation for one transaction
// and publishes the report to all sinks. The returned report is never nil; the error is
// set for invalid input, aborted and failed runs.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (*Report, error) {
	report := &Report{
		Submission: req.Submission,
		StartedAt:  time.Now(),
	}

	err := a.analyze(ctx, req, report)
	report.FinishedAt = time.Now()

	if err != nil {
		report.Error = err.Error()
		switch {
		case errors.Is(err, ErrInvalidHash), errors.Is(err, ErrMissingField), errors.Is(err, ErrNotFound):
			report.Outcome = OutcomeInvalidInput
		case errors.Is(err, scanner.ErrAborted), errors.Is(err, context.Canceled):
			report.Outcome = OutcomeAborted
		default:
			report.Outcome = OutcomeFailed
		}
	}

	a.metrics.ObserveAnalysis(string(report.Outcome))
	if report.Outcome != OutcomeInvalidInput {
		a.Publish(ctx, report)
	}

	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, req *Request, report *Report) error {
	txHash, err := NormalizeHash(req.Hash)
	if err != nil {
		return err
	}
	report.OriginalHash = txHash

	original, err := a.source.Lookup(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("%w: %v", ErrNotFound, txHash.Hex())
		}
		return err
	}

	call, err := a.syntheticCall(original)
	if err != nil {
		return err
	}
	report.Declared = call.Value

	start, err := a.startPosition(ctx, original, req.BlockHint)
	if err != nil {
		return err
	}
	report.Block = &start.Block
	report.Index = &start.Index

	result, err := a.scanner.Scan(ctx, call, *start)
	if result != nil {
		report.Probes = result.Probes
		report.FailedProbes = result.FailedProbes
	}
	if err != nil {
		return err
	}

	if !result.Found {
		report.Outcome = OutcomeNotFound
		return nil
	}

	report.Outcome = OutcomeFound
	report.Competitor = a.describeCompetitor(ctx, req, original, result)
	return nil
}

func (a *Analyzer) syntheticCall(tx *competitor.TransactionRecord) (*simulation.SyntheticCall, error) {
	if tx.To == nil {
		return nil, fmt.Errorf("%w: %v has no recipient", ErrMissingField, tx.Hash.Hex())
	}

	value := new(uint256.Int)
	if tx.Value != nil {
		value.Set(tx.Value)
	}

	return &simulation.SyntheticCall{
		From:     tx.From,
		To:       *tx.To,
		Data:     tx.Input,
		Value:    value,
		GasLimit: a.gasLimit,
	}, nil
}

// startPosition is the transaction's own slot. A transaction that never made it into
// a block starts at the last slot of the hinted block.
func (a *Analyzer) startPosition(ctx context.Context, tx *competitor.TransactionRecord, blockHint *uint64) (*simulation.BlockPosition, error) {
	if tx.BlockNumber != nil && tx.Index != nil {
		return &simulation.BlockPosition{Block: *tx.BlockNumber, Index: *tx.Index}, nil
	}

	if blockHint == nil {
		return nil, fmt.Errorf("%w: %v has no block position", ErrMissingField, tx.Hash.Hex())
	}

	count, err := a.source.BlockTransactionCount(ctx, *blockHint)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %v not included and block %v is empty", ErrMissingField, tx.Hash.Hex(), *blockHint)
	}

	a.logger.Infof("%v not included, scanning block %v from last index %v", tx.Hash.Hex(), *blockHint, count-1)
	return &simulation.BlockPosition{Block: *blockHint, Index: count - 1}, nil
}

func (a *Analyzer) describeCompetitor(ctx context.Context, req *Request, original *competitor.TransactionRecord, result *scanner.ScanResult) *CompetitorAnalysis {
	pos := *result.Position
	originalPrice := original.EffectiveGasPrice

	analysis := &CompetitorAnalysis{
		OriginalHash:     original.Hash,
		Block:            pos.Block,
		Index:            pos.Index,
		Transferred:      result.Transferred,
		OriginalGasPrice: &originalPrice,
	}

	winner, err := a.source.Resolve(ctx, pos)
	if err != nil {
		a.logger.WithError(err).Warnf("could not resolve transaction at %v", pos)
		analysis.ResolutionError = err.Error()
		return analysis
	}

	winnerPrice := winner.EffectiveGasPrice
	analysis.WinnerHash = &winner.Hash
	analysis.WinnerFrom = &winner.From
	analysis.WinnerTo = winner.To
	analysis.WinnerGasPrice = &winnerPrice
	analysis.GasPriceDelta = competitor.GasDelta(&originalPrice, &winnerPrice)

	if a.correlator == nil {
		return analysis
	}

	winnerIndex := pos.Index
	timingReport := a.correlator.Correlate(ctx, timing.Subject{
		Hash:      original.Hash.Hex(),
		Index:     original.Index,
		BatchHint: req.BatchHint,
	}, timing.Subject{
		Hash:  winner.Hash.Hex(),
		Index: &winnerIndex,
	})

	analysis.OriginalObservation = timingReport.Original
	analysis.WinnerObservation = timingReport.Competitor
	analysis.TimeDelta = timingReport.TimeDelta
	analysis.SameBatch = timingReport.SameBatch
	analysis.OriginalBatch = timingReport.OriginalBatch
	analysis.WinnerBatch = timingReport.CompetitorBatch
	analysis.BatchEstimated = timingReport.BatchEstimated

	return analysis
}

// Publish hands the report to every sink. Sink failures are logged only.
func (a *Analyzer) Publish(ctx context.Context, report *Report) {
	for _, sink := range a.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			a.logger.WithError(err).Warnf("failed publishing report of %v to %v", report.OriginalHash.Hex(), sink.Name())
		}
	}
}
