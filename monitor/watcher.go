package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/txrace/analysis"
	"github.com/ethpandaops/txrace/clients/execution/rpc"
	"github.com/ethpandaops/txrace/metrics"
)

// ReceiptSource fetches transaction receipts.
type ReceiptSource interface {
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*rpc.Receipt, error)
}

// Analyzer runs and publishes analyses.
type Analyzer interface {
	Analyze(ctx context.Context, req *analysis.Request) (*analysis.Report, error)
	Publish(ctx context.Context, report *analysis.Report)
}

type Config struct {
	ResultsFile string
	Interval    time.Duration
	// MinAge is how old an entry must be before its receipt is checked
	MinAge time.Duration
	// ReceiptAttempts bounds receipt fetches per entry on transient node errors
	ReceiptAttempts   int
	ReceiptRetryDelay time.Duration
}

// Watcher follows the bot's results file and analyzes submissions that did not succeed.
type Watcher struct {
	logger   logrus.FieldLogger
	config   Config
	receipts ReceiptSource
	analyzer Analyzer
	metrics  *metrics.ScanMetrics
	now      func() time.Time

	offset  int64
	partial []byte
}

func NewWatcher(logger logrus.FieldLogger, config Config, receipts ReceiptSource, analyzer Analyzer, scanMetrics *metrics.ScanMetrics) *Watcher {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.ReceiptAttempts < 1 {
		config.ReceiptAttempts = 3
	}
	if config.ReceiptRetryDelay <= 0 {
		config.ReceiptRetryDelay = time.Second
	}

	return &Watcher{
		logger:   logger,
		config:   config,
		receipts: receipts,
		analyzer: analyzer,
		metrics:  scanMetrics,
		now:      time.Now,
	}
}

// Run tails the results file starting at its current end until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if stat, err := os.Stat(w.config.ResultsFile); err == nil {
		w.offset = stat.Size()
	} else if !os.IsNotExist(err) {
		return err
	}

	return w.follow(ctx)
}

// RunFromStart processes the whole file and keeps following it.
func (w *Watcher) RunFromStart(ctx context.Context) error {
	w.offset = 0
	return w.follow(ctx)
}

// RunOnce processes the file from the start and returns.
// A last line without trailing newline is handled too.
func (w *Watcher) RunOnce(ctx context.Context) error {
	w.offset = 0
	w.partial = nil
	if err := w.poll(ctx); err != nil {
		return err
	}

	rest := bytes.TrimSpace(w.partial)
	w.partial = nil
	if len(rest) > 0 {
		w.HandleLine(ctx, rest)
	}
	return nil
}

// RunLast processes the last n entries of the file and returns.
func (w *Watcher) RunLast(ctx context.Context, n int) error {
	data, err := os.ReadFile(w.config.ResultsFile)
	if err != nil {
		return fmt.Errorf("failed reading results file: %w", err)
	}

	lines := splitLines(data)
	if n < len(lines) {
		lines = lines[len(lines)-n:]
	}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.HandleLine(ctx, line)
	}
	return nil
}

func (w *Watcher) follow(ctx context.Context) error {
	w.logger.Infof("watching %v, checking every %v", w.config.ResultsFile, w.config.Interval)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.WithError(err).Warn("failed reading results file")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll handles all complete lines appended since the last poll.
func (w *Watcher) poll(ctx context.Context) error {
	file, err := os.Open(w.config.ResultsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < w.offset {
		w.logger.Infof("%v was truncated, reading from start", w.config.ResultsFile)
		w.offset = 0
		w.partial = nil
	}

	if _, err := file.Seek(w.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	w.offset += int64(len(data))

	data = append(w.partial, data...)
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		w.partial = data
		return nil
	}
	w.partial = append([]byte(nil), data[end+1:]...)

	for _, line := range splitLines(data[:end+1]) {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.HandleLine(ctx, line)
	}
	return nil
}

// HandleLine processes one results entry. Problems are logged, never returned.
func (w *Watcher) HandleLine(ctx context.Context, line []byte) {
	result, err := DecodeResult(line)
	if err != nil {
		w.logger.WithError(err).Warn("skipping results line")
		return
	}

	logger := w.logger.WithField("tx", result.TransactionHash)
	logger.Info("new submission result")

	if err := w.waitMinAge(ctx, result); err != nil {
		return
	}

	txHash, err := analysis.NormalizeHash(result.TransactionHash)
	if err != nil {
		logger.WithError(err).Warn("skipping results entry")
		return
	}

	receipt, err := w.fetchReceipt(ctx, txHash)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if !errors.Is(err, ethereum.NotFound) {
			logger.WithError(err).Warn("failed fetching receipt, treating entry as not included")
		}
		receipt = nil
	}

	status := Classify(receipt)
	w.metrics.ObserveSubmission(string(status))
	submission := &analysis.Submission{
		Strategy:          result.Strategy,
		ExpectedProfitETH: result.ExpectedProfitETH,
		BlockNumber:       result.BlockNumber,
		FlashblockIndex:   result.FlashblockIndex,
		Timestamp:         result.Timestamp,
		Status:            string(status),
	}
	if receipt != nil {
		gasUsed := uint64(receipt.GasUsed)
		submission.GasUsed = &gasUsed
		submission.GasPrice = rpc.BigValue(receipt.EffectiveGasPrice)
	}

	if !status.NeedsAnalysis() {
		logger.Infof("submission %v, nothing to analyze", status)
		now := w.now()
		w.analyzer.Publish(ctx, &analysis.Report{
			OriginalHash: txHash,
			Outcome:      analysis.OutcomeSkipped,
			Submission:   submission,
			StartedAt:    now,
			FinishedAt:   now,
		})
		return
	}

	logger.Infof("submission %v, searching competitor", status)
	report, err := w.analyzer.Analyze(ctx, &analysis.Request{
		Hash:       result.TransactionHash,
		BlockHint:  result.BlockNumber,
		BatchHint:  result.FlashblockIndex,
		Submission: submission,
	})
	if err != nil {
		logger.WithError(err).Warnf("analysis ended with outcome %v", report.Outcome)
		return
	}
	logger.Infof("analysis finished with outcome %v", report.Outcome)
}

// fetchReceipt retries transient receipt errors. NotFound is final.
func (w *Watcher) fetchReceipt(ctx context.Context, txHash common.Hash) (*rpc.Receipt, error) {
	var err error
	for attempt := 1; ; attempt++ {
		var receipt *rpc.Receipt
		receipt, err = w.receipts.GetTransactionReceipt(ctx, txHash)
		if err == nil || errors.Is(err, ethereum.NotFound) || attempt >= w.config.ReceiptAttempts {
			return receipt, err
		}

		w.logger.WithError(err).Debugf("receipt fetch %v/%v for %v failed", attempt, w.config.ReceiptAttempts, txHash.Hex())
		timer := time.NewTimer(w.config.ReceiptRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// waitMinAge delays entries younger than MinAge so their block is final.
// Entries without a parsable timestamp wait the full MinAge.
func (w *Watcher) waitMinAge(ctx context.Context, result *MevResult) error {
	wait := w.config.MinAge
	if submittedAt, ok := result.SubmittedAt(); ok {
		wait = w.config.MinAge - w.now().Sub(submittedAt)
	}
	if wait <= 0 {
		return nil
	}

	w.logger.Debugf("waiting %v for block finalization", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func splitLines(data []byte) [][]byte {
	lines := [][]byte{}
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
