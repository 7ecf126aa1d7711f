package timing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBatchSize is the assumed number of positions per sub-block batch when no
// authoritative batch tag is known.
const DefaultBatchSize = 20

// DefaultLookupTimeout bounds a single log store query.
const DefaultLookupTimeout = 5 * time.Second

type Config struct {
	BatchSize      uint64
	BatchTagPrefix string
	LookupTimeout  time.Duration
}

// Subject is one side of a timing comparison.
type Subject struct {
	Hash string
	// Index is the position inside the block, used for batch estimation
	Index *uint64
	// BatchHint is a batch index reported by the submitter, preferred over estimation
	BatchHint *uint64
}

// TimingReport holds the optional timing fields of an analysis.
// TimeDelta and the batch verdict are only set when both observations exist.
type TimingReport struct {
	Original   *HistoricalObservation
	Competitor *HistoricalObservation

	// TimeDelta is competitor first-seen minus original first-seen
	TimeDelta *time.Duration

	SameBatch       *bool
	OriginalBatch   *uint64
	CompetitorBatch *uint64
	BatchEstimated  bool
}

type Correlator struct {
	logger    logrus.FieldLogger
	store     LogStore
	batchSize uint64
	tagPrefix string
	timeout   time.Duration
}

func NewCorrelator(logger logrus.FieldLogger, store LogStore, config Config) *Correlator {
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BatchTagPrefix == "" {
		config.BatchTagPrefix = "flashblock_"
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}

	return &Correlator{
		logger:    logger,
		store:     store,
		batchSize: config.BatchSize,
		tagPrefix: config.BatchTagPrefix,
		timeout:   config.LookupTimeout,
	}
}

// Lookup fetches and aggregates the observation of one hash.
// Store failures and timeouts are logged and reported as "no observation".
func (c *Correlator) Lookup(ctx context.Context, hash string) *HistoricalObservation {
	if c.store == nil || hash == "" {
		return nil
	}

	lookupCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rows, err := c.store.GetTransactionLogs(lookupCtx, hash)
	if err != nil {
		c.logger.WithError(err).Warnf("log store lookup failed for %v", hash)
		return nil
	}

	return Aggregate(hash, rows)
}

// Correlate compares when both transactions were first seen locally and whether
// they landed in the same batch.
func (c *Correlator) Correlate(ctx context.Context, original, competitor Subject) *TimingReport {
	report := &TimingReport{
		Original:   c.Lookup(ctx, original.Hash),
		Competitor: c.Lookup(ctx, competitor.Hash),
	}

	if report.Original == nil || report.Competitor == nil {
		return report
	}

	delta := report.Competitor.FirstSeen.Sub(report.Original.FirstSeen)
	report.TimeDelta = &delta

	originalBatch, originalEstimated := c.batchOf(report.Original, original)
	competitorBatch, competitorEstimated := c.batchOf(report.Competitor, competitor)
	report.OriginalBatch = originalBatch
	report.CompetitorBatch = competitorBatch

	if originalBatch != nil && competitorBatch != nil {
		same := *originalBatch == *competitorBatch
		report.SameBatch = &same
		report.BatchEstimated = originalEstimated || competitorEstimated
	}

	return report
}

// batchOf resolves the batch index of one side: a batch source tag wins, then the
// submitter's hint, then an estimate from the block position.
func (c *Correlator) batchOf(obs *HistoricalObservation, subject Subject) (*uint64, bool) {
	if obs != nil {
		if batch := c.taggedBatch(obs.Sources); batch != nil {
			return batch, false
		}
	}

	if subject.BatchHint != nil {
		batch := *subject.BatchHint
		return &batch, false
	}

	if subject.Index != nil {
		batch := *subject.Index / c.batchSize
		return &batch, true
	}

	return nil, false
}

// taggedBatch returns the lowest batch index found in tags like "flashblock_3".
func (c *Correlator) taggedBatch(sources []string) *uint64 {
	var batch *uint64
	for _, source := range sources {
		if !strings.HasPrefix(source, c.tagPrefix) {
			continue
		}

		n, err := strconv.ParseUint(strings.TrimPrefix(source, c.tagPrefix), 10, 64)
		if err != nil {
			continue
		}
		if batch == nil || n < *batch {
			batch = &n
		}
	}
	return batch
}
