package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/txrace/metrics"
	"github.com/ethpandaops/txrace/simulation"
)

var (
	// ErrAborted is returned when the scan was cancelled between probes.
	ErrAborted = errors.New("scan aborted")

	// ErrBackendUnavailable is returned when the simulation backend stayed unreachable
	// for MaxUnreachableProbes consecutive probes.
	ErrBackendUnavailable = errors.New("simulation backend unavailable")
)

// Prober simulates a synthetic call at one block position.
type Prober interface {
	Probe(ctx context.Context, call *simulation.SyntheticCall, pos simulation.BlockPosition) (*simulation.ProbeResult, error)
}

type Config struct {
	// ProbeRateLimit caps probes per second, 0 disables pacing
	ProbeRateLimit float64
	ProbeBurst     int

	// MaxUnreachableProbes consecutive unreachable probes end the scan, 0 never gives up
	MaxUnreachableProbes int
}

// ScanResult is the terminal output of a completed scan.
// Found implies Transferred > Declared at Position.
type ScanResult struct {
	Start       simulation.BlockPosition
	Declared    *uint256.Int
	Found       bool
	Position    *simulation.BlockPosition
	Transferred *uint256.Int

	Probes       int
	FailedProbes int
}

type Scanner struct {
	logger         logrus.FieldLogger
	prober         Prober
	limiter        *rate.Limiter
	maxUnreachable int
	metrics        *metrics.ScanMetrics
}

func NewScanner(logger logrus.FieldLogger, prober Prober, config Config, scanMetrics *metrics.ScanMetrics) *Scanner {
	scanner := &Scanner{
		logger:         logger,
		prober:         prober,
		maxUnreachable: config.MaxUnreachableProbes,
		metrics:        scanMetrics,
	}

	if config.ProbeRateLimit > 0 {
		burst := config.ProbeBurst
		if burst < 1 {
			burst = 1
		}
		scanner.limiter = rate.NewLimiter(rate.Limit(config.ProbeRateLimit), burst)
	}

	return scanner
}

// Scan walks the positions of start.Block from start.Index down to 0 and re-simulates
// call at each of them. It stops at the first position (scanning downwards) where the
// value sent to the target exceeds the declared call value.
//
// A failing probe counts as "no transfer observed". Cancellation is checked between
// probes and yields ErrAborted, never a partial result.
func (s *Scanner) Scan(ctx context.Context, call *simulation.SyntheticCall, start simulation.BlockPosition) (*ScanResult, error) {
	if start.Index > math.MaxInt64 {
		return nil, fmt.Errorf("start index %v out of range", start.Index)
	}

	declared := new(uint256.Int)
	if call.Value != nil {
		declared.Set(call.Value)
	}

	result := &ScanResult{
		Start:    start,
		Declared: declared,
	}

	s.logger.WithFields(logrus.Fields{
		"block": start.Block,
		"index": start.Index,
	}).Infof("scanning block %v backwards from index %v", start.Block, start.Index)

	unreachable := 0
	for idx := int64(start.Index); idx >= 0; idx-- {
		if err := s.waitTurn(ctx); err != nil {
			s.metrics.ObserveScan("aborted")
			return nil, err
		}

		pos := simulation.BlockPosition{Block: start.Block, Index: uint64(idx)}
		probeStart := time.Now()
		probe, err := s.prober.Probe(ctx, call, pos)
		result.Probes++

		if err != nil {
			if ctx.Err() != nil {
				s.metrics.ObserveScan("aborted")
				return nil, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
			}

			result.FailedProbes++
			if errors.Is(err, simulation.ErrBackendUnreachable) {
				s.metrics.ObserveProbe("unreachable", time.Since(probeStart))
				unreachable++
				if s.maxUnreachable > 0 && unreachable >= s.maxUnreachable {
					s.metrics.ObserveScan("failed")
					return nil, fmt.Errorf("%w after %v consecutive attempts: %v", ErrBackendUnavailable, unreachable, err)
				}
			} else {
				s.metrics.ObserveProbe("error", time.Since(probeStart))
				unreachable = 0
			}

			s.logger.WithFields(logrus.Fields{
				"block": pos.Block,
				"index": pos.Index,
			}).WithError(err).Debug("probe failed, treating as no transfer")
			continue
		}
		unreachable = 0

		if probe.Transferred.Gt(declared) {
			s.metrics.ObserveProbe("hit", time.Since(probeStart))
			s.metrics.ObserveScan("found")
			s.logger.WithFields(logrus.Fields{
				"block":       pos.Block,
				"index":       pos.Index,
				"transferred": probe.Transferred.Dec(),
				"declared":    declared.Dec(),
			}).Infof("found transfer exceeding call value at index %v", pos.Index)

			result.Found = true
			result.Position = &pos
			result.Transferred = probe.Transferred
			return result, nil
		}

		s.metrics.ObserveProbe("miss", time.Since(probeStart))
		s.logger.WithFields(logrus.Fields{
			"block":       pos.Block,
			"index":       pos.Index,
			"transferred": probe.Transferred.Dec(),
		}).Debug("no excess transfer")
	}

	s.metrics.ObserveScan("not_found")
	s.logger.WithField("block", start.Block).Infof("no index found where transfers exceed call value (%v probes, %v failed)", result.Probes, result.FailedProbes)
	return result, nil
}

func (s *Scanner) waitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return nil
}
