package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/txrace/metrics"
	"github.com/ethpandaops/txrace/simulation"
)

// scriptedProber returns a fixed transfer or error per index and records probe order.
type scriptedProber struct {
	transfers map[uint64]uint64
	errs      map[uint64]error
	probed    []uint64
	onProbe   func(index uint64)
}

func (p *scriptedProber) Probe(ctx context.Context, call *simulation.SyntheticCall, pos simulation.BlockPosition) (*simulation.ProbeResult, error) {
	p.probed = append(p.probed, pos.Index)
	if p.onProbe != nil {
		p.onProbe(pos.Index)
	}
	if err := p.errs[pos.Index]; err != nil {
		return nil, err
	}
	return &simulation.ProbeResult{
		Position:    pos,
		Transferred: uint256.NewInt(p.transfers[pos.Index]),
	}, nil
}

func descending(from, to uint64) []uint64 {
	indices := []uint64{}
	for i := int64(from); i >= int64(to); i-- {
		indices = append(indices, uint64(i))
	}
	return indices
}

func newTestScanner(prober Prober, config Config) *Scanner {
	logger, _ := test.NewNullLogger()
	return NewScanner(logger, prober, config, nil)
}

func TestScanStopsAtFirstHit(t *testing.T) {
	prober := &scriptedProber{
		transfers: map[uint64]uint64{7: 1001, 3: 5000},
	}
	call := &simulation.SyntheticCall{Value: uint256.NewInt(1000)}

	result, err := newTestScanner(prober, Config{}).Scan(context.Background(), call, simulation.BlockPosition{Block: 5, Index: 12})
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Equal(t, simulation.BlockPosition{Block: 5, Index: 7}, *result.Position)
	assert.Equal(t, uint64(1001), result.Transferred.Uint64())
	assert.Equal(t, descending(12, 7), prober.probed)
	assert.Equal(t, 6, result.Probes)
}

func TestScanEqualValueIsNoHit(t *testing.T) {
	prober := &scriptedProber{
		transfers: map[uint64]uint64{2: 1000, 1: 1000, 0: 1000},
	}
	call := &simulation.SyntheticCall{Value: uint256.NewInt(1000)}

	result, err := newTestScanner(prober, Config{}).Scan(context.Background(), call, simulation.BlockPosition{Block: 5, Index: 2})
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Nil(t, result.Position)
}

func TestScanExhaustion(t *testing.T) {
	prober := &scriptedProber{}
	call := &simulation.SyntheticCall{Value: uint256.NewInt(1)}

	result, err := newTestScanner(prober, Config{}).Scan(context.Background(), call, simulation.BlockPosition{Block: 9, Index: 4})
	require.NoError(t, err)

	assert.False(t, result.Found)
	assert.Equal(t, descending(4, 0), prober.probed)
	assert.Equal(t, 5, result.Probes)
}

func TestScanIndexZero(t *testing.T) {
	prober := &scriptedProber{transfers: map[uint64]uint64{0: 1}}
	call := &simulation.SyntheticCall{}

	result, err := newTestScanner(prober, Config{}).Scan(context.Background(), call, simulation.BlockPosition{Block: 9, Index: 0})
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, uint64(0), result.Position.Index)
	assert.Equal(t, []uint64{0}, prober.probed)
}

func TestScanFaultTolerance(t *testing.T) {
	tests := []struct {
		name      string
		transfers map[uint64]uint64
		errs      map[uint64]error
		wantFound bool
		wantIndex uint64
	}{
		{
			name:      "failing probe above the hit",
			transfers: map[uint64]uint64{2: 50},
			errs:      map[uint64]error{4: simulation.ErrNoPayload},
			wantFound: true,
			wantIndex: 2,
		},
		{
			name:      "failing probe at the would-be hit",
			transfers: map[uint64]uint64{4: 50, 1: 60},
			errs:      map[uint64]error{4: context.DeadlineExceeded},
			wantFound: true,
			wantIndex: 1,
		},
		{
			name: "every probe fails softly",
			errs: map[uint64]error{
				5: simulation.ErrEmptyTrace, 4: simulation.ErrEmptyResponse, 3: simulation.ErrNoPayload,
				2: errors.New("header not found"), 1: simulation.ErrEmptyTrace, 0: simulation.ErrEmptyTrace,
			},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &scriptedProber{transfers: tt.transfers, errs: tt.errs}
			call := &simulation.SyntheticCall{Value: uint256.NewInt(10)}

			result, err := newTestScanner(prober, Config{MaxUnreachableProbes: 3}).Scan(context.Background(), call, simulation.BlockPosition{Block: 1, Index: 5})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, result.Found)
			if tt.wantFound {
				assert.Equal(t, tt.wantIndex, result.Position.Index)
			}
			assert.Equal(t, len(tt.errs), result.FailedProbes)
		})
	}
}

func TestScanEndToEndExample(t *testing.T) {
	transfers := map[uint64]uint64{50: 5000000000}
	prober := &scriptedProber{transfers: transfers}
	call := &simulation.SyntheticCall{Value: uint256.NewInt(3600000000)}

	result, err := newTestScanner(prober, Config{}).Scan(context.Background(), call, simulation.BlockPosition{Block: 33671282, Index: 106})
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Equal(t, simulation.BlockPosition{Block: 33671282, Index: 50}, *result.Position)
	assert.Equal(t, "5000000000", result.Transferred.Dec())
	assert.Equal(t, "3600000000", result.Declared.Dec())
	assert.Equal(t, descending(106, 50), prober.probed)
}

func TestScanCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prober := &scriptedProber{
		onProbe: func(index uint64) {
			if index == 8 {
				cancel()
			}
		},
	}
	call := &simulation.SyntheticCall{Value: uint256.NewInt(1)}

	result, err := newTestScanner(prober, Config{}).Scan(ctx, call, simulation.BlockPosition{Block: 1, Index: 10})
	assert.ErrorIs(t, err, ErrAborted)
	assert.Nil(t, result)
	assert.Equal(t, []uint64{10, 9, 8}, prober.probed)
}

func TestScanCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := &scriptedProber{}
	_, err := newTestScanner(prober, Config{}).Scan(ctx, &simulation.SyntheticCall{}, simulation.BlockPosition{Block: 1, Index: 3})
	assert.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, prober.probed)
}

func TestScanBackendUnavailable(t *testing.T) {
	unreachable := fmt.Errorf("trace failed: %w", simulation.ErrBackendUnreachable)

	prober := &scriptedProber{
		errs: map[uint64]error{20: unreachable, 19: unreachable, 18: unreachable, 17: unreachable},
	}
	_, err := newTestScanner(prober, Config{MaxUnreachableProbes: 3}).Scan(context.Background(), &simulation.SyntheticCall{}, simulation.BlockPosition{Block: 1, Index: 20})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, []uint64{20, 19, 18}, prober.probed)
}

func TestScanUnreachableCounterResets(t *testing.T) {
	unreachable := fmt.Errorf("trace failed: %w", simulation.ErrBackendUnreachable)

	// never three in a row
	prober := &scriptedProber{
		errs: map[uint64]error{6: unreachable, 5: unreachable, 3: unreachable, 2: unreachable, 0: unreachable},
	}
	result, err := newTestScanner(prober, Config{MaxUnreachableProbes: 3}).Scan(context.Background(), &simulation.SyntheticCall{}, simulation.BlockPosition{Block: 1, Index: 6})
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, 5, result.FailedProbes)
}

func TestScanMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	scanMetrics := metrics.NewScanMetrics(registry)
	logger, _ := test.NewNullLogger()

	prober := &scriptedProber{
		transfers: map[uint64]uint64{1: 2},
		errs:      map[uint64]error{2: simulation.ErrEmptyTrace},
	}
	scanner := NewScanner(logger, prober, Config{}, scanMetrics)
	_, err := scanner.Scan(context.Background(), &simulation.SyntheticCall{Value: uint256.NewInt(1)}, simulation.BlockPosition{Block: 1, Index: 3})
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)

	series := map[string]int{}
	scans := map[string]float64{}
	for _, family := range families {
		series[family.GetName()] = len(family.GetMetric())
		if family.GetName() != "txrace_scans_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				scans[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}

	// hit, miss and error
	assert.Equal(t, 3, series["txrace_probes_total"])
	assert.Equal(t, map[string]float64{"found": 1}, scans)
}
