package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/ethpandaops/txrace/clients/execution/rpc"
)

// ValueSummer sums the value flowing to a target inside a call tree.
type ValueSummer interface {
	Sum(root *rpc.CallTraceCall) *uint256.Int
}

// ProbeResult is the outcome of simulating a synthetic call at one position.
type ProbeResult struct {
	Position    BlockPosition
	Transferred *uint256.Int
	// RootError is the error of the simulated call itself, e.g. "execution reverted"
	RootError string
}

// Prober runs one simulation: build request, call backend, extract, parse, accumulate.
type Prober struct {
	builder *RequestBuilder
	backend Backend
	summer  ValueSummer
	timeout time.Duration
}

func NewProber(builder *RequestBuilder, backend Backend, summer ValueSummer, timeout time.Duration) *Prober {
	return &Prober{
		builder: builder,
		backend: backend,
		summer:  summer,
		timeout: timeout,
	}
}

func (p *Prober) Probe(ctx context.Context, call *SyntheticCall, pos BlockPosition) (*ProbeResult, error) {
	req := p.builder.Build(call, pos)

	probeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.backend.TraceCallMany(probeCtx, req)
	if err != nil {
		return nil, fmt.Errorf("trace at %v failed: %w", pos, err)
	}

	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("trace at %v: %w", pos, err)
	}

	frame, err := ParseTraceResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("trace at %v: %w", pos, err)
	}

	return &ProbeResult{
		Position:    pos,
		Transferred: p.summer.Sum(frame),
		RootError:   frame.Error,
	}, nil
}
