package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrBackendUnreachable marks failures where the simulation backend could not be reached at all.
	ErrBackendUnreachable = errors.New("simulation backend unreachable")

	// ErrEmptyResponse is returned when the backend answered without any output.
	ErrEmptyResponse = errors.New("empty simulation response")
)

// Backend runs a trace request and returns the raw, possibly noisy, response text.
type Backend interface {
	TraceCallMany(ctx context.Context, req *TraceRequest) ([]byte, error)
}

// TraceCaller is the node client method used by RPCBackend.
type TraceCaller interface {
	TraceCallMany(ctx context.Context, params ...interface{}) (json.RawMessage, error)
}

// RPCBackend sends trace requests over json-rpc.
type RPCBackend struct {
	client TraceCaller
}

func NewRPCBackend(client TraceCaller) *RPCBackend {
	return &RPCBackend{
		client: client,
	}
}

func (b *RPCBackend) TraceCallMany(ctx context.Context, req *TraceRequest) ([]byte, error) {
	raw, err := b.client.TraceCallMany(ctx, req.Params()...)
	if err != nil {
		return nil, classifyRPCError(err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, ErrEmptyResponse
	}

	return raw, nil
}

// classifyRPCError marks transport level failures as ErrBackendUnreachable.
// Errors the node answered with (json-rpc or http errors) and timeouts stay soft.
func classifyRPCError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return err
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}
