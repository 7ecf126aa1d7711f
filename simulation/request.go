package simulation

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// DefaultGasLimit is the gas limit used for every simulated call. The original
// transaction's own limit may be too low once the preceding state differs.
const DefaultGasLimit uint64 = 4000000

// SyntheticCall is what the monitored transaction would have executed if it had
// been placed at another position.
type SyntheticCall struct {
	From     common.Address
	To       common.Address
	Data     []byte
	Value    *uint256.Int
	GasLimit uint64
}

// BlockPosition addresses a transaction slot inside a block. Index 0 is the first transaction.
type BlockPosition struct {
	Block uint64
	Index uint64
}

func (p BlockPosition) String() string {
	return fmt.Sprintf("%v/%v", p.Block, p.Index)
}

// CallArgs is a single transaction object inside a debug_traceCallMany bundle.
type CallArgs struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Input    hexutil.Bytes  `json:"input"`
	Value    *hexutil.Big   `json:"value"`
	Gas      hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big   `json:"gasPrice"`
}

// Bundle is the ordered list of calls executed on top of the state context.
type Bundle struct {
	Transactions  []CallArgs             `json:"transactions"`
	BlockOverride map[string]interface{} `json:"blockOverride"`
}

// StateContext selects the state the bundle executes on: the block with all
// transactions before TransactionIndex applied.
type StateContext struct {
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	TransactionIndex uint64         `json:"transactionIndex"`
}

// TraceOptions configures the tracer and the state overrides of a trace.
type TraceOptions struct {
	StateOverrides map[string]interface{} `json:"stateOverrides"`
	Tracer         string                 `json:"tracer"`
}

// TraceRequest is one debug_traceCallMany invocation.
type TraceRequest struct {
	Position BlockPosition
	Bundles  []Bundle
	Context  StateContext
	Options  TraceOptions
}

// Params returns the positional json-rpc params.
func (req *TraceRequest) Params() []interface{} {
	return []interface{}{req.Bundles, req.Context, req.Options}
}

// EncodeParams returns the json encoded positional params, one string per param.
func (req *TraceRequest) EncodeParams() ([]string, error) {
	params := req.Params()
	encoded := make([]string, len(params))
	for i, param := range params {
		data, err := json.Marshal(param)
		if err != nil {
			return nil, fmt.Errorf("failed encoding trace param %v: %w", i, err)
		}
		encoded[i] = string(data)
	}
	return encoded, nil
}

// RequestBuilder builds trace requests for synthetic calls.
type RequestBuilder struct {
	gasLimit uint64
}

func NewRequestBuilder(gasLimit uint64) *RequestBuilder {
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	return &RequestBuilder{
		gasLimit: gasLimit,
	}
}

// Build returns the request simulating call inserted at pos. Fee fields are zero,
// the simulation only looks at value flow. A call without gas limit gets the builder's.
func (rb *RequestBuilder) Build(call *SyntheticCall, pos BlockPosition) *TraceRequest {
	value := new(hexutil.Big)
	if call.Value != nil {
		value = (*hexutil.Big)(call.Value.ToBig())
	}

	data := call.Data
	if data == nil {
		data = []byte{}
	}

	gasLimit := call.GasLimit
	if gasLimit == 0 {
		gasLimit = rb.gasLimit
	}

	return &TraceRequest{
		Position: pos,
		Bundles: []Bundle{
			{
				Transactions: []CallArgs{
					{
						From:     call.From,
						To:       call.To,
						Input:    data,
						Value:    value,
						Gas:      hexutil.Uint64(gasLimit),
						GasPrice: new(hexutil.Big),
					},
				},
				BlockOverride: map[string]interface{}{},
			},
		},
		Context: StateContext{
			BlockNumber:      hexutil.Uint64(pos.Block),
			TransactionIndex: pos.Index,
		},
		Options: TraceOptions{
			StateOverrides: map[string]interface{}{},
			Tracer:         "callTracer",
		},
	}
}
