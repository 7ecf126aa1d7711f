package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// LenientHexBytes is like hexutil.Bytes, but accepts hex strings with or without
// a 0x prefix (some clients return revertReason without 0x) and also accepts
// plain-text strings (some clients return revertReason as human-readable text).
type LenientHexBytes []byte

func (b *LenientHexBytes) UnmarshalJSON(input []byte) error {
	// null
	if len(input) == 4 && string(input) == "null" {
		*b = nil
		return nil
	}

	// Typically encoded as JSON string
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		// Fall back to strict hexutil.Bytes
		var hb hexutil.Bytes
		if err2 := json.Unmarshal(input, &hb); err2 != nil {
			return err
		}
		*b = LenientHexBytes(hb)
		return nil
	}

	if s == "" {
		*b = nil
		return nil
	}

	hexStr := s
	if !strings.HasPrefix(hexStr, "0x") && !strings.HasPrefix(hexStr, "0X") {
		hexStr = "0x" + hexStr
	}

	decoded, err := hexutil.Decode(hexStr)
	if err != nil {
		// Not valid hex; treat as raw UTF-8 text (e.g. plain-text revert reasons).
		*b = []byte(s)
		return nil
	}
	*b = LenientHexBytes(decoded)
	return nil
}

// TraceValue is the value of a call frame. Absent, null or malformed values
// decode to zero instead of failing the whole trace.
type TraceValue struct {
	value uint256.Int
}

func (tv *TraceValue) UnmarshalJSON(input []byte) error {
	tv.value.Clear()

	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(input, &num); err == nil {
			s = num.String()
		}
	}

	if v := parseTraceValue(s); v != nil {
		tv.value.Set(v)
	}
	return nil
}

func parseTraceValue(s string) *uint256.Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
		if s == "" {
			return nil
		}
	}

	b, ok := new(big.Int).SetString(s, base)
	if !ok || b.Sign() < 0 {
		return nil
	}

	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil
	}
	return v
}

// Uint256 returns a copy of the decoded value.
func (tv *TraceValue) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&tv.value)
}

// CallTraceCall is a single call frame in the callTracer output.
// Addresses are kept as strings, a malformed address must not fail the trace.
type CallTraceCall struct {
	Type  string          `json:"type"`
	From  string          `json:"from"`
	To    string          `json:"to"`
	Value TraceValue      `json:"value"`
	Error string          `json:"error,omitempty"`
	Calls []CallTraceCall `json:"calls,omitempty"`

	// Revert reason (some clients include this separately)
	RevertReason LenientHexBytes `json:"revertReason,omitempty"`
}

// IsTo reports whether the frame destination equals addr, ignoring hex case.
func (c *CallTraceCall) IsTo(addr common.Address) bool {
	to := strings.TrimSpace(c.To)
	if !common.IsHexAddress(to) {
		return false
	}
	return common.HexToAddress(to) == addr
}

// TraceCallMany calls debug_traceCallMany with pre-encoded params and returns the raw result.
func (ec *ExecutionClient) TraceCallMany(ctx context.Context, params ...interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	err := ec.rpcClient.CallContext(ctx, &raw, "debug_traceCallMany", params...)
	if err != nil {
		return nil, fmt.Errorf("debug_traceCallMany failed: %w", err)
	}

	return raw, nil
}
