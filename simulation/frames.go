package simulation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethpandaops/txrace/clients/execution/rpc"
)

// ErrEmptyTrace is returned when a response holds no call frame.
var ErrEmptyTrace = errors.New("trace response contains no call frame")

// maxWrapDepth bounds how many array levels are unwrapped to reach the first frame.
const maxWrapDepth = 4

// ParseTraceResponse decodes the root frame of the first simulated call.
// debug_traceCallMany returns one array per bundle ([[frame, ...]]), debug_traceCall
// returns the frame itself; both shapes are accepted, as is a {"result": frame} wrapper.
func ParseTraceResponse(payload []byte) (*rpc.CallTraceCall, error) {
	data := bytes.TrimSpace(payload)

	for level := 0; len(data) > 0 && data[0] == '['; level++ {
		if level >= maxWrapDepth {
			return nil, fmt.Errorf("trace response nested too deep")
		}

		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to decode trace array: %w", err)
		}
		if len(items) == 0 {
			return nil, ErrEmptyTrace
		}
		data = bytes.TrimSpace(items[0])
	}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrEmptyTrace
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("unexpected trace frame: %.32s", string(data))
	}

	var wrapper struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Result) > 0 && wrapper.Result[0] == '{' {
		data = wrapper.Result
	}

	frame := &rpc.CallTraceCall{}
	if err := json.Unmarshal(data, frame); err != nil {
		return nil, fmt.Errorf("failed to decode trace frame: %w", err)
	}

	return frame, nil
}
