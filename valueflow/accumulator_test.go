package valueflow

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/txrace/clients/execution/rpc"
)

var target = common.HexToAddress("0xc0ffeefeED8B9d271445cf5D1d24d74D2ca4235E")

const sampleTrace = `{
	"type": "CALL",
	"to": "0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e",
	"value": "0xffff",
	"calls": [
		{"type": "CALL", "to": "0xC0FFEEFEED8B9D271445CF5D1D24D74D2CA4235E", "value": "0x64"},
		{"type": "CALL", "to": "0x1111111111111111111111111111111111111111", "value": "0x1000", "calls": [
			{"type": "CALL", "to": "0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e", "value": "0xa"},
			{"type": "DELEGATECALL", "to": "0x2222222222222222222222222222222222222222", "calls": [
				{"type": "CALL", "to": "0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e", "value": "1"}
			]}
		]},
		{"type": "CALL", "to": "0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e", "value": "0x0"},
		{"type": "STATICCALL", "to": "0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e"}
	]
}`

func parseFrame(t *testing.T, data string) *rpc.CallTraceCall {
	t.Helper()
	frame := &rpc.CallTraceCall{}
	require.NoError(t, json.Unmarshal([]byte(data), frame))
	return frame
}

func TestAccumulatorPolicies(t *testing.T) {
	root := parseFrame(t, sampleTrace)

	direct := NewAccumulator(target, DirectCalls, 0)
	assert.Equal(t, uint64(100), direct.Sum(root).Uint64())

	recursive := NewAccumulator(target, Recursive, 0)
	assert.Equal(t, uint64(111), recursive.Sum(root).Uint64())

	shallow := NewAccumulator(target, Recursive, 2)
	assert.Equal(t, uint64(110), shallow.Sum(root).Uint64())
}

func TestAccumulatorNoMatch(t *testing.T) {
	root := parseFrame(t, sampleTrace)
	acc := NewAccumulator(common.HexToAddress("0x3333333333333333333333333333333333333333"), Recursive, 0)
	assert.True(t, acc.Sum(root).IsZero())
	assert.True(t, acc.Sum(nil).IsZero())
	assert.True(t, acc.Sum(&rpc.CallTraceCall{}).IsZero())
}

func TestAccumulatorMalformedValues(t *testing.T) {
	root := parseFrame(t, `{"to":"0x01","calls":[
		{"to":"0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e","value":"0xzz"},
		{"to":"0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e","value":"-5"},
		{"to":"0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e","value":null},
		{"to":"0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e","value":7},
		{"to":"not-an-address","value":"0x100"}
	]}`)

	acc := NewAccumulator(target, DirectCalls, 0)
	assert.Equal(t, uint64(7), acc.Sum(root).Uint64())
}

func TestAccumulatorSaturates(t *testing.T) {
	max := "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	root := parseFrame(t, `{"to":"0x01","calls":[
		{"to":"0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e","value":"`+max+`"},
		{"to":"0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e","value":"0x2"}
	]}`)

	acc := NewAccumulator(target, DirectCalls, 0)
	want := new(uint256.Int).SetAllOne()
	assert.True(t, acc.Sum(root).Eq(want))
}

func TestAccumulatorDeepTree(t *testing.T) {
	// deeper than any real evm trace, must not blow the stack
	root := &rpc.CallTraceCall{To: "0x01"}
	frame := root
	for i := 0; i < 5000; i++ {
		frame.Calls = []rpc.CallTraceCall{{To: target.Hex()}}
		frame = &frame.Calls[0]
	}

	acc := NewAccumulator(target, Recursive, 0)
	assert.True(t, acc.Sum(root).IsZero())
}

func TestParseDepthPolicy(t *testing.T) {
	policy, err := ParseDepthPolicy("Recursive")
	require.NoError(t, err)
	assert.Equal(t, Recursive, policy)

	policy, err = ParseDepthPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DirectCalls, policy)
	assert.Equal(t, "direct", policy.String())

	_, err = ParseDepthPolicy("all")
	assert.Error(t, err)
}
