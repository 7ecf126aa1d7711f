package simulation

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBuilderBuild(t *testing.T) {
	call := &SyntheticCall{
		From:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		To:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Data:  []byte{0xde, 0xad, 0xbe, 0xef},
		Value: uint256.NewInt(3600000000),
	}

	req := NewRequestBuilder(0).Build(call, BlockPosition{Block: 33671282, Index: 106})
	params, err := req.EncodeParams()
	require.NoError(t, err)
	require.Len(t, params, 3)

	var bundles []struct {
		Transactions  []map[string]string `json:"transactions"`
		BlockOverride map[string]any      `json:"blockOverride"`
	}
	require.NoError(t, json.Unmarshal([]byte(params[0]), &bundles))
	require.Len(t, bundles, 1)
	require.Len(t, bundles[0].Transactions, 1)

	tx := bundles[0].Transactions[0]
	assert.Equal(t, "0x1111111111111111111111111111111111111111", tx["from"])
	assert.Equal(t, "0x2222222222222222222222222222222222222222", tx["to"])
	assert.Equal(t, "0xdeadbeef", tx["input"])
	assert.Equal(t, "0xd693a400", tx["value"])
	assert.Equal(t, "0x3d0900", tx["gas"])
	assert.Equal(t, "0x0", tx["gasPrice"])
	assert.Empty(t, bundles[0].BlockOverride)

	assert.JSONEq(t, `{"blockNumber":"0x201c872","transactionIndex":106}`, params[1])
	assert.JSONEq(t, `{"stateOverrides":{},"tracer":"callTracer"}`, params[2])
}

func TestRequestBuilderGasLimit(t *testing.T) {
	call := &SyntheticCall{}

	req := NewRequestBuilder(1000000).Build(call, BlockPosition{Block: 1})
	assert.EqualValues(t, 1000000, req.Bundles[0].Transactions[0].Gas)

	call.GasLimit = 5000000
	req = NewRequestBuilder(1000000).Build(call, BlockPosition{Block: 1})
	assert.EqualValues(t, 5000000, req.Bundles[0].Transactions[0].Gas)

	// nil value and calldata still encode
	params, err := req.EncodeParams()
	require.NoError(t, err)
	assert.Contains(t, params[0], `"input":"0x"`)
	assert.Contains(t, params[0], `"value":"0x0"`)
}
