package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/txrace/clients/execution/rpc"
)

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantBlock *uint64
		wantBatch *uint64
		wantErr   bool
	}{
		{
			name:      "numeric fields",
			line:      `{"transaction_hash":"0xabc","block_number":33671282,"flashblock_index":2,"strategy":"backrun","expected_profit_eth":0.0012,"timestamp":"2025-08-04 15:40:59.698 UTC"}`,
			wantBlock: u64(33671282),
			wantBatch: u64(2),
		},
		{
			name:      "string encoded numbers",
			line:      `{"transaction_hash":"0xabc","block_number":"33671282","flashblock_index":"2","expected_profit_eth":"0.0012"}`,
			wantBlock: u64(33671282),
			wantBatch: u64(2),
		},
		{
			name: "null hints",
			line: `{"transaction_hash":"0xabc","block_number":null,"flashblock_index":null}`,
		},
		{
			name: "unknown fields are ignored",
			line: `{"transaction_hash":"0xabc","extra":{"nested":true}}`,
		},
		{
			name:    "missing hash",
			line:    `{"block_number":1}`,
			wantErr: true,
		},
		{
			name:    "not json",
			line:    `tx 0xabc reverted`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DecodeResult([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "0xabc", result.TransactionHash)
			assert.Equal(t, tt.wantBlock, result.BlockNumber)
			assert.Equal(t, tt.wantBatch, result.FlashblockIndex)
		})
	}
}

func TestDecodeResultProfit(t *testing.T) {
	result, err := DecodeResult([]byte(`{"transaction_hash":"0xabc","strategy":"backrun","expected_profit_eth":0.0012}`))
	require.NoError(t, err)
	assert.Equal(t, "backrun", result.Strategy)
	assert.InDelta(t, 0.0012, result.ExpectedProfitETH, 1e-12)
}

func TestSubmittedAt(t *testing.T) {
	tests := []struct {
		timestamp string
		want      time.Time
		ok        bool
	}{
		{timestamp: "2025-08-04 15:40:59.698 UTC", want: time.Date(2025, 8, 4, 15, 40, 59, 698000000, time.UTC), ok: true},
		{timestamp: "2025-08-04 15:40:59", want: time.Date(2025, 8, 4, 15, 40, 59, 0, time.UTC), ok: true},
		{timestamp: "2025-08-04T15:40:59.5Z", want: time.Date(2025, 8, 4, 15, 40, 59, 500000000, time.UTC), ok: true},
		{timestamp: "", ok: false},
		{timestamp: "yesterday", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.timestamp, func(t *testing.T) {
			got, ok := (&MevResult{Timestamp: tt.timestamp}).SubmittedAt()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StatusNotIncluded, Classify(nil))
	assert.Equal(t, StatusSuccess, Classify(&rpc.Receipt{Status: 1}))
	assert.Equal(t, StatusReverted, Classify(&rpc.Receipt{Status: 0}))

	assert.False(t, StatusSuccess.NeedsAnalysis())
	assert.True(t, StatusReverted.NeedsAnalysis())
	assert.True(t, StatusNotIncluded.NeedsAnalysis())
}

func u64(v uint64) *uint64 {
	return &v
}
