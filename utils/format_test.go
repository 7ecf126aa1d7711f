package utils

import (
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestFormatAddCommasBig(t *testing.T) {
	huge, _ := new(big.Int).SetString("-123456789012345678901234567890", 10)

	tests := []struct {
		name string
		num  *big.Int
		want string
	}{
		{name: "nil", num: nil, want: "0"},
		{name: "small", num: big.NewInt(999), want: "999"},
		{name: "int64", num: big.NewInt(8155775), want: "8,155,775"},
		{name: "negative", num: big.NewInt(-844225), want: "-844,225"},
		{name: "beyond int64", num: huge, want: "-123,456,789,012,345,678,901,234,567,890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAddCommasBig(tt.num))
		})
	}
}

func TestFormatWei(t *testing.T) {
	assert.Equal(t, "8,155,775 wei (0.0082 gwei)", FormatWeiGwei(big.NewInt(8155775)))
	assert.Equal(t, "0 wei (0.0000 gwei)", FormatWeiGwei(nil))
	assert.Equal(t, "3,600,000,000 wei (0.0000000036 ETH)", FormatWeiETH(uint256.NewInt(3600000000)))
	assert.Equal(t, "0 wei (0.0000000000 ETH)", FormatWeiETH(nil))
}

func TestFormatDurationSeconds(t *testing.T) {
	assert.Equal(t, "+0.250 seconds", FormatDurationSeconds(250*time.Millisecond))
	assert.Equal(t, "-1.500 seconds", FormatDurationSeconds(-1500*time.Millisecond))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatFloat(1234567.891, 2))
}
