package utils

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var englishPrinter = message.NewPrinter(language.English)

func FormatFloat(num float64, precision int) string {
	f := fmt.Sprintf("%%.%vf", precision)
	return englishPrinter.Sprintf(f, num)
}

// FormatAddCommasBig formats an integer of arbitrary size with thousands separators
func FormatAddCommasBig(num *big.Int) string {
	if num == nil {
		return "0"
	}
	if num.IsInt64() {
		return englishPrinter.Sprintf("%d", num.Int64())
	}

	digits := new(big.Int).Abs(num).String()
	var sb strings.Builder
	if num.Sign() < 0 {
		sb.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	sb.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		sb.WriteByte(',')
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

// WeiToGwei converts a wei amount to a float gwei amount for display
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(math.Pow10(9))).Float64()
	return gwei
}

// FormatWeiGwei formats a wei amount like "8,155,775 wei (0.0082 gwei)"
func FormatWeiGwei(wei *big.Int) string {
	return fmt.Sprintf("%v wei (%.4f gwei)", FormatAddCommasBig(wei), WeiToGwei(wei))
}

// FormatWeiETH formats a 256 bit wei amount like "3,600,000,000 wei (0.0000000036 ETH)"
func FormatWeiETH(wei *uint256.Int) string {
	if wei == nil {
		wei = uint256.NewInt(0)
	}
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei.ToBig()), big.NewFloat(math.Pow10(18))).Float64()
	return fmt.Sprintf("%v wei (%.10f ETH)", FormatAddCommasBig(wei.ToBig()), eth)
}

// FormatDurationSeconds formats a signed duration as seconds with millisecond precision
func FormatDurationSeconds(d time.Duration) string {
	return fmt.Sprintf("%+.3f seconds", d.Seconds())
}
