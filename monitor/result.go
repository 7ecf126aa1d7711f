package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// MevResult is one line of the bot's results file.
type MevResult struct {
	TransactionHash   string  `mapstructure:"transaction_hash"`
	BlockNumber       *uint64 `mapstructure:"block_number"`
	FlashblockIndex   *uint64 `mapstructure:"flashblock_index"`
	Strategy          string  `mapstructure:"strategy"`
	ExpectedProfitETH float64 `mapstructure:"expected_profit_eth"`
	Timestamp         string  `mapstructure:"timestamp"`
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// DecodeResult decodes a results line. Numbers may be encoded as json numbers or strings.
func DecodeResult(line []byte) (*MevResult, error) {
	entry := map[string]interface{}{}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&entry); err != nil {
		return nil, fmt.Errorf("invalid results line: %w", err)
	}

	result := &MevResult{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(entry); err != nil {
		return nil, fmt.Errorf("invalid results entry: %w", err)
	}

	if result.TransactionHash == "" {
		return nil, fmt.Errorf("results entry without transaction_hash")
	}
	return result, nil
}

// SubmittedAt parses the entry timestamp, e.g. "2025-08-04 15:40:59.698 UTC".
func (r *MevResult) SubmittedAt() (time.Time, bool) {
	ts := strings.TrimSpace(r.Timestamp)
	if ts == "" {
		return time.Time{}, false
	}
	ts = strings.TrimSuffix(ts, " UTC")

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
