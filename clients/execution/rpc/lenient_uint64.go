package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LenientUint64 accepts a JSON number (e.g. 106), a hex string ("0x6a") or a
// decimal string ("106"). Nodes and cast disagree on how indices and types
// are encoded, so transaction fields use this instead of hexutil.Uint64.
type LenientUint64 uint64

func (u *LenientUint64) UnmarshalJSON(input []byte) error {
	if string(input) == "null" {
		*u = 0
		return nil
	}

	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(input, &n); err != nil {
			return fmt.Errorf("invalid uint64 json: %s", string(input))
		}
		s = n.String()
	}

	v, err := parseLenientUint64(s)
	if err != nil {
		return err
	}
	*u = LenientUint64(v)
	return nil
}

func parseLenientUint64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid uint64 string %q: %w", s, err)
	}
	return v, nil
}

// Uint64Ptr returns the value as *uint64, nil if u is nil.
func (u *LenientUint64) Uint64Ptr() *uint64 {
	if u == nil {
		return nil
	}
	v := uint64(*u)
	return &v
}
