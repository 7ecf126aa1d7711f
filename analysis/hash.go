package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidHash  = errors.New("invalid transaction hash")
	ErrMissingField = errors.New("transaction is missing a required field")
	ErrNotFound     = errors.New("transaction not found")
)

// NormalizeHash accepts a 32 byte hex hash with or without 0x prefix.
func NormalizeHash(input string) (common.Hash, error) {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}

	if len(s) != 2*common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q has %v hex digits, expected %v", ErrInvalidHash, input, len(s), 2*common.HashLength)
	}
	for _, c := range s {
		if !isHexDigit(c) {
			return common.Hash{}, fmt.Errorf("%w: %q contains non-hex characters", ErrInvalidHash, input)
		}
	}

	return common.HexToHash(s), nil
}

func isHexDigit(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
