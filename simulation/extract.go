package simulation

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNoPayload is returned when a response does not contain a well-formed json document.
var ErrNoPayload = errors.New("no valid json payload in response")

// ExtractJSON returns the first well-formed json array or object embedded in raw.
// Leading and trailing diagnostic text is ignored. The document is found with a
// balanced delimiter scan over the outer delimiter pair; string literals are
// skipped so brackets inside strings do not count.
//
// A balanced span that is not valid json (e.g. a "[WARN]" prefix) is skipped as a
// whole. An unbalanced span ends the search: nothing nested in a truncated document
// is ever returned.
func ExtractJSON(raw []byte) ([]byte, error) {
	pos := 0
	for pos < len(raw) {
		offset := bytes.IndexAny(raw[pos:], "[{")
		if offset < 0 {
			break
		}
		start := pos + offset

		end, ok := balancedEnd(raw, start)
		if !ok {
			return nil, ErrNoPayload
		}

		span := raw[start:end]
		if json.Valid(span) {
			return span, nil
		}
		pos = end
	}

	return nil, ErrNoPayload
}

// balancedEnd returns the index after the delimiter closing the one at raw[start].
func balancedEnd(raw []byte, start int) (int, bool) {
	opener := raw[start]
	closer := byte(']')
	if opener == '{' {
		closer = '}'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}

	return 0, false
}
