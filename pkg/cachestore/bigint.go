package cachestore

import (
	"bytes"
	"fmt"
	"math/big"
)

// BigInt is an arbitrary-precision integer that round-trips through JSON
// as a decimal string, never through a 64-bit float. Upstream blockchain
// payloads routinely carry integers (token supplies, balances) that exceed
// 2^53 and would silently lose precision as a JSON number.
//
// On the wire BigInt always encodes as a quoted decimal string with no
// suffix. On decode it also accepts the legacy form with a trailing "n"
// (e.g. "123n"), a holdover from an earlier revision of the upstream
// format; this keeps old cache entries readable without a migration.
type BigInt struct {
	big.Int
}

// NewBigInt wraps an int64 as a BigInt.
func NewBigInt(v int64) BigInt {
	var b BigInt
	b.SetInt64(v)
	return b
}

// ParseBigInt parses a decimal string, with or without a trailing "n".
func ParseBigInt(s string) (BigInt, error) {
	var b BigInt
	if err := b.setFromString(s); err != nil {
		return BigInt{}, err
	}
	return b, nil
}

func (b *BigInt) setFromString(s string) error {
	trimmed := trimLegacyNSuffix(s)
	if _, ok := b.Int.SetString(trimmed, 10); !ok {
		return fmt.Errorf("cachestore: invalid bigint literal %q", s)
	}
	return nil
}

// trimLegacyNSuffix strips a single trailing "n" if the remainder is a
// valid (optionally signed) run of digits, matching the legacy
// bigint-as-string-with-n-suffix convention.
func trimLegacyNSuffix(s string) string {
	if len(s) < 2 || s[len(s)-1] != 'n' {
		return s
	}
	body := s[:len(s)-1]
	start := 0
	if body[0] == '-' || body[0] == '+' {
		start = 1
	}
	if start >= len(body) {
		return s
	}
	for _, r := range body[start:] {
		if r < '0' || r > '9' {
			return s
		}
	}
	return body
}

// MarshalJSON always emits the canonical suffix-free decimal string.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.Int.String() + `"`), nil
}

// UnmarshalJSON accepts a bare JSON number, a quoted decimal string, or a
// quoted decimal string with a legacy trailing "n".
func (b *BigInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		b.Int.SetInt64(0)
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := unquoteJSONString(data, &s); err != nil {
			return err
		}
		return b.setFromString(s)
	}
	if _, ok := b.Int.SetString(string(data), 10); !ok {
		return fmt.Errorf("cachestore: invalid bigint literal %q", data)
	}
	return nil
}

// unquoteJSONString strips the surrounding quotes from a JSON string
// literal without processing any escape sequences; that is enough here
// because the string content is always a numeric literal.
func unquoteJSONString(data []byte, out *string) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("cachestore: not a JSON string: %s", data)
	}
	*out = string(data[1 : len(data)-1])
	return nil
}
