// Package base62 maps non-negative integer ids to short slug strings
// and back. The alphabet orders digits before uppercase before
// lowercase, so each byte has a fixed digit value 0-61.
package base62

import (
	"errors"
	"fmt"
	"math"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var ErrInvalidSlug = errors.New("invalid base62 slug")

var digitValue = func() map[byte]uint64 {
	m := make(map[byte]uint64, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = uint64(i)
	}
	return m
}()

// Encode converts n to its base62 representation, left-padded with the
// alphabet's zero symbol to minLength. Representations longer than
// minLength are never truncated.
func Encode(n uint64, minLength int) string {
	buf := make([]byte, 0, 16)
	for {
		buf = append(buf, alphabet[n%62])
		n /= 62
		if n == 0 {
			break
		}
	}
	for len(buf) < minLength {
		buf = append(buf, alphabet[0])
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Decode is the positional inverse of Encode. It accepts exactly the
// 62-symbol alphabet and fails on any other byte or on overflow.
func Decode(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSlug)
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		v, ok := digitValue[s[i]]
		if !ok {
			return 0, fmt.Errorf("%w: unexpected character %q", ErrInvalidSlug, s[i])
		}
		if n > (math.MaxUint64-v)/62 {
			return 0, fmt.Errorf("%w: value overflows", ErrInvalidSlug)
		}
		n = n*62 + v
	}
	return n, nil
}
