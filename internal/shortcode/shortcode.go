// Package shortcode derives public short codes from internal link ids.
//
// The mapping is a fixed permutation, so distinct ids below the code space
// bound always produce distinct codes, while the output looks unrelated to
// insertion order. There is no decode path: resolving a code back to a link
// is a storage lookup on the slug column.
package shortcode

import (
	"fmt"

	"linkpulse/internal/domain"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Keep these stable once shipped: changing either constant invalidates every
// previously issued code. mult must stay odd so the scramble is invertible
// over 64 bits.
const (
	mult      uint64 = 11400714819323198485
	xorSecret uint64 = 0xA5A5A5A5A5A5A5A5
)

// Space is the size of the code space: 62^7 possible codes.
const Space uint64 = 62 * 62 * 62 * 62 * 62 * 62 * 62

// Encode maps a non-negative link id to its public short code.
func Encode(id int64) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("%w: id must be non-negative, got %d", domain.ErrInvalidInput, id)
	}
	shuffled := shuffle64(uint64(id))
	return base62(shuffled % Space), nil
}

// shuffle64 applies the multiplicative scramble and xor. Multiplication of
// uint64 wraps, which is exactly the mask-to-64-bits step.
func shuffle64(x uint64) uint64 {
	return (x * mult) ^ xorSecret
}

// base62 encodes n most-significant digit first; zero encodes as "0".
func base62(n uint64) string {
	if n == 0 {
		return string(alphabet[0])
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n%62]
		n /= 62
	}
	return string(buf[i:])
}
