// Package codes converts between six-letter room codes and the int32 the
// server uses to identify a room.
package codes

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCode is returned for strings that are not six letters and for
// integers the six-letter scheme cannot produce.
var ErrInvalidCode = errors.New("invalid room code")

const alphabet = "QWXRTYLPESDFGHUJKZOCVBINMA"

// lookup[c-'A'] is the index of letter c in alphabet.
var lookup = [26]int32{
	25, 21, 19, 10, 8, 11, 12, 13, 22, 15, 16, 6, 24,
	23, 18, 7, 0, 3, 9, 4, 14, 20, 1, 2, 5, 17,
}

const (
	marker    = math.MinInt32
	lowMask   = 0x3ff
	highShift = 10
	highMask  = 0x3ffffc00
)

// CodeToNumber encodes a six-letter code. Lowercase input is accepted.
func CodeToNumber(code string) (int32, error) {
	if len(code) != 6 {
		return 0, fmt.Errorf("%w: %q must be 6 letters", ErrInvalidCode, code)
	}
	var v [6]int32
	for i := 0; i < 6; i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("%w: %q contains %q", ErrInvalidCode, code, c)
		}
		v[i] = lookup[c-'A']
	}

	low := (v[0] + 26*v[1]) & lowMask
	high := v[2] + 26*(v[3]+26*(v[4]+26*v[5]))
	return low | (high<<highShift)&highMask | marker, nil
}

// MustCodeToNumber is CodeToNumber for codes known to be valid.
func MustCodeToNumber(code string) int32 {
	n, err := CodeToNumber(code)
	if err != nil {
		panic(err)
	}
	return n
}

// NumberToCode decodes a room id produced by CodeToNumber.
func NumberToCode(n int32) (string, error) {
	u := uint32(n)
	if u&0x80000000 == 0 || u&0x40000000 != 0 {
		return "", fmt.Errorf("%w: %d is not a six-letter room id", ErrInvalidCode, n)
	}

	low := u & lowMask
	high := (u >> highShift) & 0xfffff
	if low >= 26*26 || high >= 26*26*26*26 {
		return "", fmt.Errorf("%w: %d is out of range", ErrInvalidCode, n)
	}

	return string([]byte{
		alphabet[low%26],
		alphabet[low/26],
		alphabet[high%26],
		alphabet[high/26%26],
		alphabet[high/(26*26)%26],
		alphabet[high/(26*26*26)%26],
	}), nil
}
