package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeToNumber(t *testing.T) {
	tests := []struct {
		code string
		want int32
	}{
		{"ABCDEF", -1943683525},
		{"AAAAAA", -1679540573},
		{"UVWXYZ", -1838004714},
		{"EIVKQQ", -2147036604},
		{"ZZZZZZ", -1829282357},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := CodeToNumber(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := NumberToCode(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.code, back)
		})
	}
}

func TestCodeToNumber_Lowercase(t *testing.T) {
	got, err := CodeToNumber("abcdef")
	require.NoError(t, err)
	assert.Equal(t, int32(-1943683525), got)
}

func TestCodeToNumber_Invalid(t *testing.T) {
	for _, code := range []string{"", "ABCDE", "ABCDEFG", "ABC1EF", "ABC EF", "ÄBCDE"} {
		_, err := CodeToNumber(code)
		assert.ErrorIs(t, err, ErrInvalidCode, "code %q", code)
	}
}

func TestNumberToCode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		n    int32
	}{
		{"marker bit clear", 12345},
		{"bit 30 set", -1},
		{"low group out of range", int32(-0x80000000 | 0x3ff)},
		{"high group out of range", int32(-0x80000000 | 0x3fffffff&^0x3ff)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NumberToCode(tt.n)
			assert.ErrorIs(t, err, ErrInvalidCode)
		})
	}
}

func TestRoundTripAllFirstPairs(t *testing.T) {
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b, 'Q', 'W', 'E', 'R'})
			n, err := CodeToNumber(code)
			require.NoError(t, err)
			assert.Less(t, n, int32(0), "marker bit must be set")

			back, err := NumberToCode(n)
			require.NoError(t, err)
			assert.Equal(t, code, back)
		}
	}
}

func TestLookupInvertsAlphabet(t *testing.T) {
	for i, idx := range lookup {
		assert.Equal(t, byte('A'+i), alphabet[idx])
	}
}

func TestMustCodeToNumber(t *testing.T) {
	assert.Equal(t, int32(-1943683525), MustCodeToNumber("ABCDEF"))
	assert.Panics(t, func() { MustCodeToNumber("nope") })
}
