package packets

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLerp(t *testing.T) {
	tests := []struct {
		name    string
		a, b, t float64
		want    float64
	}{
		{"midpoint", -10, 10, 0.5, 0},
		{"start", -10, 10, 0, -10},
		{"end", -10, 10, 1, 10},
		{"clamps below", -30, -20, -69, -30},
		{"clamps above", -30, -20, 42, -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Lerp(tt.a, tt.b, tt.t), 1e-9)
		})
	}
}

func TestUnlerp(t *testing.T) {
	assert.InDelta(t, 0.5, Unlerp(-10, 10, 0), 1e-9)
	assert.InDelta(t, 0.0, Unlerp(-10, 10, -50), 1e-9)
	assert.InDelta(t, 1.0, Unlerp(-10, 10, 50), 1e-9)
}

func TestEncodeVector2(t *testing.T) {
	b := EncodeVector2(Vector2{X: 20, Y: -30})
	assert.Equal(t, []byte{0xbf, 0xff, 0x20, 0x00}, b)

	v, err := DecodeVector2(b)
	require.NoError(t, err)
	assert.Equal(t, 20.0, math.Round(float64(v.X)))
	assert.Equal(t, -30.0, math.Round(float64(v.Y)))
}

func TestVector2RoundTripWithinQuantization(t *testing.T) {
	// One quantization step over an 80-unit range.
	const eps = 80.0 / 65535

	for _, v := range []Vector2{{0, 0}, {-40, 40}, {12.345, -7.5}, {39.99, -39.99}} {
		got, err := DecodeVector2(EncodeVector2(v))
		require.NoError(t, err)
		assert.InDelta(t, v.X, got.X, eps)
		assert.InDelta(t, v.Y, got.Y, eps)
	}
}

func TestVector2ClampsOutOfRange(t *testing.T) {
	got, err := DecodeVector2(EncodeVector2(Vector2{X: 100, Y: -100}))
	require.NoError(t, err)
	assert.InDelta(t, 40, got.X, 1e-4)
	assert.InDelta(t, -40, got.Y, 1e-4)
}
