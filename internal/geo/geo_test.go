package geo

import (
	"math"
	"testing"

	"github.com/amongo/amongo/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointFrom(t *testing.T) {
	tests := []struct {
		name    string
		in      core.Position2D
		wantErr bool
	}{
		{"origin", core.Position2D{}, false},
		{"negative", core.Position2D{X: -39.5, Y: -12.25}, false},
		{"nan", core.Position2D{X: math.NaN(), Y: 1}, true},
		{"inf", core.Position2D{X: 1, Y: math.Inf(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, err := PointFrom(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinates)
				assert.True(t, pt.IsEmpty())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, PositionFrom(pt))
		})
	}
}

func TestPathFrom(t *testing.T) {
	ls, err := PathFrom([]core.Position2D{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 0}})
	require.NoError(t, err)
	assert.Equal(t, 3, ls.Coordinates().Length())
	assert.InDelta(t, 9.0, PathLength(ls), 1e-9)
}

func TestPathFrom_TooFewPoints(t *testing.T) {
	_, err := PathFrom([]core.Position2D{{X: 1, Y: 1}})
	assert.ErrorContains(t, err, "at least 2 points")
}

func TestPathFrom_InvalidPoint(t *testing.T) {
	_, err := PathFrom([]core.Position2D{{X: 1, Y: 1}, {X: math.NaN(), Y: 0}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}
