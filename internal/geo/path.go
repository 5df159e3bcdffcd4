package geo

import (
	"fmt"

	"github.com/amongo/amongo/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PathFrom builds a line string through the given positions in order.
func PathFrom(positions []core.Position2D) (geom.LineString, error) {
	if len(positions) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(positions))
	}

	flat := make([]float64, 0, len(positions)*2)
	for i, p := range positions {
		if !finite(p.X) || !finite(p.Y) {
			return geom.LineString{}, fmt.Errorf("point %d: %w", i, ErrInvalidCoordinates)
		}
		flat = append(flat, p.X, p.Y)
	}

	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}

// PathLength is the travelled distance along the path in map units.
func PathLength(ls geom.LineString) float64 {
	return ls.Length()
}
