package geo

import (
	"errors"
	"math"

	"github.com/amongo/amongo/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Positions are stored in map units as plain XY points in WKB, so SQLite
// and PostGIS read back the same geometry.

// ErrInvalidCoordinates is returned for NaN or infinite positions
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFrom converts a map position into a geometry point.
func PointFrom(p core.Position2D) (geom.Point, error) {
	if !finite(p.X) || !finite(p.Y) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Type: geom.DimXY,
	}), nil
}

// PositionFrom reads a point back. Empty points map to the origin.
func PositionFrom(pt geom.Point) core.Position2D {
	xy, ok := pt.XY()
	if !ok {
		return core.Position2D{}
	}
	return core.Position2D{X: xy.X, Y: xy.Y}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
