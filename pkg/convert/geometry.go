package convert

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/meridianworks/geofuse/pkg/types"
)

// ConvertGeometry coerces a geometry to the given kind. Conversions are
// legal only within a geometry family: a single shape widens to its
// multi-variant by wrapping, and a multi-shape narrows to a single by
// taking its first member (failing when empty). Cross-family conversion
// is a conversion failure. GeomAny accepts everything unchanged.
func ConvertGeometry(g orb.Geometry, kind string) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	if kind == types.GeomAny || types.GeometryKindOf(g) == kind {
		return g, nil
	}

	switch v := g.(type) {
	case orb.Point:
		if kind == types.GeomMultiPoint {
			return orb.MultiPoint{v}, nil
		}
	case orb.MultiPoint:
		if kind == types.GeomPoint {
			if len(v) == 0 {
				return nil, geomFailf(g, kind, "empty multipoint")
			}
			return v[0], nil
		}
	case orb.LineString:
		if kind == types.GeomMultiLineString {
			return orb.MultiLineString{v}, nil
		}
	case orb.MultiLineString:
		if kind == types.GeomLineString {
			if len(v) == 0 {
				return nil, geomFailf(g, kind, "empty multilinestring")
			}
			return v[0], nil
		}
	case orb.Polygon:
		if kind == types.GeomMultiPolygon {
			return orb.MultiPolygon{v}, nil
		}
	case orb.MultiPolygon:
		if kind == types.GeomPolygon {
			if len(v) == 0 {
				return nil, geomFailf(g, kind, "empty multipolygon")
			}
			return v[0], nil
		}
	}
	return nil, geomFailf(g, kind, "incompatible geometry families")
}

func geomFailf(g orb.Geometry, kind, detail string) error {
	return fmt.Errorf("%w: %s -> %s: %s",
		types.ErrConversion, types.GeometryKindOf(g), kind, detail)
}
