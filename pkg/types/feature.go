package types

import "github.com/paulmach/orb"

// CRS identifies a coordinate reference system, e.g. "EPSG:4326".
// The empty value means the layer declares no CRS.
type CRS string

// Well-known CRS identifiers.
const (
	CRSUndefined   CRS = ""
	CRSWGS84       CRS = "EPSG:4326"
	CRSWebMercator CRS = "EPSG:3857"
)

// Undefined reports whether the CRS is undeclared.
func (c CRS) Undefined() bool {
	return c == CRSUndefined
}

// Feature is one geometric feature: a geometry plus a property set that
// conforms to some Schema. Every key of the schema is present in
// Properties; an absent value is stored as an explicit nil, never omitted.
type Feature struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// NewFeature creates a feature for the given schema with the given
// geometry and every property set to the null marker.
func NewFeature(schema *Schema, geom orb.Geometry) Feature {
	props := make(map[string]any, schema.Len())
	for _, name := range schema.Names() {
		props[name] = nil
	}
	return Feature{Geometry: geom, Properties: props}
}

// Property returns the value of the named property, or the null marker if
// the property is absent from the feature.
func (f Feature) Property(name string) any {
	if f.Properties == nil {
		return nil
	}
	return f.Properties[name]
}

// Clone returns a copy of the feature with an independent property map.
// The geometry value is shared; geometries are treated as immutable.
func (f Feature) Clone() Feature {
	props := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = v
	}
	return Feature{Geometry: f.Geometry, Properties: props}
}

// IsNull reports whether a property value is the null marker.
func IsNull(v any) bool {
	return v == nil
}

// GeometryKindOf returns the geometry kind tag for an orb geometry value.
// A nil geometry and unrecognized types report GeomAny.
func GeometryKindOf(g orb.Geometry) string {
	switch g.(type) {
	case orb.Point:
		return GeomPoint
	case orb.LineString:
		return GeomLineString
	case orb.Polygon:
		return GeomPolygon
	case orb.MultiPoint:
		return GeomMultiPoint
	case orb.MultiLineString:
		return GeomMultiLineString
	case orb.MultiPolygon:
		return GeomMultiPolygon
	default:
		return GeomAny
	}
}

// LayerInfo describes one layer of a container: its name, schema,
// coordinate reference, and feature count.
type LayerInfo struct {
	Name         string  `json:"name"`
	Schema       *Schema `json:"schema"`
	CRS          CRS     `json:"crs"`
	FeatureCount int     `json:"feature_count"`
}
