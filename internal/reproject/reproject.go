// Package reproject implements the coordinate-reference collaborator for
// merges. Full reprojection mathematics is out of scope; the standard
// reprojector handles the WGS84/Web Mercator pair and rejects everything
// else before any feature is streamed.
package reproject

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/meridianworks/geofuse/pkg/types"
)

// Standard reprojects between EPSG:4326 and EPSG:3857. An identical or
// undeclared pair is a no-op.
type Standard struct{}

// New returns the standard reprojector.
func New() Standard {
	return Standard{}
}

// Normalize canonicalizes a CRS identifier for comparison: trimmed,
// upper-cased, with the common aliases of the two supported systems
// folded in.
func Normalize(c types.CRS) types.CRS {
	s := strings.ToUpper(strings.TrimSpace(string(c)))
	switch s {
	case "WGS84", "CRS84", "EPSG:4326", "URN:OGC:DEF:CRS:OGC:1.3:CRS84":
		return types.CRSWGS84
	case "EPSG:3857", "EPSG:900913", "WEBMERCATOR":
		return types.CRSWebMercator
	}
	return types.CRS(s)
}

// NeedsReprojection reports whether geometry must be transformed between
// the two references. An undeclared side means no reprojection.
func NeedsReprojection(from, to types.CRS) bool {
	if from.Undefined() || to.Undefined() {
		return false
	}
	return Normalize(from) != Normalize(to)
}

// Reproject transforms g from one reference to the other. Identical or
// undeclared pairs pass through unchanged. An unsupported pair returns an
// error wrapping types.ErrUnsupportedCRS.
func (Standard) Reproject(g orb.Geometry, from, to types.CRS) (orb.Geometry, error) {
	if g == nil || !NeedsReprojection(from, to) {
		return g, nil
	}
	nf, nt := Normalize(from), Normalize(to)
	switch {
	case nf == types.CRSWGS84 && nt == types.CRSWebMercator:
		return project.Geometry(orb.Clone(g), project.WGS84.ToMercator), nil
	case nf == types.CRSWebMercator && nt == types.CRSWGS84:
		return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84), nil
	default:
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrUnsupportedCRS, from, to)
	}
}
