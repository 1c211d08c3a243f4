package types

import "github.com/paulmach/orb"

// Reader opens containers for reading. Implementations return
// ErrNotFound when the path does not exist and ErrInvalidContainer when
// the file is not a recognized container.
type Reader interface {
	Open(path string) (Container, error)
}

// Container is one opened input container. Layers are read-only; the
// handle must be closed when the merge session ends.
type Container interface {
	// Layers returns the layer names in catalog order.
	Layers() []string

	// Schema returns the attribute schema of the named layer.
	// Returns ErrLayerNotFound for an unknown layer.
	Schema(layer string) (*Schema, error)

	// CRS returns the coordinate reference of the named layer.
	// CRSUndefined means the layer declares none.
	CRS(layer string) (CRS, error)

	// FeatureCount returns the number of features in the named layer.
	FeatureCount(layer string) (int, error)

	// Features returns a finite, forward-only feature stream. The stream
	// is not restartable; call Features again for a fresh pass.
	Features(layer string) (FeatureSeq, error)

	// Close releases the handle. Idempotent.
	Close() error
}

// FeatureSeq is a pull iterator over features. Usage:
//
//	for f, ok := seq.Next(); ok; f, ok = seq.Next() { ... }
//	if err := seq.Err(); err != nil { ... }
type FeatureSeq interface {
	// Next returns the next feature, or ok=false when the stream is
	// exhausted or failed.
	Next() (Feature, bool)

	// Err returns the first error encountered while streaming, if any.
	Err() error

	// Close releases stream resources. Safe to call at any point.
	Close() error
}

// Writer creates output containers. Implementations return
// ErrAlreadyExists when the path is already occupied.
type Writer interface {
	Create(path string) (Output, error)
}

// Output is one container under construction. It is a single shared,
// stateful resource: layers are created and appended to strictly
// sequentially, and the container is not usable by readers until
// Finalize succeeds.
type Output interface {
	// CreateLayer adds an empty layer with the given schema and CRS.
	CreateLayer(name string, schema *Schema, crs CRS) error

	// Append writes features to an existing layer. Features must conform
	// to the layer's schema.
	Append(layer string, features ...Feature) error

	// Finalize completes the container. An output that is closed without
	// a successful Finalize is not a valid container.
	Finalize() error

	// Close releases the handle. Idempotent.
	Close() error
}

// Reprojector transforms geometry between coordinate references. An
// identical or undeclared pair must be a no-op; an unsupported pair
// returns an error wrapping ErrUnsupportedCRS.
type Reprojector interface {
	Reproject(g orb.Geometry, from, to CRS) (orb.Geometry, error)
}
