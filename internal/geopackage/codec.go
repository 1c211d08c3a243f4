package geopackage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/meridianworks/geofuse/pkg/types"
)

// Attribute columns are positional (f0, f1, ...) in schema order; the
// authoritative field names and types live in the catalog's schema_json.
// This sidesteps SQL identifier quoting for arbitrary user field names.
func columnName(i int) string {
	return fmt.Sprintf("f%d", i)
}

// sqlType maps a field type tag to its SQLite column affinity.
func sqlType(fieldType string) string {
	switch fieldType {
	case types.FieldInteger, types.FieldBoolean:
		return "INTEGER"
	case types.FieldFloat:
		return "REAL"
	case types.FieldBinary:
		return "BLOB"
	default:
		// string and date store as TEXT.
		return "TEXT"
	}
}

// tableName derives the feature table name for a layer. The layer's
// display name is kept verbatim in the catalog; only the table identifier
// is sanitized.
func tableName(layer string) (string, error) {
	var b strings.Builder
	for _, r := range layer {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if strings.Trim(b.String(), "_") == "" {
		return "", fmt.Errorf("layer name %q has no usable characters", layer)
	}
	return "layer_" + b.String(), nil
}

// encodeValue converts a property value into its stored form.
// Null markers store as SQL NULL.
func encodeValue(v any, fieldType string) (any, error) {
	if types.IsNull(v) {
		return nil, nil
	}
	switch fieldType {
	case types.FieldInteger:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("integer field holds %T", v)
		}
		return n, nil
	case types.FieldFloat:
		switch f := v.(type) {
		case float64:
			return f, nil
		case int64:
			// Whole-number defaults from hand-edited mapping documents
			// decode as int64; widen rather than reject the feature.
			return float64(f), nil
		}
		return nil, fmt.Errorf("float field holds %T", v)
	case types.FieldString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("string field holds %T", v)
		}
		return s, nil
	case types.FieldBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("boolean field holds %T", v)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case types.FieldDate:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("date field holds %T", v)
		}
		return t.UTC().Format(time.RFC3339), nil
	case types.FieldBinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("binary field holds %T", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", fieldType)
	}
}

// decodeValue converts a scanned column back into its property form.
func decodeValue(v any, fieldType string) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch fieldType {
	case types.FieldInteger:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("integer column scanned as %T", v)
		}
		return n, nil
	case types.FieldFloat:
		switch f := v.(type) {
		case float64:
			return f, nil
		case int64:
			// SQLite stores whole REALs as integers.
			return float64(f), nil
		}
		return nil, fmt.Errorf("float column scanned as %T", v)
	case types.FieldString:
		return asString(v)
	case types.FieldBoolean:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("boolean column scanned as %T", v)
		}
		return n != 0, nil
	case types.FieldDate:
		s, err := asString(v)
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("date column: %w", err)
		}
		return t, nil
	case types.FieldBinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("binary column scanned as %T", v)
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", fieldType)
	}
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("text column scanned as %T", v)
}

// encodeGeometry serializes a geometry as GeoJSON text; nil stores NULL.
func encodeGeometry(g orb.Geometry) (any, error) {
	if g == nil {
		return nil, nil
	}
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// decodeGeometry parses GeoJSON text back into a geometry.
func decodeGeometry(v any) (orb.Geometry, error) {
	if v == nil {
		return nil, nil
	}
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	geom, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return nil, err
	}
	return geom.Geometry(), nil
}
