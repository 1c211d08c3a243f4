package types

import (
	"encoding/json"
	"fmt"
)

// Field type tags. Every attribute field in a layer schema carries exactly
// one of these.
const (
	FieldInteger = "integer"
	FieldFloat   = "float"
	FieldString  = "string"
	FieldBoolean = "boolean"
	FieldDate    = "date"
	FieldBinary  = "binary"
)

// validFieldTypes is the set of recognized field type tags.
var validFieldTypes = map[string]bool{
	FieldInteger: true,
	FieldFloat:   true,
	FieldString:  true,
	FieldBoolean: true,
	FieldDate:    true,
	FieldBinary:  true,
}

// IsValidFieldType reports whether the given string is a recognized field type.
func IsValidFieldType(t string) bool {
	return validFieldTypes[t]
}

// Geometry kinds carried by a layer schema. GeomAny accepts any geometry.
const (
	GeomPoint           = "point"
	GeomLineString      = "linestring"
	GeomPolygon         = "polygon"
	GeomMultiPoint      = "multipoint"
	GeomMultiLineString = "multilinestring"
	GeomMultiPolygon    = "multipolygon"
	GeomAny             = "geometry"
)

// validGeometryKinds is the set of recognized geometry kinds.
var validGeometryKinds = map[string]bool{
	GeomPoint:           true,
	GeomLineString:      true,
	GeomPolygon:         true,
	GeomMultiPoint:      true,
	GeomMultiLineString: true,
	GeomMultiPolygon:    true,
	GeomAny:             true,
}

// IsValidGeometryKind reports whether the given string is a recognized
// geometry kind.
func IsValidGeometryKind(k string) bool {
	return validGeometryKinds[k]
}

// Field is one named, typed attribute in a schema.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the ordered attribute definition of a layer: a geometry kind
// plus a sequence of uniquely named, typed fields. Field names are
// case-sensitive. The zero value is not usable; use NewSchema.
type Schema struct {
	geometry string
	fields   []Field
	index    map[string]int
}

// NewSchema creates a schema with the given geometry kind and fields.
// Returns ErrInvalidGeometryKind for an unknown kind, ErrInvalidFieldType
// for an unknown field type, and ErrDuplicateField for a repeated name.
func NewSchema(geometryKind string, fields ...Field) (*Schema, error) {
	if !IsValidGeometryKind(geometryKind) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGeometryKind, geometryKind)
	}
	s := &Schema{
		geometry: geometryKind,
		index:    make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if err := s.AddField(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error. For tests and literals.
func MustSchema(geometryKind string, fields ...Field) *Schema {
	s, err := NewSchema(geometryKind, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// AddField appends a field to the schema.
// Returns ErrInvalidFieldType or ErrDuplicateField on bad input.
func (s *Schema) AddField(f Field) error {
	if f.Name == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidSchema)
	}
	if !IsValidFieldType(f.Type) {
		return fmt.Errorf("%w: field %q has type %q", ErrInvalidFieldType, f.Name, f.Type)
	}
	if _, ok := s.index[f.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
	return nil
}

// GeometryKind returns the schema's geometry kind.
func (s *Schema) GeometryKind() string {
	return s.geometry
}

// Len returns the number of attribute fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Has reports whether the schema contains a field with the given name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// FieldType returns the type tag of the named field and whether it exists.
func (s *Schema) FieldType(name string) (string, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.fields[i].Type, true
}

// Clone returns an independent copy of the schema.
func (s *Schema) Clone() *Schema {
	c := &Schema{
		geometry: s.geometry,
		fields:   make([]Field, len(s.fields)),
		index:    make(map[string]int, len(s.index)),
	}
	copy(c.fields, s.fields)
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// Equal reports whether two schemas have the same geometry kind and the
// same set of field name/type pairs. Field order does not matter.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.geometry != other.geometry || len(s.fields) != len(other.fields) {
		return false
	}
	for _, f := range s.fields {
		t, ok := other.FieldType(f.Name)
		if !ok || t != f.Type {
			return false
		}
	}
	return true
}

// schemaJSON is the wire form of a Schema.
type schemaJSON struct {
	Geometry string  `json:"geometry"`
	Fields   []Field `json:"fields"`
}

// MarshalJSON encodes the schema with fields in declaration order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(schemaJSON{Geometry: s.geometry, Fields: s.fields})
}

// UnmarshalJSON decodes a schema, validating geometry kind, field types,
// and field-name uniqueness.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dec, err := NewSchema(raw.Geometry, raw.Fields...)
	if err != nil {
		return err
	}
	*s = *dec
	return nil
}
