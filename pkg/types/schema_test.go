package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewSchemaValidation(t *testing.T) {
	tests := []struct {
		name     string
		geometry string
		fields   []Field
		wantErr  error
	}{
		{"valid", GeomPoint, []Field{{"id", FieldInteger}, {"name", FieldString}}, nil},
		{"no fields", GeomPolygon, nil, nil},
		{"bad geometry kind", "hexagon", nil, ErrInvalidGeometryKind},
		{"bad field type", GeomPoint, []Field{{"id", "uuid"}}, ErrInvalidFieldType},
		{"duplicate field", GeomPoint, []Field{{"id", FieldInteger}, {"id", FieldString}}, ErrDuplicateField},
		{"empty field name", GeomPoint, []Field{{"", FieldInteger}}, ErrInvalidSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.geometry, tt.fields...)
			if !errorIs(err, tt.wantErr) {
				t.Errorf("NewSchema error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaOrderAndLookup(t *testing.T) {
	s := MustSchema(GeomPoint,
		Field{"b", FieldString},
		Field{"a", FieldInteger},
		Field{"c", FieldFloat},
	)

	want := []string{"b", "a", "c"}
	got := s.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	typ, ok := s.FieldType("a")
	if !ok || typ != FieldInteger {
		t.Errorf("FieldType(a) = %q, %v", typ, ok)
	}
	if _, ok := s.FieldType("missing"); ok {
		t.Error("FieldType(missing) reported ok")
	}
}

func TestSchemaEqualIsOrderIndependent(t *testing.T) {
	a := MustSchema(GeomPolygon, Field{"id", FieldInteger}, Field{"area", FieldFloat})
	b := MustSchema(GeomPolygon, Field{"area", FieldFloat}, Field{"id", FieldInteger})
	if !a.Equal(b) {
		t.Error("schemas with same name/type set must be equal regardless of order")
	}

	c := MustSchema(GeomPolygon, Field{"id", FieldInteger}, Field{"area", FieldString})
	if a.Equal(c) {
		t.Error("schemas differing in one field type must not be equal")
	}

	d := MustSchema(GeomMultiPolygon, Field{"id", FieldInteger}, Field{"area", FieldFloat})
	if a.Equal(d) {
		t.Error("schemas differing in geometry kind must not be equal")
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	s := MustSchema(GeomLineString,
		Field{"id", FieldInteger},
		Field{"label", FieldString},
		Field{"built", FieldDate},
	)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Schema
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !s.Equal(&back) {
		t.Errorf("round trip changed schema: %s", data)
	}
	// Order must survive the round trip too, not just the set.
	gotNames := back.Names()
	for i, name := range s.Names() {
		if gotNames[i] != name {
			t.Errorf("field %d = %q after round trip, want %q", i, gotNames[i], name)
		}
	}
}

func TestSchemaCloneIsIndependent(t *testing.T) {
	s := MustSchema(GeomPoint, Field{"id", FieldInteger})
	c := s.Clone()
	if err := c.AddField(Field{"extra", FieldString}); err != nil {
		t.Fatalf("AddField failed: %v", err)
	}
	if s.Has("extra") {
		t.Error("mutating a clone leaked into the original")
	}
}

// errorIs is errors.Is with nil symmetry for table tests.
func errorIs(err, target error) bool {
	if target == nil {
		return err == nil
	}
	return err != nil && errors.Is(err, target)
}
