package convert

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/meridianworks/geofuse/pkg/types"
)

func TestConvertNumeric(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		target  string
		want    any
		wantErr bool
	}{
		{"float truncates toward zero", 12.9, types.FieldInteger, int64(12), false},
		{"negative float truncates toward zero", -12.9, types.FieldInteger, int64(-12), false},
		{"int to float", int64(3), types.FieldFloat, float64(3), false},
		{"string to float", "12.5", types.FieldFloat, 12.5, false},
		{"string to int via float", "12.5", types.FieldInteger, int64(12), false},
		{"padded string to float", " 7.25 ", types.FieldFloat, 7.25, false},
		{"unparseable string to float", "n/a", types.FieldFloat, nil, true},
		{"unparseable string to int", "twelve", types.FieldInteger, nil, true},
		{"bool false to int", false, types.FieldInteger, int64(0), false},
		{"bool true to int", true, types.FieldInteger, int64(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, InferType(tt.value), tt.target)
			if tt.wantErr {
				if !errors.Is(err, types.ErrConversion) {
					t.Fatalf("error = %v, want ErrConversion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Convert = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConvertToString(t *testing.T) {
	ts := time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		value any
		want  string
	}{
		{int64(42), "42"},
		{12.5, "12.5"},
		{true, "true"},
		{false, "false"},
		{"already", "already"},
		{ts, "2024-05-17T08:30:00Z"},
		{[]byte("raw"), "raw"},
	}
	for _, tt := range tests {
		got, err := Convert(tt.value, InferType(tt.value), types.FieldString)
		if err != nil {
			t.Fatalf("Convert(%v) failed: %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("Convert(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestConvertToBoolean(t *testing.T) {
	truthy := []any{"true", "YES", "y", "1", "t", int64(5), 0.5}
	for _, v := range truthy {
		got, err := Convert(v, InferType(v), types.FieldBoolean)
		if err != nil || got != true {
			t.Errorf("Convert(%v) = %v, %v; want true", v, got, err)
		}
	}
	falsy := []any{"false", "No", "0", int64(0), 0.0, ""}
	for _, v := range falsy {
		got, err := Convert(v, InferType(v), types.FieldBoolean)
		if err != nil || got != false {
			t.Errorf("Convert(%v) = %v, %v; want false", v, got, err)
		}
	}
	if _, err := Convert("maybe", types.FieldString, types.FieldBoolean); !errors.Is(err, types.ErrConversion) {
		t.Errorf("Convert(maybe) error = %v, want ErrConversion", err)
	}
}

func TestConvertToDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-17", time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"2024/05/17", time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"17-05-2024", time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"2024-05-17 08:30:00", time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := Convert(tt.in, types.FieldString, types.FieldDate)
		if err != nil {
			t.Fatalf("Convert(%q) failed: %v", tt.in, err)
		}
		if !got.(time.Time).Equal(tt.want) {
			t.Errorf("Convert(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := Convert("last tuesday", types.FieldString, types.FieldDate); !errors.Is(err, types.ErrConversion) {
		t.Errorf("unparseable date error = %v, want ErrConversion", err)
	}
}

func TestConvertNullPassesThrough(t *testing.T) {
	got, err := Convert(nil, types.FieldString, types.FieldInteger)
	if err != nil || got != nil {
		t.Errorf("Convert(null) = %v, %v; want null, nil", got, err)
	}
}

func TestResolveNull(t *testing.T) {
	if got := ResolveNull(nil, "fallback"); got != "fallback" {
		t.Errorf("ResolveNull(null) = %v", got)
	}
	if got := ResolveNull("value", "fallback"); got != "value" {
		t.Errorf("ResolveNull(value) = %v", got)
	}
	// A non-null zero value is not the null marker.
	if got := ResolveNull("", "fallback"); got != "" {
		t.Errorf("ResolveNull(empty string) = %v, want empty string", got)
	}
	// The default is never coerced.
	if got := ResolveNull(nil, int64(3)); got != int64(3) {
		t.Errorf("ResolveNull default = %#v, want int64(3)", got)
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, types.FieldString},
		{true, types.FieldBoolean},
		{int64(1), types.FieldInteger},
		{3, types.FieldInteger},
		{2.5, types.FieldFloat},
		{"text", types.FieldString},
		{time.Now(), types.FieldDate},
		{[]byte{1}, types.FieldBinary},
	}
	for _, tt := range tests {
		if got := InferType(tt.value); got != tt.want {
			t.Errorf("InferType(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestConvertGeometryFamilies(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}

	got, err := ConvertGeometry(poly, types.GeomMultiPolygon)
	if err != nil {
		t.Fatalf("polygon -> multipolygon failed: %v", err)
	}
	mp, ok := got.(orb.MultiPolygon)
	if !ok || len(mp) != 1 {
		t.Fatalf("widened geometry = %T len %d", got, len(mp))
	}

	back, err := ConvertGeometry(mp, types.GeomPolygon)
	if err != nil {
		t.Fatalf("multipolygon -> polygon failed: %v", err)
	}
	if _, ok := back.(orb.Polygon); !ok {
		t.Fatalf("narrowed geometry = %T", back)
	}

	if _, err := ConvertGeometry(orb.Point{1, 2}, types.GeomPolygon); !errors.Is(err, types.ErrConversion) {
		t.Errorf("point -> polygon error = %v, want ErrConversion", err)
	}
	if _, err := ConvertGeometry(orb.MultiPoint{}, types.GeomPoint); !errors.Is(err, types.ErrConversion) {
		t.Errorf("empty multipoint -> point error = %v, want ErrConversion", err)
	}

	same, err := ConvertGeometry(poly, types.GeomPolygon)
	if err != nil || types.GeometryKindOf(same) != types.GeomPolygon {
		t.Errorf("identity conversion = %T, %v", same, err)
	}
}
