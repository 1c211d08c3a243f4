package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestMappingPreservesInsertionOrder(t *testing.T) {
	m := NewMapping()
	m.Set("zed", Rule{TargetField: "zed", Conversion: ConvDirect})
	m.Set("alpha", Rule{TargetField: "alpha", Conversion: ConvDirect})
	m.Set("mid", Rule{TargetField: "mid", Conversion: ConvDirect})

	want := []string{"zed", "alpha", "mid"}
	got := m.Sources()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sources() = %v, want %v", got, want)
		}
	}

	// Replacing a rule keeps its position.
	m.Set("alpha", Rule{TargetField: "renamed", Conversion: ConvDirect})
	if m.Sources()[1] != "alpha" {
		t.Errorf("replacing a rule moved the key: %v", m.Sources())
	}
	r, _ := m.Rule("alpha")
	if r.TargetField != "renamed" {
		t.Errorf("Rule(alpha).TargetField = %q, want renamed", r.TargetField)
	}
}

func TestMappingRemove(t *testing.T) {
	m := NewMapping()
	m.Set("a", Rule{TargetField: "a", Conversion: ConvDirect})
	m.Set("b", Rule{TargetField: "b", Conversion: ConvDirect})

	if err := m.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if m.Len() != 1 || m.Sources()[0] != "b" {
		t.Errorf("after Remove: sources = %v", m.Sources())
	}
	if err := m.Remove("a"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrRuleNotFound", err)
	}
}

func TestMappingJSONRoundTripLaw(t *testing.T) {
	// A loaded-then-saved mapping must reproduce the same field set, rule
	// parameters, and key order as the stored form.
	doc := `{
  "area": {
    "target_field": "area",
    "conversion": "type_convert",
    "source_type": "string",
    "target_type": "float",
    "default_value": 0
  },
  "name": {
    "target_field": "name",
    "conversion": "direct",
    "default_value": null
  },
  "zone": {
    "target_field": "zone_code",
    "conversion": "new_field",
    "field_type": "string",
    "default_value": "unzoned"
  }
}`

	var m Mapping
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	saved, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(saved, []byte(doc)) {
		t.Errorf("round trip changed document:\ngot:\n%s\nwant:\n%s", saved, doc)
	}
}

func TestMappingUnmarshalRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"array", `[{"target_field":"a"}]`},
		{"duplicate key", `{"a":{"target_field":"a","conversion":"direct","default_value":null},"a":{"target_field":"b","conversion":"direct","default_value":null}}`},
		{"truncated", `{"a":{"target_field":"a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Mapping
			if err := json.Unmarshal([]byte(tt.doc), &m); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMappingNumericDefaultsNormalize(t *testing.T) {
	var m Mapping
	doc := `{"n":{"target_field":"n","conversion":"direct","default_value":7},"f":{"target_field":"f","conversion":"direct","default_value":2.5}}`
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	rn, _ := m.Rule("n")
	if v, ok := rn.DefaultValue.(int64); !ok || v != 7 {
		t.Errorf("integer default = %#v, want int64(7)", rn.DefaultValue)
	}
	rf, _ := m.Rule("f")
	if v, ok := rf.DefaultValue.(float64); !ok || v != 2.5 {
		t.Errorf("float default = %#v, want float64(2.5)", rf.DefaultValue)
	}
}
