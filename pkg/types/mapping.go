package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Conversion kinds. The set is closed; "custom" resolves a registered
// function by name, never arbitrary code.
const (
	ConvDirect      = "direct"
	ConvTypeConvert = "type_convert"
	ConvNewField    = "new_field"
	ConvCustom      = "custom"
)

// GeometryTargetField is the reserved rule target addressing the feature
// geometry instead of an attribute field. The leading "@" keeps it out of
// the attribute namespace.
const GeometryTargetField = "@geometry"

// validConversions is the set of recognized conversion kinds.
var validConversions = map[string]bool{
	ConvDirect:      true,
	ConvTypeConvert: true,
	ConvNewField:    true,
	ConvCustom:      true,
}

// IsValidConversion reports whether the given string is a recognized
// conversion kind.
func IsValidConversion(c string) bool {
	return validConversions[c]
}

// Rule describes how one source field maps into the target schema.
// SourceType/TargetType apply to type_convert rules, FieldType to
// new_field and custom rules, Function to custom rules. DefaultValue is
// substituted for null source values and for failed conversions.
type Rule struct {
	TargetField  string `json:"target_field"`
	Conversion   string `json:"conversion"`
	SourceType   string `json:"source_type,omitempty"`
	TargetType   string `json:"target_type,omitempty"`
	FieldType    string `json:"field_type,omitempty"`
	Function     string `json:"function,omitempty"`
	DefaultValue any    `json:"default_value"`
}

// Mapping is an ordered mapping from source field name to Rule. Order is
// insertion order and is preserved through serialization, so a mapping
// document round-trips with its keys where the user wrote them.
type Mapping struct {
	sources []string
	rules   map[string]Rule
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{rules: make(map[string]Rule)}
}

// Len returns the number of rules.
func (m *Mapping) Len() int {
	return len(m.sources)
}

// Sources returns the source field names in insertion order.
func (m *Mapping) Sources() []string {
	out := make([]string, len(m.sources))
	copy(out, m.sources)
	return out
}

// Rule returns the rule for a source field and whether it exists.
func (m *Mapping) Rule(source string) (Rule, bool) {
	r, ok := m.rules[source]
	return r, ok
}

// Set inserts or replaces the rule for a source field. Replacing keeps
// the field's original position.
func (m *Mapping) Set(source string, rule Rule) {
	if m.rules == nil {
		m.rules = make(map[string]Rule)
	}
	if _, ok := m.rules[source]; !ok {
		m.sources = append(m.sources, source)
	}
	m.rules[source] = rule
}

// Remove deletes the rule for a source field.
// Returns ErrRuleNotFound if the field is not mapped.
func (m *Mapping) Remove(source string) error {
	if _, ok := m.rules[source]; !ok {
		return fmt.Errorf("%w: %q", ErrRuleNotFound, source)
	}
	delete(m.rules, source)
	for i, s := range m.sources {
		if s == source {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes all rules.
func (m *Mapping) Clear() {
	m.sources = nil
	m.rules = make(map[string]Rule)
}

// Clone returns an independent copy of the mapping.
func (m *Mapping) Clone() *Mapping {
	c := NewMapping()
	for _, s := range m.sources {
		c.Set(s, m.rules[s])
	}
	return c
}

// MarshalJSON encodes the mapping as a JSON object keyed by source field,
// keys in insertion order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range m.sources {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.rules[s])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a mapping document, preserving the key order of
// the stored form.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: document is not a JSON object", ErrInvalidMapping)
	}

	out := NewMapping()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		source, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("%w: non-string key", ErrInvalidMapping)
		}
		var rule Rule
		if err := dec.Decode(&rule); err != nil {
			return fmt.Errorf("%w: rule for %q: %v", ErrInvalidMapping, source, err)
		}
		rule.DefaultValue = normalizeJSONValue(rule.DefaultValue)
		if _, dup := out.rules[source]; dup {
			return fmt.Errorf("%w: duplicate source field %q", ErrInvalidMapping, source)
		}
		out.Set(source, rule)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = *out
	return nil
}

// normalizeJSONValue converts json.Number defaults into int64 or float64
// so loaded defaults compare equal to programmatically set ones.
func normalizeJSONValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
