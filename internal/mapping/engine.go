// Package mapping builds, persists, validates, and applies field mappings
// from a source layer schema to a target schema. It is the editable half
// of schema reconciliation: a generated mapping is persisted as a JSON
// document, hand-tuned by the user, and fed back into a fusion merge.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/meridianworks/geofuse/pkg/convert"
	"github.com/meridianworks/geofuse/pkg/types"
)

// GeometryTarget is the reserved target name that makes a rule act on the
// feature geometry instead of an attribute field. The rule's target_type
// names the geometry kind to convert to.
const GeometryTarget = types.GeometryTargetField

// Engine holds one editable mapping and applies it to features.
type Engine struct {
	mapping  *types.Mapping
	registry *Registry
	log      zerolog.Logger
}

// NewEngine creates an engine with an empty mapping and the built-in
// custom-function registry.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		mapping:  types.NewMapping(),
		registry: NewRegistry(),
		log:      log.With().Str("component", "mapping").Logger(),
	}
}

// Registry returns the engine's custom-function registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Mapping returns the engine's current mapping.
func (e *Engine) Mapping() *types.Mapping {
	return e.mapping
}

// SetMapping replaces the engine's current mapping.
func (e *Engine) SetMapping(m *types.Mapping) {
	if m == nil {
		m = types.NewMapping()
	}
	e.mapping = m
}

// Create builds the default best-effort mapping from a source schema to a
// target schema and installs it as the current mapping. Source fields
// whose name matches a target field get a direct rule on matching types
// and a type_convert rule otherwise. Source fields with no name match are
// left unmapped unless includeUnmatched is set, in which case they become
// new_field rules for the user to review.
func (e *Engine) Create(source, target *types.Schema, includeUnmatched bool) *types.Mapping {
	m := types.NewMapping()
	for _, f := range source.Fields() {
		targetType, ok := target.FieldType(f.Name)
		switch {
		case ok && targetType == f.Type:
			m.Set(f.Name, types.Rule{
				TargetField: f.Name,
				Conversion:  types.ConvDirect,
			})
		case ok:
			m.Set(f.Name, types.Rule{
				TargetField: f.Name,
				Conversion:  types.ConvTypeConvert,
				SourceType:  f.Type,
				TargetType:  targetType,
			})
		case includeUnmatched:
			m.Set(f.Name, types.Rule{
				TargetField: f.Name,
				Conversion:  types.ConvNewField,
				FieldType:   f.Type,
			})
		}
	}
	e.mapping = m
	e.log.Debug().Int("rules", m.Len()).Msg("created default mapping")
	return m
}

// Load replaces the current mapping with the one decoded from data.
func (e *Engine) Load(data []byte) error {
	m := types.NewMapping()
	if err := json.Unmarshal(data, m); err != nil {
		return types.WrapMergeError(types.KindMappingInvalid, "", err, "decoding mapping document")
	}
	e.mapping = m
	return nil
}

// Save encodes the current mapping in its canonical serialized form:
// two-space-indented JSON with source keys in insertion order and a
// trailing newline. Loading a canonical document and saving it again
// reproduces it byte for byte.
func (e *Engine) Save() ([]byte, error) {
	data, err := json.MarshalIndent(e.mapping, "", "  ")
	if err != nil {
		return nil, types.WrapMergeError(types.KindMappingInvalid, "", err, "encoding mapping document")
	}
	return append(data, '\n'), nil
}

// LoadFile loads the mapping document at path.
func (e *Engine) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.WrapMergeError(types.KindInvalidInput, "", err, "reading mapping file")
	}
	return e.Load(data)
}

// SaveFile writes the canonical form to path. An existing file is only
// replaced when overwrite is set; mapping documents are hand-edited
// artifacts and are not clobbered silently.
func (e *Engine) SaveFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return types.NewMergeError(types.KindInvalidInput, "",
				"mapping file %s already exists", path)
		}
	}
	data, err := e.Save()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.WrapMergeError(types.KindIOFailure, "", err, "writing mapping file")
	}
	return nil
}

// Update inserts or replaces the rule for a source field. No validation
// happens here; call Validate or Apply.
func (e *Engine) Update(source string, rule types.Rule) {
	e.mapping.Set(source, rule)
}

// Remove deletes the rule for a source field.
func (e *Engine) Remove(source string) error {
	return e.mapping.Remove(source)
}

// Clear removes all rules.
func (e *Engine) Clear() {
	e.mapping.Clear()
}

// Validate checks the current mapping against the declared source schema
// and returns every problem found. An empty result means the mapping is
// usable. Checks: non-empty target fields, complete type declarations per
// conversion kind, registered custom functions, source fields present in
// the source schema, and unique realized target names.
func (e *Engine) Validate(source *types.Schema) []string {
	var problems []string
	seenTargets := make(map[string]string)

	for _, src := range e.mapping.Sources() {
		rule, _ := e.mapping.Rule(src)

		if rule.TargetField == "" {
			problems = append(problems, fmt.Sprintf("source field %q: target_field is empty", src))
			continue
		}
		if !types.IsValidConversion(rule.Conversion) {
			problems = append(problems, fmt.Sprintf("source field %q: unknown conversion %q", src, rule.Conversion))
			continue
		}

		if rule.TargetField == GeometryTarget {
			if !types.IsValidGeometryKind(rule.TargetType) {
				problems = append(problems, fmt.Sprintf(
					"geometry rule %q: target_type %q is not a geometry kind", src, rule.TargetType))
			}
			continue
		}

		if !source.Has(src) {
			problems = append(problems, fmt.Sprintf("source field %q does not exist in the source schema", src))
		}

		switch rule.Conversion {
		case types.ConvTypeConvert:
			if rule.SourceType == "" || rule.TargetType == "" {
				problems = append(problems, fmt.Sprintf(
					"source field %q: type_convert requires both source_type and target_type", src))
			}
		case types.ConvNewField:
			if rule.FieldType == "" {
				problems = append(problems, fmt.Sprintf(
					"source field %q: new_field requires field_type", src))
			}
		case types.ConvCustom:
			if rule.FieldType == "" {
				problems = append(problems, fmt.Sprintf(
					"source field %q: custom requires field_type", src))
			}
			if !e.registry.Has(rule.Function) {
				problems = append(problems, fmt.Sprintf(
					"source field %q: custom function %q is not registered", src, rule.Function))
			}
		}

		if prev, ok := seenTargets[rule.TargetField]; ok {
			problems = append(problems, fmt.Sprintf(
				"target field %q claimed by both %q and %q", rule.TargetField, prev, src))
		}
		seenTargets[rule.TargetField] = src
	}
	return problems
}

// Apply transforms one source feature into a feature conforming to the
// realized target schema. Per rule: the source property (null marker when
// absent) is resolved against the rule default, then converted per the
// rule kind. A conversion failure substitutes the rule default and is
// reported as a diagnostic, never an error. Target fields not covered by
// any rule are emitted as explicit nulls. Geometry passes through
// unchanged unless a rule targets GeometryTarget.
func (e *Engine) Apply(f types.Feature, layer string, target *types.Schema) (types.Feature, []types.Diagnostic) {
	var diags []types.Diagnostic
	out := types.NewFeature(target, f.Geometry)

	for _, src := range e.mapping.Sources() {
		rule, _ := e.mapping.Rule(src)

		if rule.TargetField == GeometryTarget {
			geom, err := convert.ConvertGeometry(f.Geometry, rule.TargetType)
			if err != nil {
				diags = append(diags, e.conversionDiag(layer, src, f.Geometry, err))
				continue
			}
			out.Geometry = geom
			continue
		}
		if !target.Has(rule.TargetField) {
			// Realized target schemas always cover rule targets; a stale
			// mapping applied to the wrong layer does not.
			diags = append(diags, types.Diagnostic{
				Kind:    types.KindConversionFailure,
				Layer:   layer,
				Field:   src,
				Message: fmt.Sprintf("target field %q is not in the output schema", rule.TargetField),
			})
			continue
		}

		value := f.Property(src)
		if types.IsNull(value) {
			// Null and missing source values resolve to the rule default,
			// which is emitted uncoerced.
			out.Properties[rule.TargetField] = convert.ResolveNull(value, rule.DefaultValue)
			continue
		}

		converted, err := e.convertValue(value, rule, target)
		if err != nil {
			diags = append(diags, e.conversionDiag(layer, src, value, err))
			converted = rule.DefaultValue
		}
		out.Properties[rule.TargetField] = converted
	}
	return out, diags
}

// convertValue applies the conversion appropriate to the rule kind. The
// realized target schema's type is authoritative: when the primary schema
// kept a different type than the rule declared, values coerce to the
// schema's type.
func (e *Engine) convertValue(value any, rule types.Rule, target *types.Schema) (any, error) {
	targetType, _ := target.FieldType(rule.TargetField)

	switch rule.Conversion {
	case types.ConvDirect:
		return convert.Convert(value, convert.InferType(value), targetType)
	case types.ConvTypeConvert:
		return convert.Convert(value, rule.SourceType, targetType)
	case types.ConvNewField:
		return convert.Convert(value, convert.InferType(value), targetType)
	case types.ConvCustom:
		fn, err := e.registry.Lookup(rule.Function)
		if err != nil {
			return nil, err
		}
		return fn(value, rule)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownConversion, rule.Conversion)
	}
}

func (e *Engine) conversionDiag(layer, field string, value any, err error) types.Diagnostic {
	e.log.Warn().
		Str("layer", layer).
		Str("field", field).
		Interface("value", value).
		Err(err).
		Msg("conversion failed, using rule default")
	return types.Diagnostic{
		Kind:    types.KindConversionFailure,
		Layer:   layer,
		Field:   field,
		Message: fmt.Sprintf("value %v: %v", value, err),
	}
}
