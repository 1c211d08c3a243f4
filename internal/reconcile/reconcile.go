// Package reconcile compares layer schemas for exact compatibility and
// derives the realized target schema of a fusion merge from a primary
// schema and a field mapping.
package reconcile

import (
	"sort"

	"github.com/meridianworks/geofuse/pkg/types"
)

// GeometryKindDiff is the diff entry reported when two schemas disagree
// on geometry kind rather than on an attribute field.
const GeometryKindDiff = "geometry-kind"

// Compare checks two schemas for exact compatibility: identical
// field-name sets, identical type tag per field, identical geometry kind.
// There is no implicit widening. The returned list names every field that
// differs in presence or type, sorted; it is empty when compatible.
func Compare(a, b *types.Schema) (bool, []string) {
	var diff []string
	if a.GeometryKind() != b.GeometryKind() {
		diff = append(diff, GeometryKindDiff)
	}
	for _, f := range a.Fields() {
		t, ok := b.FieldType(f.Name)
		if !ok || t != f.Type {
			diff = append(diff, f.Name)
		}
	}
	for _, f := range b.Fields() {
		if !a.Has(f.Name) {
			diff = append(diff, f.Name)
		}
	}
	sort.Strings(diff)
	return len(diff) == 0, diff
}

// DeriveTarget produces the schema the output layer of a fusion merge
// must have, given the primary schema, the source (secondary) schema, and
// the mapping between them.
//
// Field order follows the primary schema, with fields introduced by the
// mapping appended in rule-declaration order. A direct or type_convert
// rule whose target already exists in the primary keeps the primary's
// type; otherwise the rule's declared type applies (the source field's
// type for direct, target_type for type_convert). A new_field rule adds
// its target with the declared field_type even when the primary lacks it.
// Two rules landing on one target with different types is a
// KindMappingInvalid error, never silently resolved.
func DeriveTarget(primary, source *types.Schema, m *types.Mapping) (*types.Schema, error) {
	target := primary.Clone()

	// declared tracks the type each rule claimed for its target so that
	// conflicting declarations are caught even when the primary already
	// defines the field.
	declared := make(map[string]string)

	for _, src := range m.Sources() {
		rule, _ := m.Rule(src)
		if rule.TargetField == "" {
			return nil, types.NewMergeError(types.KindMappingInvalid, "",
				"rule for source field %q has no target field", src)
		}

		if rule.TargetField == types.GeometryTargetField {
			// A geometry rule changes the layer's geometry kind, not its
			// attribute set.
			if !types.IsValidGeometryKind(rule.TargetType) {
				return nil, types.NewMergeError(types.KindMappingInvalid, "",
					"geometry rule for %q declares target type %q, not a geometry kind", src, rule.TargetType)
			}
			rebuilt, err := types.NewSchema(rule.TargetType, target.Fields()...)
			if err != nil {
				return nil, types.WrapMergeError(types.KindMappingInvalid, "", err, "deriving target schema")
			}
			target = rebuilt
			continue
		}

		var declaredType string
		switch rule.Conversion {
		case types.ConvDirect:
			t, ok := source.FieldType(src)
			if !ok {
				return nil, types.NewMergeError(types.KindMappingInvalid, "",
					"source field %q does not exist in the source schema", src)
			}
			declaredType = t
		case types.ConvTypeConvert:
			if rule.TargetType == "" {
				return nil, types.NewMergeError(types.KindMappingInvalid, "",
					"type_convert rule for %q declares no target type", src)
			}
			declaredType = rule.TargetType
		case types.ConvNewField, types.ConvCustom:
			if rule.FieldType == "" {
				return nil, types.NewMergeError(types.KindMappingInvalid, "",
					"%s rule for %q declares no field type", rule.Conversion, src)
			}
			declaredType = rule.FieldType
		default:
			return nil, types.NewMergeError(types.KindMappingInvalid, "",
				"rule for %q has unknown conversion %q", src, rule.Conversion)
		}

		if prev, ok := declared[rule.TargetField]; ok && prev != declaredType {
			return nil, types.NewMergeError(types.KindMappingInvalid, "",
				"rules disagree on target field %q: %s vs %s", rule.TargetField, prev, declaredType)
		}
		declared[rule.TargetField] = declaredType

		if target.Has(rule.TargetField) {
			// direct/type_convert defer to the primary's existing type;
			// a new_field rule colliding with a differently typed primary
			// field is a declaration conflict.
			if rule.Conversion == types.ConvNewField {
				if t, _ := target.FieldType(rule.TargetField); t != declaredType {
					return nil, types.NewMergeError(types.KindMappingInvalid, "",
						"new_field %q collides with existing field of type %s", rule.TargetField, t)
				}
			}
			continue
		}
		if err := target.AddField(types.Field{Name: rule.TargetField, Type: declaredType}); err != nil {
			return nil, types.WrapMergeError(types.KindMappingInvalid, "", err, "deriving target schema")
		}
	}
	return target, nil
}
