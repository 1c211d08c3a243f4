package types

import "fmt"

// Merge modes.
const (
	ModeUniform = "uniform"
	ModeMapped  = "mapped"
)

// MergeRequest is the immutable description of one merge invocation. It
// is constructed by the caller, consumed by a single orchestrator call,
// and discarded.
type MergeRequest struct {
	Mode string

	// Inputs are the input container paths. Uniform mode requires at
	// least two; the first is the schema baseline. Mapped mode ignores
	// Inputs and uses Primary/Secondary.
	Inputs []string

	// Primary and Secondary are the mapped-mode containers. Primary
	// supplies the output schema and CRS; Secondary's attributes are
	// fused in through the field mapping.
	Primary   string
	Secondary string

	// Output is the output container path.
	Output string

	// Layers restricts the merge to the named layers. Empty means all
	// layers of the baseline/primary container.
	Layers []string

	// DefaultCRS is assumed for layers that declare no coordinate
	// reference. Empty leaves undeclared layers undeclared.
	DefaultCRS CRS

	// Mappings supplies a mapping per layer name (mapped mode).
	// MappingFile names a mapping document applied to every fused layer
	// without a Mappings entry. A layer with neither gets an
	// auto-generated default mapping.
	Mappings    map[string]*Mapping
	MappingFile string

	// Overwrite allows replacing an existing output container.
	Overwrite bool
}

// Validate checks the request shape. Returns a KindInvalidInput
// MergeError on failure.
func (r MergeRequest) Validate() error {
	if r.Output == "" {
		return NewMergeError(KindInvalidInput, "", "output path is required")
	}
	switch r.Mode {
	case ModeUniform:
		if len(r.Inputs) < 2 {
			return NewMergeError(KindInvalidInput, "",
				"uniform merge requires at least two input containers, got %d", len(r.Inputs))
		}
	case ModeMapped:
		if r.Primary == "" || r.Secondary == "" {
			return NewMergeError(KindInvalidInput, "",
				"mapped merge requires both a primary and a secondary container")
		}
	default:
		return NewMergeError(KindInvalidInput, "", "unknown merge mode %q", r.Mode)
	}
	return nil
}

// TemplateRequest describes one mapping-template generation call: produce
// a default mapping for the named layer of the primary/secondary pair and
// persist it to Output for human review.
type TemplateRequest struct {
	Primary   string
	Secondary string
	Layer     string
	Output    string

	// IncludeUnmatched also emits new_field rules for source fields with
	// no name match in the primary schema.
	IncludeUnmatched bool

	// Overwrite allows replacing an existing mapping file.
	Overwrite bool
}

// Validate checks the request shape.
func (r TemplateRequest) Validate() error {
	if r.Primary == "" || r.Secondary == "" {
		return NewMergeError(KindInvalidInput, "", "template generation requires both containers")
	}
	if r.Layer == "" {
		return NewMergeError(KindInvalidInput, "", "layer name is required")
	}
	if r.Output == "" {
		return NewMergeError(KindInvalidInput, "", "output mapping path is required")
	}
	return nil
}

// String identifies the request in logs without dumping paths twice.
func (r MergeRequest) String() string {
	if r.Mode == ModeMapped {
		return fmt.Sprintf("mapped merge %s + %s -> %s", r.Primary, r.Secondary, r.Output)
	}
	return fmt.Sprintf("uniform merge of %d containers -> %s", len(r.Inputs), r.Output)
}
