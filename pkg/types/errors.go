package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a merge failure. Fatal kinds abort the whole merge;
// KindConversionFailure is recovered per value and only ever appears in
// diagnostics.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "invalid_input"
	KindSchemaIncompatible ErrorKind = "schema_incompatible"
	KindMappingInvalid     ErrorKind = "mapping_invalid"
	KindConversionFailure  ErrorKind = "conversion_failure"
	KindIOFailure          ErrorKind = "io_failure"
)

// MergeError is the single error type returned by merge operations. It
// carries the taxonomy kind, the layer being processed when the failure
// occurred (may be empty), and the underlying cause.
type MergeError struct {
	Kind  ErrorKind
	Layer string
	Msg   string
	Err   error
}

func (e *MergeError) Error() string {
	s := string(e.Kind)
	if e.Layer != "" {
		s += " [layer " + e.Layer + "]"
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// NewMergeError builds a MergeError with a formatted message.
func NewMergeError(kind ErrorKind, layer string, format string, args ...any) *MergeError {
	return &MergeError{Kind: kind, Layer: layer, Msg: fmt.Sprintf(format, args...)}
}

// WrapMergeError builds a MergeError around an underlying cause.
func WrapMergeError(kind ErrorKind, layer string, err error, msg string) *MergeError {
	return &MergeError{Kind: kind, Layer: layer, Msg: msg, Err: err}
}

// KindOf returns the taxonomy kind of err, or the empty kind when err is
// not a MergeError.
func KindOf(err error) ErrorKind {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// Collaborator failures surfaced by Reader and Writer implementations.
var (
	ErrNotFound         = errors.New("container not found")
	ErrInvalidContainer = errors.New("not a valid container")
	ErrAlreadyExists    = errors.New("output container already exists")
	ErrLayerNotFound    = errors.New("layer not found")
	ErrWrite            = errors.New("write failed")
	ErrFinalize         = errors.New("finalize failed")
)

// Value and schema errors.
var (
	ErrConversion          = errors.New("conversion failed")
	ErrInvalidSchema       = errors.New("invalid schema")
	ErrInvalidFieldType    = errors.New("invalid field type")
	ErrInvalidGeometryKind = errors.New("invalid geometry kind")
	ErrDuplicateField      = errors.New("duplicate field name")
	ErrUnsupportedCRS      = errors.New("unsupported coordinate reference pair")
)

// Mapping errors.
var (
	ErrInvalidMapping    = errors.New("invalid mapping")
	ErrRuleNotFound      = errors.New("mapping rule not found")
	ErrUnknownConversion = errors.New("unknown conversion kind")
	ErrUnknownFunction   = errors.New("unknown custom function")
)

// Diagnostic is one entry of the ordered, human-readable diagnostic list a
// merge operation reports beside its result. Diagnostics never abort a
// merge on their own.
type Diagnostic struct {
	Kind    ErrorKind `json:"kind"`
	Layer   string    `json:"layer,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (d Diagnostic) String() string {
	s := string(d.Kind)
	if d.Layer != "" {
		s += " [layer " + d.Layer + "]"
	}
	if d.Field != "" {
		s += " [field " + d.Field + "]"
	}
	return s + ": " + d.Message
}
