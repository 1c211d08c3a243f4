package mapping

import (
	"fmt"
	"strings"

	"github.com/meridianworks/geofuse/pkg/types"
)

// Func is a registered custom conversion. It receives the raw source
// value (never the null marker; nulls resolve to the rule default before
// the hook runs) and the full rule for its parameters.
type Func func(value any, rule types.Rule) (any, error)

// Registry resolves the function names used by custom rules. The set of
// callable hooks is closed: a name not registered here is a validation
// error, never code execution.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates a registry preloaded with the built-in string
// hooks: trim, upper, lower.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.funcs["trim"] = stringHook(strings.TrimSpace)
	r.funcs["upper"] = stringHook(strings.ToUpper)
	r.funcs["lower"] = stringHook(strings.ToLower)
	return r
}

// Register adds a named function. Returns an error when the name is
// empty, already taken, or fn is nil.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("%w: name and function are required", types.ErrUnknownFunction)
	}
	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("function %q is already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the named function.
// Returns ErrUnknownFunction when the name is not registered.
func (r *Registry) Lookup(name string) (Func, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFunction, name)
	}
	return fn, nil
}

// Has reports whether a function name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// stringHook lifts a string transform into a Func, stringifying non-string
// input first.
func stringHook(f func(string) string) Func {
	return func(value any, _ types.Rule) (any, error) {
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		return f(s), nil
	}
}
