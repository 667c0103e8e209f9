package catalog

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/flowgridgo/internal/reference"
)

// ParamDefinition describes a single parameter an operation accepts.
type ParamDefinition struct {
	// Name is the parameter name, taken from the manifest block label or the
	// wire payload.
	Name string

	// Type is the value type this parameter is expected to have.
	Type cty.Type

	// Description is an optional human-readable explanation.
	Description string

	// Default is used when a step does not declare the argument. Nil means
	// the parameter is required.
	Default *cty.Value

	// Options optionally enumerates the allowed values; the UI renders these
	// as a select widget.
	Options []string
}

// Operation is one remotely executable capability.
type Operation struct {
	Name        string
	Category    string
	Description string
	Params      map[string]ParamDefinition
}

// ParamNames returns the operation's parameter names in a stable order.
func (op *Operation) ParamNames() []string {
	names := make([]string, 0, len(op.Params))
	for name := range op.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultArguments resolves the operation's defaulted parameters into plain
// Go values, the shape argument values take everywhere outside the manifest
// loader.
func (op *Operation) DefaultArguments() map[string]any {
	out := make(map[string]any)
	for name, def := range op.Params {
		if def.Default == nil {
			continue
		}
		native, err := ctyToNative(*def.Default)
		if err != nil {
			// Defaults are validated against their declared type at load
			// time, so an unconvertible one is a manifest-loader bug.
			panic(fmt.Sprintf("catalog: default for %s.%s not convertible: %v", op.Name, name, err))
		}
		out[name] = native
	}
	return out
}

// Catalog maps operation names to their definitions.
type Catalog map[string]*Operation

// Lookup finds an operation definition by name.
func (c Catalog) Lookup(name string) (*Operation, bool) {
	op, ok := c[name]
	return op, ok
}

// Names returns all operation names in a stable order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckArguments verifies that declared argument values are convertible to
// the operation's declared parameter types and that enumerated options are
// respected. Reference-valued arguments are exempt: their concrete value only
// exists at execution time, on the remote side. Unknown argument names are
// reported too; the remote executor would reject them anyway.
func (c Catalog) CheckArguments(opName string, args map[string]any) error {
	op, ok := c.Lookup(opName)
	if !ok {
		return fmt.Errorf("unknown operation %q", opName)
	}
	for name, value := range args {
		def, ok := op.Params[name]
		if !ok {
			return fmt.Errorf("operation %q has no parameter %q", opName, name)
		}
		if _, isRef := reference.Parse(value); isRef {
			continue
		}
		ctyVal, err := nativeToCty(value)
		if err != nil {
			return fmt.Errorf("argument %q of %q: %w", name, opName, err)
		}
		if _, err := convert.Convert(ctyVal, def.Type); err != nil {
			return fmt.Errorf("argument %q of %q: expected %s: %w",
				name, opName, def.Type.FriendlyName(), err)
		}
		if len(def.Options) > 0 {
			if err := checkOption(def, value); err != nil {
				return fmt.Errorf("argument %q of %q: %w", name, opName, err)
			}
		}
	}
	return nil
}

func checkOption(def ParamDefinition, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("enumerated parameter must be a string, got %T", value)
	}
	for _, opt := range def.Options {
		if s == opt {
			return nil
		}
	}
	return fmt.Errorf("value %q is not one of %v", s, def.Options)
}
