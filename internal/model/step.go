package model

// Step is the declarative unit of work: one configured invocation of a remote
// operation, or a reference to a group by name.
type Step struct {
	// ID is the explicit stable identifier other steps use in `needs` and in
	// references. Optional; the operation name is the fallback identity.
	ID          string         `yaml:"id,omitempty"`
	Operation   string         `yaml:"operation"`
	Description string         `yaml:"description,omitempty"`
	Arguments   map[string]any `yaml:"arguments,omitempty"`

	// Background marks a fire-and-forget step: the main line does not wait
	// for it; downstream steps join on it through `needs`.
	Background bool `yaml:"background,omitempty"`

	// If is a conditional expression forwarded verbatim to the remote
	// executor; this component never evaluates it.
	If string `yaml:"if,omitempty"`

	Loop *Loop `yaml:"loop,omitempty"`

	// Needs lists step ids this step must wait for, in declaration order.
	Needs []string `yaml:"needs,omitempty"`
}

// EffectiveID returns the step's identity within its scope: the explicit id
// when set, otherwise the operation name.
func (s *Step) EffectiveID() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Operation
}

// Clone returns a deep copy of the step. Argument values are copied one
// level deep, which is enough to keep callers from aliasing the maps.
func (s *Step) Clone() *Step {
	out := *s
	if s.Arguments != nil {
		out.Arguments = make(map[string]any, len(s.Arguments))
		for k, v := range s.Arguments {
			out.Arguments[k] = v
		}
	}
	if s.Needs != nil {
		out.Needs = append([]string(nil), s.Needs...)
	}
	if s.Loop != nil {
		loop := *s.Loop
		if s.Loop.Items != nil {
			loop.Items = append([]any(nil), s.Loop.Items...)
		}
		out.Loop = &loop
	}
	return &out
}
