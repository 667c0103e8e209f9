// Package reference parses and serializes inter-step value references.
//
// A reference points an argument of one step at the result of another. It
// appears in two wire shapes: a template string like
// `${{ steps.fetch.result.body.token }}` and a structured mapping like
// `{ref: steps.fetch.body.token}`. Both normalize to the same Ref value on
// ingestion; only Format produces the template string again.
//
// The two shapes disagree about the literal `result` segment: the template
// form requires it after the step id, the structured form omits it. The
// canonical Ref stores the field path without the `result` segment, and
// Format re-inserts it.
package reference

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope says which namespace the referenced step id lives in.
type Scope string

const (
	// ScopeSteps addresses a step in the top-level sequence.
	ScopeSteps Scope = "steps"
	// ScopeGroup addresses a sibling step inside the same group.
	ScopeGroup Scope = "group"
)

// Ref is the canonical, decoded form of a reference.
type Ref struct {
	Scope  Scope
	StepID string
	// FieldPath is the dot-separated path below the step's result, without
	// the leading `result` segment. Empty means the whole result.
	FieldPath string
}

// templatePattern matches the textual form `${{ scope.stepId.result[.path] }}`.
// Whitespace inside the braces is tolerated; the payload itself is rigid.
var templatePattern = regexp.MustCompile(
	`^\$\{\{\s*(steps|group)\.([A-Za-z0-9_][A-Za-z0-9_-]*)\.result((?:\.[A-Za-z0-9_][A-Za-z0-9_-]*)*)\s*\}\}$`)

// Parse decodes a parameter value into a Ref. It accepts the template string
// form and the structured `{ref: ...}` mapping form. The second return value
// reports whether the value was a reference at all.
//
// Parsing is purely syntactic: the referenced step id is not checked for
// existence. That is the caller's concern (see Resolve).
func Parse(value any) (*Ref, bool) {
	switch v := value.(type) {
	case string:
		return parseTemplate(v)
	case map[string]any:
		if len(v) != 1 {
			return nil, false
		}
		raw, ok := v["ref"].(string)
		if !ok {
			return nil, false
		}
		return parseStructured(raw)
	case *Ref:
		return v, true
	}
	return nil, false
}

// parseTemplate decodes the `${{ scope.stepId.result[.path] }}` form.
func parseTemplate(s string) (*Ref, bool) {
	m := templatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, false
	}
	return &Ref{
		Scope:     Scope(m[1]),
		StepID:    m[2],
		FieldPath: strings.TrimPrefix(m[3], "."),
	}, true
}

// parseStructured decodes the `scope.stepId[.path]` payload of a structured
// reference. Unlike the template form there is no `result` segment; the field
// path starts immediately after the step id.
func parseStructured(raw string) (*Ref, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ".", 3)
	if len(parts) < 2 {
		return nil, false
	}
	scope := Scope(parts[0])
	if scope != ScopeSteps && scope != ScopeGroup {
		return nil, false
	}
	if parts[1] == "" {
		return nil, false
	}
	ref := &Ref{Scope: scope, StepID: parts[1]}
	if len(parts) == 3 {
		ref.FieldPath = parts[2]
	}
	return ref, true
}

// String renders the canonical template form, always with the explicit
// `result` segment.
func (r *Ref) String() string {
	if r.FieldPath == "" {
		return fmt.Sprintf("${{ %s.%s.result }}", r.Scope, r.StepID)
	}
	return fmt.Sprintf("${{ %s.%s.result.%s }}", r.Scope, r.StepID, r.FieldPath)
}

// Format renders a Ref as the remote-facing template string. It is the only
// serialization the codec produces.
func Format(r *Ref) string {
	return r.String()
}

// Rewrite replaces a reference-valued parameter with its remote-facing
// template string. Non-reference values pass through unchanged.
func Rewrite(value any) any {
	if ref, ok := Parse(value); ok {
		return Format(ref)
	}
	return value
}

// DanglingError reports a reference whose target step does not exist. It is
// an ordinary error so UI-facing resolvers can surface it without panicking.
type DanglingError struct {
	Ref *Ref
}

func (e *DanglingError) Error() string {
	return fmt.Sprintf("reference %q points at unknown step %q", e.Ref.String(), e.Ref.StepID)
}

// Resolve checks a reference's target against a set of known step ids and
// returns a DanglingError when the target is missing. Resolution is deferred
// to this helper (and ultimately the remote executor); graph construction
// never fails on a dangling reference.
func Resolve(r *Ref, known func(stepID string) bool) error {
	if known != nil && known(r.StepID) {
		return nil
	}
	return &DanglingError{Ref: r}
}
