package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is the root of a declarative scenario document.
type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Config      map[string]any    `yaml:"config,omitempty"`
	Steps       []*Step           `yaml:"steps"`
	Groups      map[string]*Group `yaml:"groups,omitempty"`
}

// Load decodes a scenario document and validates it.
func Load(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario document: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads and decodes a scenario document from disk.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	sc, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("in scenario file %s: %w", path, err)
	}
	return sc, nil
}

// Marshal encodes the scenario back into its document form.
func (sc *Scenario) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scenario document: %w", err)
	}
	return data, nil
}

// SaveFile writes the scenario document to disk.
func (sc *Scenario) SaveFile(path string) error {
	data, err := sc.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the structural invariants of the document: effective step
// ids must be unique within their immediate scope, loop attributes must be
// mutually exclusive, and group-reference steps must name a known group or
// operation (the latter is checked later, against the catalog).
func (sc *Scenario) Validate() error {
	if err := validateSteps("steps", sc.Steps); err != nil {
		return err
	}
	for name, grp := range sc.Groups {
		if grp == nil {
			return fmt.Errorf("group %q has no body", name)
		}
		if err := validateSteps(fmt.Sprintf("group %q", name), grp.Steps); err != nil {
			return err
		}
	}
	return nil
}

// Group looks up a group definition by name.
func (sc *Scenario) Group(name string) (*Group, bool) {
	g, ok := sc.Groups[name]
	return g, ok
}

func validateSteps(scope string, steps []*Step) error {
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s.Operation == "" {
			return fmt.Errorf("%s: step without an operation", scope)
		}
		id := s.EffectiveID()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%s: duplicate step id %q", scope, id)
		}
		seen[id] = struct{}{}
		if err := s.Loop.Validate(); err != nil {
			return fmt.Errorf("%s: step %q: %w", scope, id, err)
		}
	}
	return nil
}
