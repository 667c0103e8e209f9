package model

import "errors"

// Loop makes a step execute repeatedly. Exactly one of the three variants may
// be set: a fixed count, an item list, or a while-condition evaluated by the
// remote executor.
type Loop struct {
	Count int    `yaml:"count,omitempty"`
	Items []any  `yaml:"items,omitempty"`
	While string `yaml:"while,omitempty"`
}

var errLoopVariants = errors.New("loop must set exactly one of count, items, or while")

// Validate enforces the mutual exclusion of the loop variants. A nil loop is
// valid (the step runs once).
func (l *Loop) Validate() error {
	if l == nil {
		return nil
	}
	set := 0
	if l.Count != 0 {
		if l.Count < 0 {
			return errors.New("loop count cannot be negative")
		}
		set++
	}
	if len(l.Items) > 0 {
		set++
	}
	if l.While != "" {
		set++
	}
	if set != 1 {
		return errLoopVariants
	}
	return nil
}
