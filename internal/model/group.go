package model

// Group is a named, reusable ordered list of steps. A step whose operation
// matches a group name expands into the group's steps at graph-construction
// time.
type Group struct {
	Description string  `yaml:"description,omitempty"`
	Steps       []*Step `yaml:"steps"`
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	out := &Group{Description: g.Description}
	for _, s := range g.Steps {
		out.Steps = append(out.Steps, s.Clone())
	}
	return out
}
