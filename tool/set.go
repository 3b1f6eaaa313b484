package tool

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned when two capabilities share a name.
	ErrDuplicateName = errors.New("duplicate capability name")
	// ErrEmptyName is returned for a capability without a name.
	ErrEmptyName = errors.New("capability name is empty")
)

// Set is an ordered, name-unique collection of capabilities.
type Set struct {
	tools []Tool
	index map[string]int
}

// NewSet builds a Set, rejecting empty and duplicate names.
func NewSet(tools ...Tool) (*Set, error) {
	s := &Set{
		tools: make([]Tool, 0, len(tools)),
		index: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if err := s.add(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(t Tool) error {
	name := t.Descriptor().Name
	if name == "" {
		return ErrEmptyName
	}
	if _, exists := s.index[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	s.index[name] = len(s.tools)
	s.tools = append(s.tools, t)
	return nil
}

// Lookup returns the capability registered under name.
func (s *Set) Lookup(name string) (Tool, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.tools[i], true
}

// Tools returns the capabilities in registration order.
func (s *Set) Tools() []Tool {
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// Descriptors returns the descriptors in registration order.
func (s *Set) Descriptors() []Descriptor {
	out := make([]Descriptor, len(s.tools))
	for i, t := range s.tools {
		out[i] = t.Descriptor()
	}
	return out
}

// Names returns the capability names in registration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.tools))
	for i, t := range s.tools {
		out[i] = t.Descriptor().Name
	}
	return out
}

// Len returns the number of capabilities.
func (s *Set) Len() int { return len(s.tools) }
