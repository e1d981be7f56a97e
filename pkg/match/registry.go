package match

import (
	"strings"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
)

// Registry holds the named match sets of a session. The default set always
// exists and sets are never deleted. A Registry is not safe for concurrent use.
type Registry struct {
	sets  map[string]*Set
	order []string
}

// NewRegistry returns a registry holding an empty default set.
func NewRegistry() *Registry {
	r := &Registry{sets: make(map[string]*Set)}
	r.put(NewSet(constants.DefaultMatchSet, nil))
	return r
}

func (r *Registry) put(s *Set) {
	r.sets[s.Name()] = s
	r.order = append(r.order, s.Name())
}

// Create adds a set named name built from initial.
func (r *Registry) Create(name string, initial []Match) (*Set, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, exists := r.sets[name]; exists {
		return nil, errors.NewAlreadyExistsError("match set", name)
	}
	s := NewSet(name, initial)
	r.put(s)
	return s, nil
}

// Replace swaps the content of the named set, creating it if needed. It is
// used when restoring persisted state.
func (r *Registry) Replace(name string, matches []Match) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s := NewSet(name, matches)
	if _, exists := r.sets[name]; exists {
		r.sets[name] = s
		return nil
	}
	r.put(s)
	return nil
}

// Get returns the named set.
func (r *Registry) Get(name string) (*Set, error) {
	s, ok := r.sets[name]
	if !ok {
		return nil, errors.NewNotFoundError("match set", name)
	}
	return s, nil
}

// Has reports whether a set named name exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.sets[name]
	return ok
}

// Names returns set names in creation order, default first.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Add adds m to the named set.
func (r *Registry) Add(name string, m Match) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	return s.Add(m)
}

// Remove removes m from the named set.
func (r *Registry) Remove(name string, m Match) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	return s.Remove(m)
}

// ValidateName refuses empty names and names reserved for rule output.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewValidationError("name", name, "match set name is empty")
	}
	if name == constants.RuleOutputMatchSet {
		return errors.NewValidationError("name", name, "match set name is reserved")
	}
	return nil
}
