package match

import (
	"github.com/agentstation/matchrules/pkg/errors"
)

// Set is a named, ordered, duplicate-free collection of matches together with
// its ambiguity partition. The partition is recomputed on every mutation.
// A Set is not safe for concurrent use.
type Set struct {
	name      string
	matches   []Match
	index     map[Match]struct{}
	partition Partition
}

// NewSet builds a set from initial. Invalid and repeated matches are dropped.
func NewSet(name string, initial []Match) *Set {
	s := &Set{
		name:    name,
		matches: make([]Match, 0, len(initial)),
		index:   make(map[Match]struct{}, len(initial)),
	}
	for _, m := range initial {
		if !m.Valid() {
			continue
		}
		if _, dup := s.index[m]; dup {
			continue
		}
		s.index[m] = struct{}{}
		s.matches = append(s.matches, m)
	}
	s.partition = Resolve(s.matches)
	return s
}

// Name returns the set name.
func (s *Set) Name() string { return s.name }

// Len returns the number of matches.
func (s *Set) Len() int { return len(s.matches) }

// Matches returns a copy of the matches in insertion order.
func (s *Set) Matches() []Match {
	out := make([]Match, len(s.matches))
	copy(out, s.matches)
	return out
}

// Contains reports whether m is in the set.
func (s *Set) Contains(m Match) bool {
	_, ok := s.index[m]
	return ok
}

// Partition returns the current ambiguity partition.
func (s *Set) Partition() Partition { return s.partition }

// Add appends m. It fails without mutation when m has an unset side or is
// already present.
func (s *Set) Add(m Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if s.Contains(m) {
		return errors.NewAlreadyExistsError("match", m.String())
	}
	s.index[m] = struct{}{}
	s.matches = append(s.matches, m)
	s.partition = Resolve(s.matches)
	return nil
}

// Remove deletes m. It fails without mutation when m is absent.
func (s *Set) Remove(m Match) error {
	if !s.Contains(m) {
		return errors.NewNotFoundError("match", m.String())
	}
	delete(s.index, m)
	for i, existing := range s.matches {
		if existing == m {
			s.matches = append(s.matches[:i:i], s.matches[i+1:]...)
			break
		}
	}
	s.partition = Resolve(s.matches)
	return nil
}
