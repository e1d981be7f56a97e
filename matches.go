package matchrules

import (
	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/entities"
	"github.com/agentstation/matchrules/pkg/match"
)

// MatchSetView is a read-only copy of a match set and its partition.
type MatchSetView struct {
	Name      string          `json:"name"`
	Matches   []match.Match   `json:"matches"`
	Partition match.Partition `json:"partition"`
}

// CreateMatchSet creates a named match set. Invalid and duplicate initial
// matches are dropped.
func (s *Session) CreateMatchSet(name string, initial []match.Match) error {
	var change MatchSetChange
	var result compare.Result
	err := s.mutate("create match set", func() error {
		set, err := s.sets.Create(name, initial)
		if err != nil {
			return err
		}
		change = MatchSetChange{Set: name, Action: MatchSetCreated, Matches: set.Len()}
		result = s.refreshComparisonLocked()
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("match_set", name).Int("matches", change.Matches).Msg("Match set created")
	s.hooks.matchSetChanged(change)
	s.hooks.comparisonUpdated(result)
	return nil
}

// CreateReferenceMatchSet creates a match set from the sources whose
// sourceField names an existing target, such as an asset_id already recorded
// on a sensor. An empty sourceField means asset_id.
func (s *Session) CreateReferenceMatchSet(name, sourceField string) error {
	if sourceField == "" {
		sourceField = constants.ReferenceIDField
	}
	s.mu.RLock()
	initial := referenceMatches(s.sources, s.targets, sourceField)
	s.mu.RUnlock()
	return s.CreateMatchSet(name, initial)
}

func referenceMatches(sources, targets *entities.Collection, field string) []match.Match {
	var out []match.Match
	for _, id := range sources.IDs() {
		v, ok := sources.Value(id, field)
		if !ok {
			continue
		}
		target, ok := entities.NormalizeID(v)
		if !ok || !targets.Has(target) {
			continue
		}
		out = append(out, match.New(id, target))
	}
	return out
}

// AddMatch adds m to the named set. It refuses invalid and duplicate matches
// and unknown sets, leaving the session untouched.
func (s *Session) AddMatch(set string, m match.Match) error {
	return s.changeMatch(set, m, MatchAdded, "add match", s.sets.Add)
}

// RemoveMatch removes m from the named set.
func (s *Session) RemoveMatch(set string, m match.Match) error {
	return s.changeMatch(set, m, MatchRemoved, "remove match", s.sets.Remove)
}

func (s *Session) changeMatch(set string, m match.Match, action, operation string, fn func(string, match.Match) error) error {
	var change MatchSetChange
	var result compare.Result
	err := s.mutate(operation, func() error {
		if err := fn(set, m); err != nil {
			return err
		}
		ms, _ := s.sets.Get(set)
		change = MatchSetChange{Set: set, Action: action, Match: &m, Matches: ms.Len()}
		result = s.refreshComparisonLocked()
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug().Str("match_set", set).Str("action", action).Stringer("match", m).Msg("Match set changed")
	s.hooks.matchSetChanged(change)
	s.hooks.comparisonUpdated(result)
	return nil
}

// MatchSet returns a copy of the named set.
func (s *Session) MatchSet(name string) (MatchSetView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, err := s.sets.Get(name)
	if err != nil {
		return MatchSetView{}, err
	}
	return MatchSetView{Name: name, Matches: set.Matches(), Partition: set.Partition()}, nil
}

// MatchSetNames returns set names in creation order, default first.
func (s *Session) MatchSetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets.Names()
}
