package matchrules

import (
	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
)

// Compare compares two match sources. A key is either a match set name or
// "rule_output", the partition derived from all active rules.
func (s *Session) Compare(first, second string) (compare.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, err := s.sideLocked(first)
	if err != nil {
		return compare.Result{}, err
	}
	b, err := s.sideLocked(second)
	if err != nil {
		return compare.Result{}, err
	}
	return compare.Compare(a, b), nil
}

// SelectComparison changes the live comparison. The view is recomputed
// immediately and after every later match set mutation or apply.
func (s *Session) SelectComparison(first, second string) (compare.Result, error) {
	s.mu.Lock()
	if _, err := s.sideLocked(first); err != nil {
		s.mu.Unlock()
		return compare.Result{}, err
	}
	if _, err := s.sideLocked(second); err != nil {
		s.mu.Unlock()
		return compare.Result{}, err
	}
	s.comparisonFirst = first
	s.comparisonSecond = second
	result := s.refreshComparisonLocked()
	s.mu.Unlock()

	s.hooks.comparisonUpdated(result)
	return result, nil
}

// Comparison returns the live comparison view.
func (s *Session) Comparison() compare.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comparison
}

// ComparisonKeys lists the keys accepted by Compare: "rule_output" followed
// by the match set names in creation order.
func (s *Session) ComparisonKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{constants.RuleOutputMatchSet}, s.sets.Names()...)
}

// RuleOutput returns the partition over the matches of all active rules as of
// the last successful apply.
func (s *Session) RuleOutput() match.Partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.output
}

func (s *Session) sideLocked(key string) (compare.Side, error) {
	if key == constants.RuleOutputMatchSet {
		return compare.Side{Key: key, Partition: s.output}, nil
	}
	set, err := s.sets.Get(key)
	if err != nil {
		return compare.Side{}, err
	}
	return compare.Side{Key: key, Partition: set.Partition()}, nil
}

// refreshComparisonLocked recomputes the live comparison. A selected set that
// no longer resolves falls back to the default comparison.
func (s *Session) refreshComparisonLocked() compare.Result {
	a, errA := s.sideLocked(s.comparisonFirst)
	b, errB := s.sideLocked(s.comparisonSecond)
	if err := errors.Join(errA, errB); err != nil {
		s.logger.Warn().Err(err).Msg("Comparison keys no longer resolve, using defaults")
		s.comparisonFirst = constants.RuleOutputMatchSet
		s.comparisonSecond = constants.DefaultMatchSet
		a, _ = s.sideLocked(s.comparisonFirst)
		b, _ = s.sideLocked(s.comparisonSecond)
	}
	s.comparison = compare.Compare(a, b)
	return s.comparison
}
