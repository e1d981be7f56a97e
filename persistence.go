package matchrules

import (
	"github.com/agentstation/matchrules/pkg/entities"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// Snapshot captures the persistent state of the session, including the rule
// info of the last apply. The rule output is derived from it on Restore.
func (s *Session) Snapshot() *snapshot.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &snapshot.State{
		Project:       s.project,
		SourceIDField: s.sources.IDField(),
		TargetIDField: s.targets.IDField(),
		Sources:       nonNilRecords(s.sources.Records()),
		SourceFields:  s.sources.Fields(),
		Targets:       nonNilRecords(s.targets.Records()),
		TargetFields:  s.targets.Fields(),
		Rules:         s.rules.Rules(),
		DeletedRules:  s.rules.Deleted(),
		RuleStatus:    s.rules.StatusMap(),
	}
	if info := s.rules.InfoMap(); len(info) > 0 {
		state.RuleInfo = info
	}
	for _, name := range s.sets.Names() {
		set, _ := s.sets.Get(name)
		state.MatchSets = append(state.MatchSets, snapshot.MatchSet{Name: name, Matches: set.Matches()})
	}
	return state
}

func nonNilRecords(records []map[string]any) []map[string]any {
	if records == nil {
		return []map[string]any{}
	}
	return records
}

// Restore rebuilds a session from a snapshot without calling the rule
// services. The rule output is rebuilt from the persisted rule info; active
// rules without info are uncalculated, so the next ApplyChanges evaluates
// them. Rules whose status is Deleted are pending deletion. Options
// configure services and logging as for New; the project and id fields come
// from the snapshot.
func Restore(state *snapshot.State, opts ...Option) (*Session, error) {
	if state == nil {
		return nil, errors.NewValidationError("state", nil, "snapshot is nil")
	}
	opts = append(opts, WithProject(state.Project), WithIDFields(state.SourceIDField, state.TargetIDField))
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}

	sources, err := entities.NewCollection(s.sources.IDField(), state.Sources)
	if err != nil {
		return nil, errors.WrapResource("restore", "sources", "", err)
	}
	sources.SelectFields(state.SourceFields)
	targets, err := entities.NewCollection(s.targets.IDField(), state.Targets)
	if err != nil {
		return nil, errors.WrapResource("restore", "targets", "", err)
	}
	targets.SelectFields(state.TargetFields)

	sets := match.NewRegistry()
	for _, ms := range state.MatchSets {
		if err := sets.Replace(ms.Name, ms.Matches); err != nil {
			return nil, errors.WrapResource("restore", "match set", ms.Name, err)
		}
	}
	if err := s.rules.Restore(state.Rules, state.DeletedRules, state.RuleStatus, state.RuleInfo); err != nil {
		return nil, errors.WrapResource("restore", "rules", "", err)
	}

	s.sources = sources
	s.targets = targets
	s.sets = sets
	s.output = match.Resolve(s.rules.Matches())
	s.refreshComparisonLocked()

	s.logger.Info().
		Int("sources", sources.Len()).
		Int("targets", targets.Len()).
		Int("match_sets", len(state.MatchSets)).
		Int("rules", s.rules.Len()).
		Msg("Session restored")
	return s, nil
}
