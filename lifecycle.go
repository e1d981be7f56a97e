package matchrules

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/matchrules/internal/metrics"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
	"github.com/agentstation/matchrules/pkg/services"
)

// Operation names used in errors, logs and metrics.
const (
	OpGenerateRules = "generate rules"
	OpApplyChanges  = "apply changes"
	OpAddRules      = "add rules"
	OpSetRuleStatus = "set rule status"
)

// ApplyReport summarizes one generate, apply or add run.
type ApplyReport struct {
	Operation string        `json:"operation"`
	Applied   bool          `json:"applied"`
	Rules     int           `json:"rules"`
	Inserted  int           `json:"inserted"`
	Removed   int           `json:"removed"`
	Matches   int           `json:"matches"`
	Ambiguous int           `json:"ambiguous"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// RuleView is an active rule with its status and last apply result.
type RuleView struct {
	Index  int          `json:"index"`
	Rule   rules.Rule   `json:"rule"`
	Status rules.Status `json:"status"`
	Info   *rules.Info  `json:"info,omitempty"`
}

// GenerateRules asks the suggestion service for rules explaining the matches
// of set, inserts the new ones and applies all active rules. Suggested rules
// stay inserted when the apply step fails.
func (s *Session) GenerateRules(ctx context.Context, set string) (report ApplyReport, err error) {
	started := time.Now()
	logger := s.logger.With().Str("match_set", set).Logger()

	var req services.SuggestRequest
	release, err := s.acquire(OpGenerateRules, GeneratingRules, func() error {
		if err := s.requireServices(true); err != nil {
			return err
		}
		ms, err := s.sets.Get(set)
		if err != nil {
			return err
		}
		req = s.suggestRequestLocked(ms.Matches())
		return nil
	})
	if err != nil {
		return ApplyReport{}, err
	}
	defer release()
	defer func() { metrics.ObserveOperation(OpGenerateRules, outcome(err), started) }()

	logger.Info().Int("matches", len(req.Matches)).Msg("Generating rules")
	callStarted := time.Now()
	resp, err := s.suggester.Suggest(ctx, req)
	metrics.ObserveService(services.SuggestService, err, callStarted)
	if err != nil {
		logger.Error().Err(err).Msg("Rule suggestion failed")
		return ApplyReport{}, errors.WrapService(services.SuggestService, "suggest", err)
	}

	if resp == nil {
		resp = &services.SuggestResponse{}
	}

	s.mu.Lock()
	inserted := 0
	for _, r := range resp.Rules {
		if s.rules.Add(r) {
			inserted++
		}
	}
	if inserted > 0 {
		s.version++
	}
	s.mu.Unlock()
	logger.Info().Int("suggested", len(resp.Rules)).Int("inserted", inserted).Msg("Rules suggested")

	s.transition(ApplyingRules)
	report, err = s.applyRules(ctx, OpGenerateRules)
	report.Inserted = inserted
	report.Duration = time.Since(started)
	if err != nil {
		return report, err
	}
	s.hooks.rulesApplied(report)
	return report, nil
}

// ApplyChanges applies the pending changes: rules marked Deleted are removed
// and all remaining rules are evaluated again. It fails with ErrNoChanges when
// nothing is pending.
func (s *Session) ApplyChanges(ctx context.Context) (report ApplyReport, err error) {
	started := time.Now()
	release, err := s.acquire(OpApplyChanges, ApplyingRules, func() error {
		if err := s.requireServices(false); err != nil {
			return err
		}
		if !s.rules.Dirty() {
			return errors.ErrNoChanges
		}
		return nil
	})
	if err != nil {
		return ApplyReport{}, err
	}
	defer release()
	defer func() { metrics.ObserveOperation(OpApplyChanges, outcome(err), started) }()

	report, err = s.applyRules(ctx, OpApplyChanges)
	report.Duration = time.Since(started)
	if err != nil {
		return report, err
	}
	s.hooks.rulesApplied(report)
	return report, nil
}

// AddRules inserts externally supplied rules and applies when anything was
// inserted. With hard set, rules previously marked Deleted are brought back.
func (s *Session) AddRules(ctx context.Context, rs []rules.Rule, hard bool) (report ApplyReport, err error) {
	started := time.Now()

	var inserted int
	var changed bool
	release, err := s.acquire(OpAddRules, ApplyingRules, func() error {
		if err := s.requireServices(false); err != nil {
			return err
		}
		before := len(s.rules.PendingDeletions())
		inserted = s.rules.AddAll(rs, hard)
		changed = inserted > 0 || len(s.rules.PendingDeletions()) != before
		if changed {
			s.version++
		}
		return nil
	})
	if err != nil {
		return ApplyReport{}, err
	}
	defer release()

	if inserted == 0 {
		s.logger.Debug().Int("rules", len(rs)).Bool("changed", changed).Msg("No new rules to apply")
		metrics.ObserveOperation(OpAddRules, metrics.OutcomeSuccess, started)
		return ApplyReport{Operation: OpAddRules, Rules: s.ruleCount(), Duration: time.Since(started)}, nil
	}
	defer func() { metrics.ObserveOperation(OpAddRules, outcome(err), started) }()

	report, err = s.applyRules(ctx, OpAddRules)
	report.Inserted = inserted
	report.Duration = time.Since(started)
	if err != nil {
		return report, err
	}
	s.hooks.rulesApplied(report)
	return report, nil
}

// applyRules runs the application service over the rules that survive the
// pending deletions and commits the result. Nothing is committed on failure.
// The caller holds the engine in ApplyingRules.
func (s *Session) applyRules(ctx context.Context, operation string) (ApplyReport, error) {
	s.mu.RLock()
	plan := s.rules.PlanCleanup()
	req := services.ApplyRequest{
		Sources: s.sources.Reduced(),
		Targets: s.targets.Reduced(),
		Rules:   plan.Keep,
	}
	s.mu.RUnlock()

	report := ApplyReport{Operation: operation}
	s.logger.Info().Int("rules", len(plan.Keep)).Int("removed", len(plan.Remove)).Msg("Applying rules")

	callStarted := time.Now()
	resp, err := s.applier.Apply(ctx, req)
	if err == nil && resp == nil {
		resp = &services.ApplyResponse{}
	}
	if err == nil && len(resp.Items) != len(plan.Keep) {
		err = errors.NewAPIError(services.ApplyService, 0,
			fmt.Sprintf("expected %d rule results, got %d", len(plan.Keep), len(resp.Items)))
	}
	metrics.ObserveService(services.ApplyService, err, callStarted)
	if err != nil {
		s.logger.Error().Err(err).Msg("Rule application failed")
		return report, errors.WrapService(services.ApplyService, "apply", err)
	}

	s.mu.Lock()
	infos, all, skipped := s.decodeItemsLocked(resp.Items)
	if err := s.rules.Commit(plan, infos); err != nil {
		s.mu.Unlock()
		return report, err
	}
	s.output = match.Resolve(all)
	result := s.refreshComparisonLocked()
	s.version++

	report.Applied = true
	report.Rules = s.rules.Len()
	report.Removed = len(plan.Remove)
	report.Matches = len(s.output.Unambiguous)
	report.Ambiguous = len(s.output.Ambiguous)
	report.Skipped = skipped
	s.mu.Unlock()

	if skipped > 0 {
		metrics.SkippedMatchesTotal.Add(float64(skipped))
	}
	s.logger.Info().
		Int("rules", report.Rules).
		Int("matches", report.Matches).
		Int("ambiguous", report.Ambiguous).
		Msg("Rules applied")
	s.hooks.comparisonUpdated(result)
	return report, nil
}

// decodeItemsLocked turns the service items into rule info. Matches naming an
// unknown entity are skipped and counted.
func (s *Session) decodeItemsLocked(items []services.ApplyItem) ([]rules.Info, []match.Match, int) {
	infos := make([]rules.Info, len(items))
	var all []match.Match
	skipped := 0
	for i, item := range items {
		matches := make([]match.Match, 0, len(item.Matches))
		for _, raw := range item.Matches {
			m, err := raw.Decode()
			if err == nil {
				err = m.Validate()
			}
			if err != nil || !s.sources.Has(m.SourceID) || !s.targets.Has(m.TargetID) {
				skipped++
				s.logger.Warn().
					Err(err).
					Int("rule_index", i).
					Str("source_id", m.SourceID).
					Str("target_id", m.TargetID).
					Msg("Skipping rule match with unknown entity")
				continue
			}
			matches = append(matches, m)
		}
		infos[i] = rules.Info{
			Matches:         matches,
			NumberOfMatches: item.NumberOfMatches,
			Conflicts:       item.Conflicts,
			Overlaps:        item.Overlaps,
		}
		all = append(all, matches...)
	}
	return infos, all, skipped
}

// SetRuleStatus sets the status of the active rule at index. Marking a rule
// Deleted schedules its removal on the next apply.
func (s *Session) SetRuleStatus(index int, status rules.Status) error {
	var change RuleStatusChange
	err := s.mutate(OpSetRuleStatus, func() error {
		r, err := s.rules.Rule(index)
		if err != nil {
			return err
		}
		old := s.rules.StatusOf(r)
		if err := s.rules.SetStatus(index, status); err != nil {
			return err
		}
		change = RuleStatusChange{Index: index, Rule: r, Old: old, New: status}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug().
		Int("rule_index", index).
		Str("old", string(change.Old)).
		Str("new", string(change.New)).
		Msg("Rule status changed")
	s.hooks.ruleStatusChanged(change)
	return nil
}

// Rules returns the active rules in order.
func (s *Session) Rules() []RuleView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RuleView, s.rules.Len())
	for i := range out {
		out[i] = s.ruleViewLocked(i)
	}
	return out
}

// Rule returns the active rule at index.
func (s *Session) Rule(index int) (RuleView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.rules.Rule(index); err != nil {
		return RuleView{}, err
	}
	return s.ruleViewLocked(index), nil
}

func (s *Session) ruleViewLocked(index int) RuleView {
	r, _ := s.rules.Rule(index)
	v := RuleView{Index: index, Rule: r, Status: s.rules.StatusOf(r)}
	if info, ok := s.rules.Info(index); ok {
		v.Info = &info
	}
	return v
}

// RuleStatus returns the status of the active rule at index.
func (s *Session) RuleStatus(index int) (rules.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Status(index)
}

// RuleInfo returns the last apply result of the active rule at index. The
// boolean is false for rules not evaluated yet.
func (s *Session) RuleInfo(index int) (rules.Info, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.rules.Rule(index); err != nil {
		return rules.Info{}, false, err
	}
	info, ok := s.rules.Info(index)
	return info, ok, nil
}

// DeletedRules returns the rules removed by past applies.
func (s *Session) DeletedRules() []rules.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Deleted()
}

// HasPendingChanges reports whether ApplyChanges would do anything.
func (s *Session) HasPendingChanges() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Dirty()
}

// ChangeLabel returns the label of the apply-changes action.
func (s *Session) ChangeLabel() string {
	if s.HasPendingChanges() {
		return ApplyChangesLabel
	}
	return NoChangeLabel
}

func (s *Session) ruleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Len()
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}
