package matchrules

import (
	"sync"

	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
)

// MatchSetChange describes a match set mutation.
type MatchSetChange struct {
	Set     string       `json:"set"`
	Action  string       `json:"action"` // "created", "added", "removed"
	Match   *match.Match `json:"match,omitempty"`
	Matches int          `json:"matches"`
}

// Match set actions.
const (
	MatchSetCreated = "created"
	MatchAdded      = "added"
	MatchRemoved    = "removed"
)

// RuleStatusChange describes a status transition of one rule.
type RuleStatusChange struct {
	Index int          `json:"index"`
	Rule  rules.Rule   `json:"rule"`
	Old   rules.Status `json:"old"`
	New   rules.Status `json:"new"`
}

// Hook function types for session events
type (
	// MatchSetChangedHook is called after a match set is created or mutated
	MatchSetChangedHook func(change MatchSetChange)

	// RuleStatusChangedHook is called after a rule status is set
	RuleStatusChangedHook func(change RuleStatusChange)

	// RulesAppliedHook is called after a successful apply
	RulesAppliedHook func(report ApplyReport)

	// StateChangedHook is called on every engine state transition
	StateChangedHook func(old, new State)

	// ComparisonUpdatedHook is called after the live comparison is recomputed
	ComparisonUpdatedHook func(result compare.Result)
)

// hooks manages event callbacks for session changes
type hooks struct {
	mu                  sync.RWMutex
	onMatchSetChanged   []MatchSetChangedHook
	onRuleStatusChanged []RuleStatusChangedHook
	onRulesApplied      []RulesAppliedHook
	onStateChanged      []StateChangedHook
	onComparisonUpdated []ComparisonUpdatedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnMatchSetChanged registers a callback for match set changes
func (s *Session) OnMatchSetChanged(fn MatchSetChangedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onMatchSetChanged = append(s.hooks.onMatchSetChanged, fn)
}

// OnRuleStatusChanged registers a callback for rule status changes
func (s *Session) OnRuleStatusChanged(fn RuleStatusChangedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onRuleStatusChanged = append(s.hooks.onRuleStatusChanged, fn)
}

// OnRulesApplied registers a callback for completed applies
func (s *Session) OnRulesApplied(fn RulesAppliedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onRulesApplied = append(s.hooks.onRulesApplied, fn)
}

// OnStateChanged registers a callback for engine state transitions
func (s *Session) OnStateChanged(fn StateChangedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onStateChanged = append(s.hooks.onStateChanged, fn)
}

// OnComparisonUpdated registers a callback for live comparison refreshes
func (s *Session) OnComparisonUpdated(fn ComparisonUpdatedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onComparisonUpdated = append(s.hooks.onComparisonUpdated, fn)
}

// Hooks are always triggered without holding the session lock, so callbacks
// may read the session.

func (h *hooks) matchSetChanged(change MatchSetChange) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onMatchSetChanged {
		fn(change)
	}
}

func (h *hooks) ruleStatusChanged(change RuleStatusChange) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRuleStatusChanged {
		fn(change)
	}
}

func (h *hooks) rulesApplied(report ApplyReport) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRulesApplied {
		fn(report)
	}
}

func (h *hooks) stateChanged(old, new State) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onStateChanged {
		fn(old, new)
	}
}

func (h *hooks) comparisonUpdated(result compare.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onComparisonUpdated {
		fn(result)
	}
}
