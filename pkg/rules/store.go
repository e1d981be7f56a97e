package rules

import (
	"fmt"
	"strconv"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
)

// Info is the outcome of applying one rule.
type Info struct {
	Matches         []match.Match `json:"matches" yaml:"matches"`
	NumberOfMatches int           `json:"numberOfMatches" yaml:"numberOfMatches"`
	Conflicts       []Relation    `json:"conflicts" yaml:"conflicts"`
	Overlaps        []Relation    `json:"overlaps" yaml:"overlaps"`
}

// Cleanup is a planned removal of the rules pending deletion. It is computed
// before the apply call and committed only once the call succeeds.
type Cleanup struct {
	// Keep are the rules that stay active, in order.
	Keep []Rule
	// Remove are the rules moving to the deleted log, in order.
	Remove []Rule
}

// Store holds the ordered active rules, their status, the deleted-rules log
// and the dirty flags. A Store is not safe for concurrent use.
type Store struct {
	active       []Rule
	status       map[string]Status
	deleted      []Rule
	pending      map[string]struct{}
	uncalculated bool
	info         map[string]Info
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		status:  make(map[string]Status),
		pending: make(map[string]struct{}),
		info:    make(map[string]Info),
	}
}

// Len returns the number of active rules.
func (s *Store) Len() int { return len(s.active) }

// Rules returns the active rules in order.
func (s *Store) Rules() []Rule {
	out := make([]Rule, len(s.active))
	copy(out, s.active)
	return out
}

// Deleted returns the deleted-rules log in order of deletion.
func (s *Store) Deleted() []Rule {
	out := make([]Rule, len(s.deleted))
	copy(out, s.deleted)
	return out
}

// Rule returns the active rule at index.
func (s *Store) Rule(index int) (Rule, error) {
	if index < 0 || index >= len(s.active) {
		return Rule{}, errors.NewNotFoundError("rule", strconv.Itoa(index))
	}
	return s.active[index], nil
}

// Known reports whether the identity of r has a status.
func (s *Store) Known(r Rule) bool {
	_, ok := s.status[r.Identity()]
	return ok
}

// StatusOf returns the status of r, Unhandled when unknown.
func (s *Store) StatusOf(r Rule) Status {
	if st, ok := s.status[r.Identity()]; ok {
		return st
	}
	return Unhandled
}

// Status returns the status of the active rule at index.
func (s *Store) Status(index int) (Status, error) {
	r, err := s.Rule(index)
	if err != nil {
		return "", err
	}
	return s.StatusOf(r), nil
}

// StatusMap returns a copy of the identity to status map.
func (s *Store) StatusMap() map[string]Status {
	out := make(map[string]Status, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

// Info returns the apply result of the active rule at index.
func (s *Store) Info(index int) (Info, bool) {
	r, err := s.Rule(index)
	if err != nil {
		return Info{}, false
	}
	info, ok := s.info[r.Identity()]
	return info, ok
}

// InfoMap returns a copy of the rule info of the active rules, keyed by
// identity.
func (s *Store) InfoMap() map[string]Info {
	out := make(map[string]Info, len(s.info))
	for _, r := range s.active {
		if info, ok := s.info[r.Identity()]; ok {
			out[r.Identity()] = info
		}
	}
	return out
}

// Matches returns the matches of every active rule with info, in rule order.
func (s *Store) Matches() []match.Match {
	var out []match.Match
	for _, r := range s.active {
		out = append(out, s.info[r.Identity()].Matches...)
	}
	return out
}

// Add inserts r with status Unhandled. Rules whose identity already has a
// status are skipped and Add reports false.
func (s *Store) Add(r Rule) bool {
	if r.IsZero() || s.Known(r) {
		return false
	}
	s.status[r.Identity()] = Unhandled
	s.active = append(s.active, r)
	s.uncalculated = true
	return true
}

// AddAll inserts rules and returns how many were inserted. With hard set, a
// rule whose status is Deleted is resurrected: if it is still active its
// pending deletion is undone, otherwise its status is cleared and it is
// inserted again.
func (s *Store) AddAll(rules []Rule, hard bool) int {
	inserted := 0
	for _, r := range rules {
		if hard && s.StatusOf(r) == Deleted {
			id := r.Identity()
			if s.isActive(id) {
				s.status[id] = Unhandled
				delete(s.pending, id)
				continue
			}
			delete(s.status, id)
		}
		if s.Add(r) {
			inserted++
		}
	}
	return inserted
}

func (s *Store) isActive(id string) bool {
	for _, r := range s.active {
		if r.Identity() == id {
			return true
		}
	}
	return false
}

// SetStatus sets the status of the active rule at index. Moving into Deleted
// marks the rule pending deletion; moving out of Deleted undoes that.
func (s *Store) SetStatus(index int, status Status) error {
	if !status.Valid() {
		return errors.NewValidationError("status", string(status), fmt.Sprintf("unknown rule status %q", status))
	}
	r, err := s.Rule(index)
	if err != nil {
		return err
	}
	id := r.Identity()
	s.status[id] = status
	if status == Deleted {
		s.pending[id] = struct{}{}
	} else {
		delete(s.pending, id)
	}
	return nil
}

// PendingDeletions returns the identities marked Deleted since the last apply,
// in active order.
func (s *Store) PendingDeletions() []string {
	out := make([]string, 0, len(s.pending))
	for _, r := range s.active {
		if _, ok := s.pending[r.Identity()]; ok {
			out = append(out, r.Identity())
		}
	}
	return out
}

// Uncalculated reports whether rules were added since the last apply.
func (s *Store) Uncalculated() bool { return s.uncalculated }

// Dirty reports whether an apply would change anything.
func (s *Store) Dirty() bool {
	return s.uncalculated || len(s.pending) > 0
}

// PlanCleanup splits the active rules into those kept and those pending deletion.
func (s *Store) PlanCleanup() Cleanup {
	plan := Cleanup{Keep: make([]Rule, 0, len(s.active))}
	for _, r := range s.active {
		if _, ok := s.pending[r.Identity()]; ok {
			plan.Remove = append(plan.Remove, r)
			continue
		}
		plan.Keep = append(plan.Keep, r)
	}
	return plan
}

// Commit realises plan and replaces all rule info with infos, which must be
// aligned with plan.Keep. Dirty flags are cleared.
func (s *Store) Commit(plan Cleanup, infos []Info) error {
	if len(infos) != len(plan.Keep) {
		return errors.NewValidationError("items", len(infos), fmt.Sprintf("expected %d rule results, got %d", len(plan.Keep), len(infos)))
	}
	s.active = append([]Rule(nil), plan.Keep...)
	s.deleted = append(s.deleted, plan.Remove...)
	s.pending = make(map[string]struct{})
	s.info = make(map[string]Info, len(infos))
	for i, r := range plan.Keep {
		s.info[r.Identity()] = infos[i]
	}
	s.uncalculated = false
	return nil
}

// Restore replaces the store content with persisted state. Active rules with
// status Deleted become pending deletion. Info of active rules is kept from
// infos; the store is uncalculated when any active rule has none.
func (s *Store) Restore(active, deleted []Rule, status map[string]Status, infos map[string]Info) error {
	next := NewStore()
	for id, st := range status {
		if !st.Valid() {
			return errors.NewValidationError("rule_status", string(st), fmt.Sprintf("unknown rule status %q", st))
		}
		next.status[id] = st
	}
	seen := make(map[string]struct{}, len(active))
	for _, r := range active {
		id := r.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := next.status[id]; !ok {
			next.status[id] = Unhandled
		}
		if next.status[id] == Deleted {
			next.pending[id] = struct{}{}
		}
		if info, ok := infos[id]; ok {
			next.info[id] = info
		} else {
			next.uncalculated = true
		}
		next.active = append(next.active, r)
	}
	next.deleted = append(next.deleted, deleted...)
	*s = *next
	return nil
}
