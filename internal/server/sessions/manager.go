// Package sessions hosts the sessions served over HTTP. Sessions are kept in
// memory once loaded, persisted to a store after every mutation, and their
// hooks are forwarded to the event broker.
package sessions

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/metrics"
	"github.com/agentstation/matchrules/internal/server/events"
	"github.com/agentstation/matchrules/internal/store"
	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// Publisher receives session events.
type Publisher interface {
	Publish(eventType events.EventType, sessionID string, data any)
}

// CreateOptions describes a new session. A non-nil State restores the
// session from a snapshot; Project and the id fields are then ignored.
type CreateOptions struct {
	ID            string
	Project       string
	SourceIDField string
	TargetIDField string
	State         *snapshot.State
}

// Summary describes a hosted session.
type Summary struct {
	ID        string           `json:"id"`
	Project   string           `json:"project"`
	State     matchrules.State `json:"state"`
	Version   uint64           `json:"version"`
	Sources   int              `json:"sources"`
	Targets   int              `json:"targets"`
	Rules     int              `json:"rules"`
	MatchSets []string         `json:"match_sets"`
	Pending   bool             `json:"pending_changes"`
	Loaded    bool             `json:"loaded"`
}

// Manager owns the hosted sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*matchrules.Session
	store    store.Store
	events   Publisher
	options  []matchrules.Option
	logger   *zerolog.Logger
}

// NewManager creates a manager persisting to st and publishing to pub.
// opts are applied to every session, typically the rule service and logger.
func NewManager(st store.Store, pub Publisher, logger *zerolog.Logger, opts ...matchrules.Option) *Manager {
	return &Manager{
		sessions: make(map[string]*matchrules.Session),
		store:    st,
		events:   pub,
		options:  opts,
		logger:   logger,
	}
}

// Create creates, persists and hosts a new session.
func (m *Manager) Create(ctx context.Context, o CreateOptions) (*matchrules.Session, error) {
	id := o.ID
	if id == "" {
		id = uuid.NewString()
	}
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		return nil, errors.NewAlreadyExistsError("session", id)
	}
	if _, err := m.store.Load(ctx, id); err == nil {
		return nil, errors.NewAlreadyExistsError("session", id)
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	opts := append(append([]matchrules.Option{}, m.options...), matchrules.WithID(id))
	var (
		s   *matchrules.Session
		err error
	)
	if o.State != nil {
		s, err = matchrules.Restore(o.State, opts...)
	} else {
		opts = append(opts,
			matchrules.WithProject(o.Project),
			matchrules.WithIDFields(o.SourceIDField, o.TargetIDField))
		s, err = matchrules.New(opts...)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, id, s.Snapshot()); err != nil {
		return nil, err
	}
	m.hostLocked(s)
	m.events.Publish(events.SessionCreated, id, summarize(s))
	m.logger.Info().Str("session_id", id).Str("project", s.Project()).Msg("Session created")
	return s, nil
}

// Get returns a hosted session, loading it from the store on first use.
func (m *Manager) Get(ctx context.Context, id string) (*matchrules.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if err := store.ValidateID(id); err != nil {
		return nil, errors.NewNotFoundError("session", id)
	}
	state, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	opts := append(append([]matchrules.Option{}, m.options...), matchrules.WithID(id))
	s, err := matchrules.Restore(state, opts...)
	if err != nil {
		return nil, err
	}
	m.hostLocked(s)
	m.logger.Info().Str("session_id", id).Msg("Session loaded from store")
	return s, nil
}

// List summarizes every session, hosted or only stored.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	out := make([]Summary, 0, len(ids)+len(m.sessions))
	for id, s := range m.sessions {
		seen[id] = true
		out = append(out, summarize(s))
	}
	for _, id := range ids {
		if !seen[id] {
			out = append(out, Summary{ID: id})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save persists the current state of s.
func (m *Manager) Save(ctx context.Context, s *matchrules.Session) error {
	if err := m.store.Save(ctx, s.ID(), s.Snapshot()); err != nil {
		m.logger.Error().Err(err).Str("session_id", s.ID()).Msg("Failed to persist session")
		return err
	}
	return nil
}

// Delete removes a session from memory and from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hosted := m.sessions[id]
	if err := m.store.Delete(ctx, id); err != nil {
		if !errors.IsNotFound(err) || !hosted {
			return err
		}
	}
	if hosted {
		delete(m.sessions, id)
		metrics.ActiveSessions.Dec()
	}
	m.events.Publish(events.SessionDeleted, id, map[string]any{"id": id})
	m.logger.Info().Str("session_id", id).Msg("Session deleted")
	return nil
}

// Len returns the number of sessions in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close persists every hosted session and closes the store.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	hosted := make([]*matchrules.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		hosted = append(hosted, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range hosted {
		if err := m.Save(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Summarize describes s.
func Summarize(s *matchrules.Session) Summary {
	return summarize(s)
}

func summarize(s *matchrules.Session) Summary {
	return Summary{
		ID:        s.ID(),
		Project:   s.Project(),
		State:     s.State(),
		Version:   s.Version(),
		Sources:   s.Sources().Len(),
		Targets:   s.Targets().Len(),
		Rules:     len(s.Rules()),
		MatchSets: s.MatchSetNames(),
		Pending:   s.HasPendingChanges(),
		Loaded:    true,
	}
}

// hostLocked registers s and forwards its hooks to the publisher.
func (m *Manager) hostLocked(s *matchrules.Session) {
	m.sessions[s.ID()] = s
	metrics.ActiveSessions.Inc()

	id := s.ID()
	s.OnMatchSetChanged(func(change matchrules.MatchSetChange) {
		m.events.Publish(events.MatchSetChanged, id, change)
	})
	s.OnRuleStatusChanged(func(change matchrules.RuleStatusChange) {
		m.events.Publish(events.RuleStatusChanged, id, change)
	})
	s.OnRulesApplied(func(report matchrules.ApplyReport) {
		m.events.Publish(events.RulesApplied, id, report)
	})
	s.OnStateChanged(func(old, next matchrules.State) {
		m.events.Publish(events.StateChanged, id, map[string]any{
			"old": old,
			"new": next,
		})
	})
	s.OnComparisonUpdated(func(result compare.Result) {
		m.events.Publish(events.ComparisonUpdated, id, map[string]any{
			"first":   result.First,
			"second":  result.Second,
			"summary": result.Summary(),
		})
	})
}
