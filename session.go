// Package matchrules reconciles two collections of records, sources and
// targets, through user-curated matches and rules derived from them.
//
// A Session holds the entities, the named match sets, the rules with their
// lifecycle status and the output of the last apply. Rules are produced and
// evaluated by external services (see package services); the session keeps
// their results consistent and guards against overlapping runs.
//
// Example usage:
//
//	s, err := matchrules.New(matchrules.WithService(client))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = s.SetSources(sensors)
//	_ = s.SetTargets(assets)
//	_ = s.AddMatch("default", match.New("17", "pump-3"))
//
//	report, err := s.GenerateRules(ctx, "default")
//	if errors.IsBusy(err) {
//	    // another generate or apply is running, retry later
//	}
//
//	result := s.Comparison() // rule_output vs default
//	fmt.Println(result.Summary())
package matchrules

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules/internal/metrics"
	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/entities"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/logging"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
	"github.com/agentstation/matchrules/pkg/services"
)

// State is the engine mode. Rule generation and application only start from Ready.
type State string

// Engine states.
const (
	Ready           State = "Ready"
	GeneratingRules State = "Generating rules"
	ApplyingRules   State = "Applying rules"
)

// Labels of the apply-changes action.
const (
	NoChangeLabel     = "No change"
	ApplyChangesLabel = "Apply changes"
)

// Session is one reconciliation workspace. It is safe for concurrent use:
// data is guarded by a mutex and the engine state refuses a second generate
// or apply while one is running. Refused calls are never queued.
type Session struct {
	id      string
	project string

	mu      sync.RWMutex
	state   State
	version uint64

	sources *entities.Collection
	targets *entities.Collection
	sets    *match.Registry
	rules   *rules.Store

	// output is the partition over the matches of all active rules
	output match.Partition

	comparisonFirst  string
	comparisonSecond string
	comparison       compare.Result

	suggester services.Suggester
	applier   services.Applier
	logger    *zerolog.Logger
	hooks     *hooks
}

// New creates an empty session with a default match set.
func New(opts ...Option) (*Session, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = logging.Default()
	}
	sessionLogger := logger.With().Str("session_id", o.id).Logger()

	s := &Session{
		id:               o.id,
		project:          o.project,
		state:            Ready,
		sources:          entities.Empty(o.sourceIDField),
		targets:          entities.Empty(o.targetIDField),
		sets:             match.NewRegistry(),
		rules:            rules.NewStore(),
		output:           match.Resolve(nil),
		comparisonFirst:  constants.RuleOutputMatchSet,
		comparisonSecond: constants.DefaultMatchSet,
		suggester:        o.suggester,
		applier:          o.applier,
		logger:           &sessionLogger,
		hooks:            newHooks(),
	}
	s.refreshComparisonLocked()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Project returns the project name.
func (s *Session) Project() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// State returns the current engine state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version increases on every successful mutation.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// acquire moves the engine from Ready to next. check runs under the lock
// before the transition; a refusal leaves the session untouched. The returned
// release always moves the engine back to Ready and must be deferred.
func (s *Session) acquire(operation string, next State, check func() error) (func(), error) {
	s.mu.Lock()
	if s.state != Ready {
		state := s.state
		s.mu.Unlock()
		metrics.ObserveOperation(operation, metrics.OutcomeRefused, time.Now())
		s.logger.Debug().Str("operation", operation).Str("state", string(state)).Msg("Refused while busy")
		return nil, errors.NewBusyError(operation, string(state))
	}
	if check != nil {
		if err := check(); err != nil {
			s.mu.Unlock()
			metrics.ObserveOperation(operation, metrics.OutcomeRefused, time.Now())
			return nil, err
		}
	}
	s.state = next
	s.mu.Unlock()
	s.hooks.stateChanged(Ready, next)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			prev := s.state
			s.state = Ready
			s.mu.Unlock()
			s.hooks.stateChanged(prev, Ready)
		})
	}, nil
}

// transition moves a running operation to next.
func (s *Session) transition(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.hooks.stateChanged(prev, next)
	}
}

// mutate runs fn under the write lock when the engine is Ready and bumps the
// version when fn succeeds.
func (s *Session) mutate(operation string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return errors.NewBusyError(operation, string(s.state))
	}
	if err := fn(); err != nil {
		return err
	}
	s.version++
	return nil
}

// requireServices reports a configuration error when a rule service is missing.
func (s *Session) requireServices(suggest bool) error {
	if suggest && s.suggester == nil {
		return errors.NewConfigError("session", "no suggestion service configured", errors.ErrNotConfigured)
	}
	if s.applier == nil {
		return errors.NewConfigError("session", "no application service configured", errors.ErrNotConfigured)
	}
	return nil
}
