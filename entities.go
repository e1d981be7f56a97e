package matchrules

import (
	"github.com/agentstation/matchrules/pkg/entities"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/services"
)

// SetSources loads the source records. Ids must be present and unique. The
// current field selection is kept.
func (s *Session) SetSources(records []map[string]any) error {
	return s.mutate("set sources", func() error {
		c, err := entities.NewCollection(s.sources.IDField(), records)
		if err != nil {
			return err
		}
		c.SelectFields(s.sources.Fields())
		s.sources = c
		s.logger.Info().Int("sources", c.Len()).Msg("Sources loaded")
		return nil
	})
}

// SetTargets loads the target records. Ids must be present and unique. The
// current field selection is kept.
func (s *Session) SetTargets(records []map[string]any) error {
	return s.mutate("set targets", func() error {
		c, err := entities.NewCollection(s.targets.IDField(), records)
		if err != nil {
			return err
		}
		c.SelectFields(s.targets.Fields())
		s.targets = c
		s.logger.Info().Int("targets", c.Len()).Msg("Targets loaded")
		return nil
	})
}

// SetSourceFields selects the source fields sent to the rule services. The id
// field is always included.
func (s *Session) SetSourceFields(fields []string) error {
	return s.mutate("set source fields", func() error {
		s.sources = s.sources.WithFields(fields)
		return nil
	})
}

// SetTargetFields selects the target fields sent to the rule services. The id
// field is always included.
func (s *Session) SetTargetFields(fields []string) error {
	return s.mutate("set target fields", func() error {
		s.targets = s.targets.WithFields(fields)
		return nil
	})
}

// EntityUpdate replaces parts of the loaded entities. Nil parts are left
// unchanged.
type EntityUpdate struct {
	Sources      []map[string]any
	Targets      []map[string]any
	SourceFields []string
	TargetFields []string
}

// SetEntities applies u as one change. Both collections are built and
// validated first; on error the session is left unchanged.
func (s *Session) SetEntities(u EntityUpdate) error {
	return s.mutate("set entities", func() error {
		sources, err := rebuild(s.sources, u.Sources, u.SourceFields)
		if err != nil {
			return err
		}
		targets, err := rebuild(s.targets, u.Targets, u.TargetFields)
		if err != nil {
			return err
		}
		s.sources = sources
		s.targets = targets
		s.logger.Info().
			Int("sources", sources.Len()).
			Int("targets", targets.Len()).
			Msg("Entities updated")
		return nil
	})
}

func rebuild(current *entities.Collection, records []map[string]any, fields []string) (*entities.Collection, error) {
	c := current
	if records != nil {
		var err error
		if c, err = entities.NewCollection(current.IDField(), records); err != nil {
			return nil, err
		}
		c.SelectFields(current.Fields())
	}
	if fields != nil {
		c = c.WithFields(fields)
	}
	return c, nil
}

// SourceFields returns the source field selection.
func (s *Session) SourceFields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources.Fields()
}

// TargetFields returns the target field selection.
func (s *Session) TargetFields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets.Fields()
}

// Sources returns the source collection. Collections are replaced, never
// modified, once loaded; the caller must not modify it either.
func (s *Session) Sources() *entities.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources
}

// Targets returns the target collection. The caller must not modify it.
func (s *Session) Targets() *entities.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets
}

// Label returns display values for both sides of m: the value of sourceField
// on the source entity and of targetField on the target entity. Unknown
// entities or fields fall back to the id.
func (s *Session) Label(m match.Match, sourceField, targetField string) (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return labelOf(s.sources, m.SourceID, sourceField), labelOf(s.targets, m.TargetID, targetField)
}

func labelOf(c *entities.Collection, id, field string) string {
	v, ok := c.Value(id, field)
	if !ok || v == nil {
		return id
	}
	if label, ok := entities.NormalizeID(v); ok {
		return label
	}
	return id
}

// suggestRequestLocked builds the suggestion payload from the reduced
// entities and the raw ids of the matches.
func (s *Session) suggestRequestLocked(matches []match.Match) services.SuggestRequest {
	wire := make([]services.WireMatch, len(matches))
	for i, m := range matches {
		wire[i] = services.WireMatch{
			SourceID: s.sources.RawID(m.SourceID),
			TargetID: s.targets.RawID(m.TargetID),
		}
	}
	return services.SuggestRequest{
		Sources: s.sources.Reduced(),
		Targets: s.targets.Reduced(),
		Matches: wire,
	}
}
