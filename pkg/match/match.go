// Package match provides match tuples, the ambiguity partition over them and
// named match sets.
package match

import (
	"encoding/json"
	"fmt"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/entities"
	"github.com/agentstation/matchrules/pkg/errors"
)

// Match asserts that a source entity corresponds to a target entity.
type Match struct {
	SourceID string `json:"sourceId" yaml:"sourceId"`
	TargetID string `json:"targetId" yaml:"targetId"`
}

// New returns the match (source, target).
func New(source, target string) Match {
	return Match{SourceID: source, TargetID: target}
}

// Valid reports whether both sides are set.
func (m Match) Valid() bool {
	return m.SourceID != "" && m.TargetID != ""
}

// Validate returns a ValidationError when a side is missing.
func (m Match) Validate() error {
	switch {
	case m.SourceID == "":
		return errors.NewValidationError("sourceId", m.SourceID, "match source is not set")
	case m.TargetID == "":
		return errors.NewValidationError("targetId", m.TargetID, "match target is not set")
	}
	return nil
}

// String implements fmt.Stringer.
func (m Match) String() string {
	return fmt.Sprintf("(%s, %s)", m.SourceID, m.TargetID)
}

// FromMap decodes the dict form of a match. Both {sourceId, targetId} and the
// nested {source: {id}, target: {id}} shape returned by the apply service are
// accepted.
func FromMap(d map[string]any) (Match, error) {
	source, _ := entities.NormalizeID(pick(d, "sourceId", "source"))
	target, _ := entities.NormalizeID(pick(d, "targetId", "target"))
	m := New(source, target)
	return m, m.Validate()
}

func pick(d map[string]any, flat, nested string) any {
	if v, ok := d[flat]; ok && v != nil {
		return v
	}
	if obj, ok := d[nested].(map[string]any); ok {
		return obj[constants.IDField]
	}
	return nil
}

// UnmarshalJSON accepts either dict form of a match.
func (m *Match) UnmarshalJSON(data []byte) error {
	var d map[string]any
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	decoded, err := FromMap(d)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// UnmarshalYAML accepts either dict form of a match.
func (m *Match) UnmarshalYAML(unmarshal func(any) error) error {
	var d map[string]any
	if err := unmarshal(&d); err != nil {
		return err
	}
	decoded, err := FromMap(d)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}
