// Package rules holds the rules produced by the suggestion service, their
// user-assigned lifecycle status and the results of applying them.
package rules

import (
	"bytes"
	"encoding/json"

	"github.com/agentstation/matchrules/pkg/errors"
)

// Rule is an opaque JSON object produced by the suggestion service. Two rules
// are the same rule iff their compact serialized forms are byte equal; key
// order is kept exactly as received.
type Rule struct {
	raw json.RawMessage
}

// New validates raw and returns the rule it encodes. raw must be a JSON object
// carrying a "priority" member.
func New(raw []byte) (Rule, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Rule{}, errors.WrapParse("json", "", err)
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &members); err != nil {
		return Rule{}, errors.NewValidationError("rule", string(raw), "rule is not a JSON object")
	}
	if _, ok := members["priority"]; !ok {
		return Rule{}, errors.NewValidationError("priority", nil, "rule has no priority")
	}
	return Rule{raw: buf.Bytes()}, nil
}

// MustNew is New that panics on error. Intended for tests and literals.
func MustNew(raw string) Rule {
	r, err := New([]byte(raw))
	if err != nil {
		panic(err)
	}
	return r
}

// Identity returns the deduplication key of the rule.
func (r Rule) Identity() string {
	return string(r.raw)
}

// IsZero reports whether r was never initialised.
func (r Rule) IsZero() bool {
	return len(r.raw) == 0
}

// Priority returns the raw JSON text of the priority member.
func (r Rule) Priority() string {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(r.raw, &members); err != nil {
		return ""
	}
	return string(members["priority"])
}

// Fields decodes the rule into a generic map.
func (r Rule) Fields() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(r.raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// String implements fmt.Stringer.
func (r Rule) String() string {
	return r.Identity()
}

// MarshalJSON emits the rule exactly as received.
func (r Rule) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rule) UnmarshalJSON(data []byte) error {
	parsed, err := New(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML emits the identity string so key order survives YAML.
func (r Rule) MarshalYAML() (any, error) {
	return r.Identity(), nil
}

// UnmarshalYAML accepts the identity string written by MarshalYAML.
func (r *Rule) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := New([]byte(s))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
