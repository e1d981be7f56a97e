package rules

import (
	"fmt"

	"github.com/agentstation/matchrules/pkg/errors"
)

// Status is the user-assigned lifecycle status of a rule.
type Status string

// Rule statuses.
const (
	Unhandled Status = "Unhandled"
	Confirmed Status = "Confirmed"
	Deleted   Status = "Deleted"
)

// Statuses lists every valid status.
var Statuses = []Status{Unhandled, Confirmed, Deleted}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case Unhandled, Confirmed, Deleted:
		return true
	}
	return false
}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", errors.NewValidationError("status", s, fmt.Sprintf("unknown rule status %q", s))
	}
	return st, nil
}

// Relation names another rule by index, with the number of sources they share.
type Relation struct {
	RuleIndex    int `json:"ruleIndex" yaml:"ruleIndex"`
	Multiplicity int `json:"multiplicity" yaml:"multiplicity"`
}

// String renders the relation as "Rule#<index>: <multiplicity>".
func (r Relation) String() string {
	return fmt.Sprintf("Rule#%d: %d", r.RuleIndex, r.Multiplicity)
}
