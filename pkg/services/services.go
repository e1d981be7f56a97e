// Package services defines the contracts of the external rule services: the
// suggestion service derives rules from example matches and the application
// service evaluates rules against entities.
package services

import (
	"context"
	"encoding/json"

	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
)

// Service names used in errors, logs and metrics.
const (
	SuggestService = "suggest"
	ApplyService   = "apply"
)

// WireMatch is the dict form of a match sent to the suggestion service. It
// carries the raw id values of the entities.
type WireMatch struct {
	SourceID any `json:"sourceId"`
	TargetID any `json:"targetId"`
}

// SuggestRequest is the input of the suggestion service.
type SuggestRequest struct {
	Sources []map[string]any `json:"sources"`
	Targets []map[string]any `json:"targets"`
	Matches []WireMatch      `json:"matches"`
}

// SuggestResponse is the output of the suggestion service.
type SuggestResponse struct {
	Rules []rules.Rule `json:"rules"`
}

// ApplyRequest is the input of the application service.
type ApplyRequest struct {
	Sources []map[string]any `json:"sources"`
	Targets []map[string]any `json:"targets"`
	Rules   []rules.Rule     `json:"rules"`
}

// ApplyItem is the result of one rule, aligned with ApplyRequest.Rules.
type ApplyItem struct {
	Matches         []RawMatch       `json:"matches"`
	NumberOfMatches int              `json:"numberOfMatches"`
	Conflicts       []rules.Relation `json:"conflicts"`
	Overlaps        []rules.Relation `json:"overlaps"`
}

// RawMatch keeps a match result undecoded so that one malformed entry does
// not fail the whole response.
type RawMatch json.RawMessage

// MarshalJSON implements json.Marshaler.
func (m RawMatch) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return []byte(m), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *RawMatch) UnmarshalJSON(data []byte) error {
	*m = append((*m)[:0], data...)
	return nil
}

// Decode parses the match in either dict form.
func (m RawMatch) Decode() (match.Match, error) {
	var out match.Match
	err := json.Unmarshal([]byte(m), &out)
	return out, err
}

// NewRawMatch encodes a match in the nested shape returned by the application service.
func NewRawMatch(source, target any) RawMatch {
	data, _ := json.Marshal(map[string]any{
		"source": map[string]any{"id": source},
		"target": map[string]any{"id": target},
	})
	return RawMatch(data)
}

// ApplyResponse is the output of the application service.
type ApplyResponse struct {
	Items []ApplyItem `json:"items"`
}

// Suggester proposes rules from example matches.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error)
}

// Applier evaluates rules against entities.
type Applier interface {
	Apply(ctx context.Context, req ApplyRequest) (*ApplyResponse, error)
}

// Service is a client for both rule services.
type Service interface {
	Suggester
	Applier
}

// SuggestFunc adapts a function to Suggester.
type SuggestFunc func(ctx context.Context, req SuggestRequest) (*SuggestResponse, error)

// Suggest implements Suggester.
func (f SuggestFunc) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error) {
	return f(ctx, req)
}

// ApplyFunc adapts a function to Applier.
type ApplyFunc func(ctx context.Context, req ApplyRequest) (*ApplyResponse, error)

// Apply implements Applier.
func (f ApplyFunc) Apply(ctx context.Context, req ApplyRequest) (*ApplyResponse, error) {
	return f(ctx, req)
}
