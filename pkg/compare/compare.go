// Package compare computes agreement between two match partitions, for example
// the engine's rule output against a hand-curated match set.
package compare

import (
	"github.com/agentstation/matchrules/pkg/match"
)

// Side is one input of a comparison: a label and its partition.
type Side struct {
	Key       string
	Partition match.Partition
}

// Disagreement is a source both sides assert, with different targets.
type Disagreement struct {
	SourceID     string `json:"sourceId" yaml:"sourceId"`
	FirstTarget  string `json:"firstTarget" yaml:"firstTarget"`
	SecondTarget string `json:"secondTarget" yaml:"secondTarget"`
}

// Result is the comparison of two partitions. Agreed, Disagreed and OnlyFirst
// follow the order of the first partition, OnlySecond that of the second.
type Result struct {
	First           string         `json:"first" yaml:"first"`
	Second          string         `json:"second" yaml:"second"`
	Agreed          []match.Match  `json:"agreed" yaml:"agreed"`
	Disagreed       []Disagreement `json:"disagreed" yaml:"disagreed"`
	OnlyFirst       []match.Match  `json:"onlyFirst" yaml:"onlyFirst"`
	OnlySecond      []match.Match  `json:"onlySecond" yaml:"onlySecond"`
	FirstAmbiguous  []string       `json:"firstAmbiguous" yaml:"firstAmbiguous"`
	SecondAmbiguous []string       `json:"secondAmbiguous" yaml:"secondAmbiguous"`
}

// Compare runs a full pass over both partitions. A source present on only one
// side is never a disagreement, and ambiguous sources are reported per side
// without cross comparison.
func Compare(first, second Side) Result {
	r := Result{
		First:           first.Key,
		Second:          second.Key,
		Agreed:          []match.Match{},
		Disagreed:       []Disagreement{},
		OnlyFirst:       []match.Match{},
		OnlySecond:      []match.Match{},
		FirstAmbiguous:  append([]string{}, first.Partition.Ambiguous...),
		SecondAmbiguous: append([]string{}, second.Partition.Ambiguous...),
	}

	for _, m := range first.Partition.Unambiguous {
		other, ok := second.Partition.Target(m.SourceID)
		switch {
		case !ok:
			r.OnlyFirst = append(r.OnlyFirst, m)
		case other == m.TargetID:
			r.Agreed = append(r.Agreed, m)
		default:
			r.Disagreed = append(r.Disagreed, Disagreement{
				SourceID:     m.SourceID,
				FirstTarget:  m.TargetID,
				SecondTarget: other,
			})
		}
	}
	for _, m := range second.Partition.Unambiguous {
		if _, ok := first.Partition.Target(m.SourceID); !ok {
			r.OnlySecond = append(r.OnlySecond, m)
		}
	}
	return r
}

// DisagreedSources returns the source ids of every disagreement.
func (r Result) DisagreedSources() []string {
	out := make([]string, len(r.Disagreed))
	for i, d := range r.Disagreed {
		out[i] = d.SourceID
	}
	return out
}

// Disagreement returns both asserted targets for source.
func (r Result) Disagreement(source string) (Disagreement, bool) {
	for _, d := range r.Disagreed {
		if d.SourceID == source {
			return d, true
		}
	}
	return Disagreement{}, false
}

// Summary counts each category.
type Summary struct {
	Agreed          int `json:"agreed" yaml:"agreed"`
	Disagreed       int `json:"disagreed" yaml:"disagreed"`
	OnlyFirst       int `json:"onlyFirst" yaml:"onlyFirst"`
	OnlySecond      int `json:"onlySecond" yaml:"onlySecond"`
	FirstAmbiguous  int `json:"firstAmbiguous" yaml:"firstAmbiguous"`
	SecondAmbiguous int `json:"secondAmbiguous" yaml:"secondAmbiguous"`
}

// Summary returns the size of each category.
func (r Result) Summary() Summary {
	return Summary{
		Agreed:          len(r.Agreed),
		Disagreed:       len(r.Disagreed),
		OnlyFirst:       len(r.OnlyFirst),
		OnlySecond:      len(r.OnlySecond),
		FirstAmbiguous:  len(r.FirstAmbiguous),
		SecondAmbiguous: len(r.SecondAmbiguous),
	}
}
