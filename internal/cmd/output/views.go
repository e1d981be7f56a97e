package output

import (
	"strconv"
	"strings"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
)

// maxRuleWidth bounds the rule column in narrow tables.
const maxRuleWidth = 60

// SessionSummary describes the session stored in a state file.
type SessionSummary struct {
	Project      string   `json:"project"`
	State        string   `json:"state"`
	Sources      int      `json:"sources"`
	Targets      int      `json:"targets"`
	SourceFields []string `json:"source_fields"`
	TargetFields []string `json:"target_fields"`
	MatchSets    []string `json:"match_sets"`
	Rules        int      `json:"rules"`
	Deleted      int      `json:"deleted_rules"`
	Changes      string   `json:"changes"`
}

// Summarize builds the summary of s.
func Summarize(s *matchrules.Session) SessionSummary {
	return SessionSummary{
		Project:      s.Project(),
		State:        string(s.State()),
		Sources:      s.Sources().Len(),
		Targets:      s.Targets().Len(),
		SourceFields: s.SourceFields(),
		TargetFields: s.TargetFields(),
		MatchSets:    s.MatchSetNames(),
		Rules:        len(s.Rules()),
		Deleted:      len(s.DeletedRules()),
		Changes:      s.ChangeLabel(),
	}
}

// Table implements Tabler.
func (v SessionSummary) Table() Data {
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project", dash(v.Project)},
			{"State", v.State},
			{"Sources", strconv.Itoa(v.Sources)},
			{"Targets", strconv.Itoa(v.Targets)},
			{"Source Fields", strings.Join(v.SourceFields, ", ")},
			{"Target Fields", strings.Join(v.TargetFields, ", ")},
			{"Match Sets", strings.Join(v.MatchSets, ", ")},
			{"Rules", strconv.Itoa(v.Rules)},
			{"Deleted Rules", strconv.Itoa(v.Deleted)},
			{"Changes", v.Changes},
		},
	}
}

// MatchSetRow is one line of the match set listing.
type MatchSetRow struct {
	Name        string `json:"name"`
	Matches     int    `json:"matches"`
	Unambiguous int    `json:"unambiguous"`
	Ambiguous   int    `json:"ambiguous"`
}

// MatchSets lists match sets.
type MatchSets []MatchSetRow

// ListMatchSets builds the listing of every match set of s.
func ListMatchSets(s *matchrules.Session) MatchSets {
	names := s.MatchSetNames()
	out := make(MatchSets, 0, len(names))
	for _, name := range names {
		view, err := s.MatchSet(name)
		if err != nil {
			continue
		}
		out = append(out, MatchSetRow{
			Name:        name,
			Matches:     len(view.Matches),
			Unambiguous: len(view.Partition.Unambiguous),
			Ambiguous:   len(view.Partition.Ambiguous),
		})
	}
	return out
}

// Table implements Tabler.
func (v MatchSets) Table() Data {
	rows := make([][]string, len(v))
	for i, r := range v {
		rows[i] = []string{r.Name, strconv.Itoa(r.Matches), strconv.Itoa(r.Unambiguous), strconv.Itoa(r.Ambiguous)}
	}
	return Data{
		Headers:         []string{"Name", "Matches", "Unambiguous", "Ambiguous"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight},
	}
}

// LabeledMatch is a match with display values for both entities.
type LabeledMatch struct {
	SourceID    string `json:"sourceId"`
	TargetID    string `json:"targetId"`
	SourceLabel string `json:"sourceLabel,omitempty"`
	TargetLabel string `json:"targetLabel,omitempty"`
	Ambiguous   bool   `json:"ambiguous"`
}

// MatchSetDetail shows the matches of one set.
type MatchSetDetail struct {
	Name      string         `json:"name"`
	Matches   []LabeledMatch `json:"matches"`
	Ambiguous []string       `json:"ambiguous"`
}

// Labeler returns display values for both sides of a match.
type Labeler func(m match.Match) (string, string)

// DescribeMatchSet builds the detail view of a set. label may be nil.
func DescribeMatchSet(view matchrules.MatchSetView, label Labeler) MatchSetDetail {
	ambiguous := make(map[string]bool, len(view.Partition.Ambiguous))
	for _, id := range view.Partition.Ambiguous {
		ambiguous[id] = true
	}
	out := MatchSetDetail{
		Name:      view.Name,
		Matches:   make([]LabeledMatch, len(view.Matches)),
		Ambiguous: view.Partition.Ambiguous,
	}
	for i, m := range view.Matches {
		lm := LabeledMatch{SourceID: m.SourceID, TargetID: m.TargetID, Ambiguous: ambiguous[m.SourceID]}
		if label != nil {
			lm.SourceLabel, lm.TargetLabel = label(m)
		}
		out.Matches[i] = lm
	}
	return out
}

// Table implements Tabler.
func (v MatchSetDetail) Table() Data {
	rows := make([][]string, len(v.Matches))
	for i, m := range v.Matches {
		rows[i] = []string{m.SourceID, m.TargetID, dash(m.SourceLabel), dash(m.TargetLabel), yes(m.Ambiguous)}
	}
	return Data{
		Headers: []string{"Source", "Target", "Source Label", "Target Label", "Ambiguous"},
		Rows:    rows,
	}
}

// Rules lists rules with their status and last apply result.
type Rules []matchrules.RuleView

// Table implements Tabler.
func (v Rules) Table() Data {
	return v.table(maxRuleWidth)
}

func (v Rules) table(width int) Data {
	rows := make([][]string, len(v))
	for i, r := range v {
		matches, conflicts, overlaps := "-", "-", "-"
		if r.Info != nil {
			matches = strconv.Itoa(r.Info.NumberOfMatches)
			conflicts = strconv.Itoa(len(r.Info.Conflicts))
			overlaps = strconv.Itoa(len(r.Info.Overlaps))
		}
		rows[i] = []string{strconv.Itoa(r.Index), string(r.Status), matches, conflicts, overlaps, truncate(r.Rule.String(), width)}
	}
	return Data{
		Headers:         []string{"#", "Status", "Matches", "Conflicts", "Overlaps", "Rule"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft},
		Wide:            func() Data { return v.table(0) },
	}
}

// Rule shows one rule in detail.
type Rule matchrules.RuleView

// Table implements Tabler.
func (v Rule) Table() Data {
	rows := [][]string{
		{"Index", strconv.Itoa(v.Index)},
		{"Status", string(v.Status)},
		{"Priority", dash(v.Rule.Priority())},
		{"Rule", v.Rule.String()},
	}
	if v.Info == nil {
		rows = append(rows, []string{"Result", "not calculated"})
	} else {
		rows = append(rows,
			[]string{"Matches", strconv.Itoa(v.Info.NumberOfMatches)},
			[]string{"Conflicts", relations(v.Info.Conflicts)},
			[]string{"Overlaps", relations(v.Info.Overlaps)},
		)
	}
	d := Data{Headers: []string{"Property", "Value"}, Rows: rows}
	d.Wide = func() Data {
		wide := Data{Headers: d.Headers, Rows: append([][]string(nil), d.Rows...)}
		if v.Info != nil {
			for _, m := range v.Info.Matches {
				wide.Rows = append(wide.Rows, []string{"Match", m.String()})
			}
		}
		return wide
	}
	return d
}

// Report shows the outcome of a generate, apply or add call.
type Report matchrules.ApplyReport

// Table implements Tabler.
func (v Report) Table() Data {
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Operation", v.Operation},
			{"Applied", yes(v.Applied)},
			{"Rules", strconv.Itoa(v.Rules)},
			{"Inserted", strconv.Itoa(v.Inserted)},
			{"Removed", strconv.Itoa(v.Removed)},
			{"Matches", strconv.Itoa(v.Matches)},
			{"Ambiguous", strconv.Itoa(v.Ambiguous)},
			{"Skipped", strconv.Itoa(v.Skipped)},
			{"Duration", v.Duration.String()},
		},
	}
}

// Comparison shows how two match sets relate, one line per source.
type Comparison compare.Result

// Table implements Tabler.
func (v Comparison) Table() Data {
	var rows [][]string
	for _, m := range v.Agreed {
		rows = append(rows, []string{"agreed", m.SourceID, m.TargetID, m.TargetID})
	}
	for _, d := range v.Disagreed {
		rows = append(rows, []string{"disagreed", d.SourceID, d.FirstTarget, d.SecondTarget})
	}
	for _, m := range v.OnlyFirst {
		rows = append(rows, []string{"only " + v.First, m.SourceID, m.TargetID, "-"})
	}
	for _, m := range v.OnlySecond {
		rows = append(rows, []string{"only " + v.Second, m.SourceID, "-", m.TargetID})
	}
	for _, id := range v.FirstAmbiguous {
		rows = append(rows, []string{"ambiguous in " + v.First, id, "*", "-"})
	}
	for _, id := range v.SecondAmbiguous {
		rows = append(rows, []string{"ambiguous in " + v.Second, id, "-", "*"})
	}
	return Data{
		Headers: []string{"Kind", "Source", Title(v.First), Title(v.Second)},
		Rows:    rows,
	}
}

// ComparisonSummary counts the categories of a comparison.
type ComparisonSummary struct {
	First  string `json:"first"`
	Second string `json:"second"`
	compare.Summary `yaml:",inline"`
}

// Summarize returns the counts of v.
func (v Comparison) Summarize() ComparisonSummary {
	return ComparisonSummary{First: v.First, Second: v.Second, Summary: compare.Result(v).Summary()}
}

// Table implements Tabler.
func (v ComparisonSummary) Table() Data {
	return Data{
		Headers: []string{"Category", "Sources"},
		Rows: [][]string{
			{"Agreed", strconv.Itoa(v.Agreed)},
			{"Disagreed", strconv.Itoa(v.Disagreed)},
			{"Only " + v.First, strconv.Itoa(v.OnlyFirst)},
			{"Only " + v.Second, strconv.Itoa(v.OnlySecond)},
			{"Ambiguous in " + v.First, strconv.Itoa(v.FirstAmbiguous)},
			{"Ambiguous in " + v.Second, strconv.Itoa(v.SecondAmbiguous)},
		},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

func relations(rs []rules.Relation) string {
	if len(rs) == 0 {
		return "-"
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
