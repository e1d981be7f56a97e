package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
)

func TestDescribeMatchSet(t *testing.T) {
	view := matchrules.MatchSetView{
		Name:    "default",
		Matches: []match.Match{match.New("1", "10"), match.New("1", "11"), match.New("2", "12")},
		Partition: match.Partition{
			Unambiguous: []match.Match{match.New("2", "12")},
			Ambiguous:   []string{"1"},
		},
	}

	detail := DescribeMatchSet(view, func(m match.Match) (string, string) {
		return "s" + m.SourceID, "t" + m.TargetID
	})
	require.Len(t, detail.Matches, 3)
	assert.True(t, detail.Matches[0].Ambiguous)
	assert.False(t, detail.Matches[2].Ambiguous)
	assert.Equal(t, "s2", detail.Matches[2].SourceLabel)

	table := detail.Table()
	assert.Equal(t, []string{"2", "12", "s2", "t12", "no"}, table.Rows[2])

	unlabeled := DescribeMatchSet(view, nil).Table()
	assert.Equal(t, []string{"1", "10", "-", "-", "yes"}, unlabeled.Rows[0])
}

func TestRulesTable(t *testing.T) {
	long := rules.MustNew(`{"priority": 1, "source": "` + strings.Repeat("x", 80) + `", "target": "name"}`)
	views := Rules{
		{Index: 0, Rule: long, Status: rules.Confirmed, Info: &rules.Info{
			NumberOfMatches: 2,
			Conflicts:       []rules.Relation{{RuleIndex: 1, Multiplicity: 1}},
		}},
		{Index: 1, Rule: rules.MustNew(`{"priority": 2}`), Status: rules.Unhandled},
	}

	narrow := views.Table()
	assert.Equal(t, []string{"0", "Confirmed", "2", "1", "0"}, narrow.Rows[0][:5])
	assert.Len(t, narrow.Rows[0][5], maxRuleWidth)
	assert.Equal(t, []string{"1", "Unhandled", "-", "-", "-", `{"priority":2}`}, narrow.Rows[1])

	wide := narrow.Wide()
	assert.Equal(t, long.String(), wide.Rows[0][5])

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, views))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Confirmed", decoded[0]["status"])
}

func TestComparisonViews(t *testing.T) {
	result := Comparison(compare.Result{
		First:          "rule_output",
		Second:         "default",
		Agreed:         []match.Match{match.New("1", "10")},
		Disagreed:      []compare.Disagreement{{SourceID: "2", FirstTarget: "11", SecondTarget: "12"}},
		OnlySecond:     []match.Match{match.New("3", "13")},
		FirstAmbiguous: []string{"4"},
	})

	table := result.Table()
	assert.Equal(t, []string{"Kind", "Source", "Rule Output", "Default"}, table.Headers)
	assert.Equal(t, [][]string{
		{"agreed", "1", "10", "10"},
		{"disagreed", "2", "11", "12"},
		{"only default", "3", "-", "13"},
		{"ambiguous in rule_output", "4", "*", "-"},
	}, table.Rows)

	summary := result.Summarize()
	assert.Equal(t, 1, summary.Agreed)
	assert.Equal(t, 1, summary.FirstAmbiguous)

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, summary))
	assert.Contains(t, buf.String(), `"onlySecond": 1`)
}
