package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

func sampleState() *snapshot.State {
	active := rules.MustNew(`{"priority":1,"extractors":[{"field":"name","pattern":"PT-(\\d+)"}]}`)
	deleted := rules.MustNew(`{"priority":2,"conditions":[]}`)
	return &snapshot.State{
		Project:       "plant-a",
		SourceIDField: "id",
		TargetIDField: "id",
		Sources: []map[string]any{
			{"id": 1, "name": "PT-1", "metadata": map[string]any{"unit": "bar"}},
			{"id": 2, "name": "PT-2"},
		},
		SourceFields: []string{"id", "name"},
		Targets:      []map[string]any{{"id": "A", "name": "pump 1", "weight": 1.5}},
		TargetFields: []string{"id", "name"},
		MatchSets: []snapshot.MatchSet{
			{Name: "default", Matches: []match.Match{match.New("1", "A")}},
			{Name: "reviewed", Matches: []match.Match{}},
		},
		Rules:        []rules.Rule{active},
		DeletedRules: []rules.Rule{deleted},
		RuleStatus: map[string]rules.Status{
			active.Identity():  rules.Confirmed,
			deleted.Identity(): rules.Deleted,
		},
		RuleInfo: map[string]rules.Info{
			active.Identity(): {
				Matches:         []match.Match{match.New("1", "A"), match.New("2", "A")},
				NumberOfMatches: 2,
				Conflicts:       []rules.Relation{},
				Overlaps:        []rules.Relation{{RuleIndex: 3, Multiplicity: 1}},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []snapshot.Format{snapshot.FormatJSON, snapshot.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			first, err := snapshot.Marshal(sampleState(), format)
			require.NoError(t, err)

			decoded, err := snapshot.Unmarshal(first, format)
			require.NoError(t, err)

			second, err := snapshot.Marshal(decoded, format)
			require.NoError(t, err)
			assert.Equal(t, string(first), string(second))

			assert.Equal(t, "plant-a", decoded.Project)
			assert.Equal(t, sampleState().Rules[0].Identity(), decoded.Rules[0].Identity())
			assert.Equal(t, rules.Deleted, decoded.RuleStatus[decoded.DeletedRules[0].Identity()])
			assert.Equal(t, []match.Match{match.New("1", "A")}, decoded.MatchSets[0].Matches)
			assert.Equal(t, sampleState().RuleInfo, decoded.RuleInfo)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := snapshot.ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, snapshot.FormatYAML, f)

	_, err = snapshot.ParseFormat("toml")
	assert.True(t, errors.IsValidationError(err))

	assert.Equal(t, snapshot.FormatYAML, snapshot.FormatFromPath("state.yaml"))
	assert.Equal(t, snapshot.FormatJSON, snapshot.FormatFromPath("state.json"))
	assert.Equal(t, snapshot.FormatJSON, snapshot.FormatFromPath("state"))
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"state.json", "nested/state.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, snapshot.Save(path, sampleState()))

			loaded, err := snapshot.Load(path)
			require.NoError(t, err)
			assert.Equal(t, "plant-a", loaded.Project)
			assert.Len(t, loaded.Sources, 2)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := snapshot.Load(filepath.Join(dir, "missing.json"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"rules":[{"no_priority":true}]}`), 0o644))
	_, err = snapshot.Load(bad)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"project":`), 0o644))
	_, err = snapshot.Load(broken)
	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, broken, parseErr.File)
}
