package cmdutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadRecords(t *testing.T) {
	t.Run("json keeps numbers", func(t *testing.T) {
		path := writeFile(t, "sources.json", `[{"id": 7, "name": "pump-7"}]`)
		records, err := ReadRecords(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, json.Number("7"), records[0]["id"])
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, "targets.yml", "- id: a1\n  name: Pump 7\n")
		records, err := ReadRecords(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Pump 7", records[0]["name"])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadRecords(filepath.Join(t.TempDir(), "missing.json"))
		var ioErr *errors.IOError
		assert.ErrorAs(t, err, &ioErr)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ReadRecords(writeFile(t, "bad.json", `[{`))
		var parseErr *errors.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestReadRules(t *testing.T) {
	t.Run("json keeps key order", func(t *testing.T) {
		path := writeFile(t, "rules.json", `[{"target": "name", "priority": 1}]`)
		rs, err := ReadRules(path)
		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.Equal(t, `{"target":"name","priority":1}`, rs[0].String())
	})

	t.Run("yaml mappings and strings", func(t *testing.T) {
		path := writeFile(t, "rules.yaml", "- target: name\n  priority: 1\n- '{\"priority\": 2}'\n")
		rs, err := ReadRules(path)
		require.NoError(t, err)
		require.Len(t, rs, 2)
		assert.Equal(t, `{"priority":1,"target":"name"}`, rs[0].String())
		assert.Equal(t, `{"priority":2}`, rs[1].String())
	})

	t.Run("rule without priority", func(t *testing.T) {
		_, err := ReadRules(writeFile(t, "rules.yaml", "- target: name\n"))
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestParseRules(t *testing.T) {
	rs, err := ParseRules([]string{`{"priority": 1}`, `{"priority": 2, "x": true}`})
	require.NoError(t, err)
	assert.Len(t, rs, 2)

	_, err = ParseRules([]string{`{"x": true}`})
	assert.True(t, errors.IsValidationError(err))
}

func TestReadMatches(t *testing.T) {
	path := writeFile(t, "matches.yaml", "- sourceId: \"1\"\n  targetId: \"10\"\n")
	ms, err := ReadMatches(path)
	require.NoError(t, err)
	assert.Equal(t, []match.Match{match.New("1", "10")}, ms)
}

func TestParseMatch(t *testing.T) {
	tests := []struct {
		arg     string
		want    match.Match
		wantErr bool
	}{
		{arg: "1=10", want: match.New("1", "10")},
		{arg: " 1 = 10 ", want: match.New("1", "10")},
		{arg: "1", wantErr: true},
		{arg: "=10", wantErr: true},
		{arg: "1=", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			m, err := ParseMatch(tt.arg)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}
