package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name     string `json:"name"`
	SourceID string `json:"sourceId"`
	Count    int    `json:"match_count,omitempty"`
	Untagged bool
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"name":        "Name",
		"sourceId":    "Source Id",
		"match_count": "Match Count",
		"rule_output": "Rule Output",
	}
	for in, want := range tests {
		assert.Equal(t, want, Title(in), in)
	}
}

func TestFormatters(t *testing.T) {
	rows := []row{{Name: "default", SourceID: "1", Count: 2}, {Name: "curated", SourceID: "2"}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatJSON).Format(&buf, rows))
		assert.Contains(t, buf.String(), `"sourceId": "1"`)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatYAML).Format(&buf, map[string]int{"agreed": 3}))
		assert.Equal(t, "agreed: 3\n", buf.String())
	})

	t.Run("table from struct slice", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatTable).Format(&buf, rows))
		out := strings.ToUpper(buf.String())
		assert.Contains(t, out, "SOURCE ID")
		assert.Contains(t, out, "MATCH COUNT")
		assert.Contains(t, out, "CURATED")
	})

	t.Run("wide uses the wide table", func(t *testing.T) {
		data := Data{
			Headers: []string{"Rule"},
			Rows:    [][]string{{"short"}},
			Wide: func() Data {
				return Data{Headers: []string{"Rule"}, Rows: [][]string{{"complete"}}}
			},
		}
		var narrow, wide bytes.Buffer
		require.NoError(t, NewFormatter(FormatTable).Format(&narrow, data))
		require.NoError(t, NewFormatter(FormatWide).Format(&wide, data))
		assert.Contains(t, narrow.String(), "short")
		assert.Contains(t, wide.String(), "complete")
	})
}
