package cmdutil

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// ReadRecords reads a list of entity records from a JSON or YAML file. The
// format follows the file extension. JSON numbers are kept as json.Number.
func ReadRecords(path string) ([]map[string]any, error) {
	var records []map[string]any
	if err := readList(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ReadRules reads a list of rules from a JSON or YAML file. JSON rules keep
// their key order. YAML entries may be mappings or JSON strings; mappings are
// re-encoded with sorted keys.
func ReadRules(path string) ([]rules.Rule, error) {
	if snapshot.FormatFromPath(path) != snapshot.FormatYAML {
		var rs []rules.Rule
		if err := readList(path, &rs); err != nil {
			return nil, err
		}
		return rs, nil
	}
	var items []any
	if err := readList(path, &items); err != nil {
		return nil, err
	}
	out := make([]rules.Rule, 0, len(items))
	for _, item := range items {
		var raw []byte
		if s, ok := item.(string); ok {
			raw = []byte(s)
		} else {
			b, err := json.Marshal(item)
			if err != nil {
				return nil, errors.WrapParse("yaml", path, err)
			}
			raw = b
		}
		r, err := rules.New(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ParseRules parses rules given inline as JSON objects.
func ParseRules(args []string) ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(args))
	for _, arg := range args {
		r, err := rules.New([]byte(arg))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ReadMatches reads a list of {sourceId, targetId} objects from a JSON or
// YAML file.
func ReadMatches(path string) ([]match.Match, error) {
	var ms []match.Match
	if err := readList(path, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}

// ParseMatch parses "source=target".
func ParseMatch(arg string) (match.Match, error) {
	source, target, ok := strings.Cut(arg, "=")
	m := match.New(strings.TrimSpace(source), strings.TrimSpace(target))
	if !ok {
		return match.Match{}, errors.NewValidationError("match", arg, "expected source=target")
	}
	if err := m.Validate(); err != nil {
		return match.Match{}, err
	}
	return m, nil
}

func readList(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO("read", path, err)
	}
	switch snapshot.FormatFromPath(path) {
	case snapshot.FormatYAML:
		if err := yaml.Unmarshal(data, out); err != nil {
			return errors.WrapParse("yaml", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return errors.WrapParse("json", path, err)
		}
	}
	return nil
}
