// Package snapshot is the persistence boundary of a session: a plain nested
// structure holding everything needed to rebuild it, with JSON and YAML codecs.
//
// Encoding a State, decoding it and encoding it again yields identical bytes
// for both formats.
package snapshot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
)

// MatchSet is the persisted form of a named match set.
type MatchSet struct {
	Name    string        `json:"name" yaml:"name"`
	Matches []match.Match `json:"matches" yaml:"matches"`
}

// State is the full persisted state of a session.
type State struct {
	Project       string                  `json:"project" yaml:"project"`
	SourceIDField string                  `json:"source_id_field" yaml:"source_id_field"`
	TargetIDField string                  `json:"target_id_field" yaml:"target_id_field"`
	Sources       []map[string]any        `json:"sources" yaml:"sources"`
	SourceFields  []string                `json:"source_fields" yaml:"source_fields"`
	Targets       []map[string]any        `json:"targets" yaml:"targets"`
	TargetFields  []string                `json:"target_fields" yaml:"target_fields"`
	MatchSets     []MatchSet              `json:"match_sets" yaml:"match_sets"`
	Rules         []rules.Rule            `json:"rules" yaml:"rules"`
	DeletedRules  []rules.Rule            `json:"deleted_rules" yaml:"deleted_rules"`
	RuleStatus    map[string]rules.Status `json:"rule_status" yaml:"rule_status"`
	// RuleInfo is the last apply result of the active rules by identity.
	// Rules without an entry are evaluated again by the next apply.
	RuleInfo map[string]rules.Info `json:"rule_info,omitempty" yaml:"rule_info,omitempty"`
}

// Format is a snapshot encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.NewValidationError("format", s, "unsupported snapshot format")
}

// FormatFromPath picks the format from a file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Marshal encodes s.
func Marshal(s *State, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.MarshalWithOptions(s, yaml.Indent(2), yaml.IndentSequence(false))
	}
	return nil, errors.NewValidationError("format", string(format), "unsupported snapshot format")
}

// Unmarshal decodes data. JSON numbers are kept as json.Number so entity
// values survive a round trip unchanged.
func Unmarshal(data []byte, format Format) (*State, error) {
	var s State
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&s); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, errors.WrapParse("yaml", "", err)
		}
	default:
		return nil, errors.NewValidationError("format", string(format), "unsupported snapshot format")
	}
	return &s, nil
}

// Load reads a snapshot file. The format follows the file extension.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	s, err := Unmarshal(data, FormatFromPath(path))
	if err != nil {
		var parseErr *errors.ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
		}
		return nil, err
	}
	return s, nil
}

// Save writes s to path atomically. The format follows the file extension.
func Save(path string, s *State) error {
	data, err := Marshal(s, FormatFromPath(path))
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}
