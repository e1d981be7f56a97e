// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format is an output format name.
type Format string

// Output formats. Wide is a table that prefers Data.Wide.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatWide  Format = "wide"
)

// Align is a table column alignment. AlignDefault leaves the column alone.
type Align int

const (
	AlignDefault Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

var twAlign = [...]tw.Align{
	AlignDefault: tw.Skip,
	AlignLeft:    tw.AlignLeft,
	AlignCenter:  tw.AlignCenter,
	AlignRight:   tw.AlignRight,
}

// Data is a rendered table.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
	// Wide builds the table shown in wide format instead of this one.
	Wide func() Data `json:"-" yaml:"-"`
}

// Formatter writes a value in one format.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// Tabler is implemented by values with their own table form. JSON and YAML
// output ignore it and encode the value itself.
type Tabler interface {
	Table() Data
}

// NewFormatter returns the formatter for format. Unknown formats render
// tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{Wide: format == FormatWide}
	}
}

// JSONFormatter encodes values as JSON.
type JSONFormatter struct {
	Indent string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(data)
}

// YAMLFormatter encodes values as YAML with unindented sequences.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	out, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// TableFormatter renders Data, Tablers, structs and struct slices as
// tables. Anything else is written as JSON.
type TableFormatter struct {
	Wide bool
}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case Data:
		if f.Wide && v.Wide != nil {
			v = v.Wide()
		}
		return render(w, v)
	case Tabler:
		return f.Format(w, v.Table())
	}
	if d, ok := reflectTable(data); ok {
		return render(w, d)
	}
	return (&JSONFormatter{Indent: "  "}).Format(w, data)
}

func render(w io.Writer, data Data) error {
	var cfg tablewriter.Config
	if len(data.ColumnAlignment) > 0 {
		per := make([]tw.Align, len(data.ColumnAlignment))
		for i, a := range data.ColumnAlignment {
			per[i] = twAlign[a]
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: per}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: per}
	}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	if len(data.Headers) > 0 {
		table.Header(cells(data.Headers)...)
	}
	for _, row := range data.Rows {
		if err := table.Append(cells(row)...); err != nil {
			return err
		}
	}
	return table.Render()
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}

// reflectTable lays out a struct slice as one row per element, and a single
// struct as property/value rows.
func reflectTable(data any) (Data, bool) {
	v := reflect.ValueOf(data)
	switch {
	case v.Kind() == reflect.Slice && v.Len() > 0 && v.Index(0).Kind() == reflect.Struct:
		t := v.Index(0).Type()
		d := Data{Headers: make([]string, t.NumField())}
		for i := range t.NumField() {
			d.Headers[i] = Header(t.Field(i))
		}
		for i := range v.Len() {
			elem := v.Index(i)
			row := make([]string, elem.NumField())
			for j := range row {
				row[j] = fmt.Sprint(elem.Field(j).Interface())
			}
			d.Rows = append(d.Rows, row)
		}
		return d, true

	case v.Kind() == reflect.Struct:
		d := Data{Headers: []string{"Property", "Value"}}
		for i := range v.NumField() {
			d.Rows = append(d.Rows, []string{Header(v.Type().Field(i)), fmt.Sprint(v.Field(i).Interface())})
		}
		return d, true
	}
	return Data{}, false
}

// DetectFormat returns the explicit format, or table on a terminal and JSON
// when output is piped.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormatTable
	}
	return FormatJSON
}

// ParseFormat validates a format name. Empty is accepted and means detect.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML, FormatWide, "":
		return f, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of: table, json, yaml, wide", s)
}

// Header returns the column title of a struct field: its json name in title
// case, or the Go field name.
func Header(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return Title(name)
}

// Title converts snake_case or camelCase to "Title Case".
func Title(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' && i > 0 && s[i-1] != '_' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	caser := cases.Title(language.English, cases.NoLower)
	return caser.String(strings.ReplaceAll(b.String(), "_", " "))
}
