// Package output renders command results as a table, JSON, YAML or CSV.
package output

import (
	"encoding/csv"
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

	"github.com/agentstation/layersync/pkg/errors"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// Align is a column alignment for table output.
type Align int

// Column alignments.
const (
	AlignDefault Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Data is a result laid out as rows.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
}

// Tabular is implemented by results that lay themselves out as rows.
type Tabular interface {
	TableData() Data
}

// Formatter encodes a result onto w.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter returns the formatter for format. Unknown formats get a
// table.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Write renders data onto w in the named format. An empty format is
// detected from stdout.
func Write(w io.Writer, format string, data any) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	if f == "" {
		f = DetectFormat("")
	}
	return NewFormatter(f).Format(w, data)
}

// ParseFormat validates s, case-insensitively. The empty string is allowed
// and means detect.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case "", FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	}
	return "", errors.NewValidationError("format", s, "must be one of: table, json, yaml, csv")
}

// DetectFormat returns explicit when set, a table when stdout is a
// terminal, and JSON for pipes and redirects.
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

// JSONFormatter writes indented JSON.
type JSONFormatter struct {
	Indent string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	return enc.Encode(data)
}

// YAMLFormatter writes YAML with block sequences flush to their key.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	b, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// TableFormatter draws a box table. Results that cannot be laid out as
// rows fall back to JSON.
type TableFormatter struct{}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	d, ok := toData(data)
	if !ok {
		return (&JSONFormatter{Indent: "  "}).Format(w, data)
	}

	var cfg tablewriter.Config
	if len(d.ColumnAlignment) > 0 {
		align := make([]tw.Align, len(d.ColumnAlignment))
		for i, a := range d.ColumnAlignment {
			align[i] = twAlign(a)
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: align}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	if len(d.Headers) > 0 {
		table.Header(cells(d.Headers)...)
	}
	for _, row := range d.Rows {
		if err := table.Append(cells(row)...); err != nil {
			return err
		}
	}
	return table.Render()
}

// CSVFormatter writes the header row and rows as RFC 4180 CSV, so results
// can be fed back into spreadsheet tooling.
type CSVFormatter struct{}

// Format implements Formatter.
func (f *CSVFormatter) Format(w io.Writer, data any) error {
	d, ok := toData(data)
	if !ok {
		return errors.NewValidationError("format", string(FormatCSV), fmt.Sprintf("%T cannot be written as rows", data))
	}
	cw := csv.NewWriter(w)
	if len(d.Headers) > 0 {
		if err := cw.Write(d.Headers); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(d.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func twAlign(a Align) tw.Align {
	switch a {
	case AlignLeft:
		return tw.AlignLeft
	case AlignCenter:
		return tw.AlignCenter
	case AlignRight:
		return tw.AlignRight
	}
	return tw.Skip
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}

// toData lays data out as rows: directly for Data and Tabular, one row per
// element for struct slices, and one property per field for a struct.
func toData(data any) (Data, bool) {
	switch v := data.(type) {
	case Data:
		return v, true
	case Tabular:
		return v.TableData(), true
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	switch {
	case v.Kind() == reflect.Slice && v.Len() > 0 && v.Index(0).Kind() == reflect.Struct:
		return sliceData(v), true
	case v.Kind() == reflect.Struct:
		return structData(v), true
	}
	return Data{}, false
}

func sliceData(v reflect.Value) Data {
	t := v.Index(0).Type()
	var d Data
	var idx []int
	for i := range t.NumField() {
		if name, ok := columnName(t.Field(i)); ok {
			d.Headers = append(d.Headers, name)
			idx = append(idx, i)
		}
	}
	for i := range v.Len() {
		row := make([]string, len(idx))
		for j, fi := range idx {
			row[j] = fmt.Sprint(v.Index(i).Field(fi).Interface())
		}
		d.Rows = append(d.Rows, row)
	}
	return d
}

func structData(v reflect.Value) Data {
	d := Data{Headers: []string{"Property", "Value"}}
	t := v.Type()
	for i := range t.NumField() {
		if name, ok := columnName(t.Field(i)); ok {
			d.Rows = append(d.Rows, []string{name, fmt.Sprint(v.Field(i).Interface())})
		}
	}
	return d
}

// columnName returns the title-cased json name of an exported field.
func columnName(field reflect.StructField) (string, bool) {
	if !field.IsExported() {
		return "", false
	}
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return "", false
	case "":
		return field.Name, true
	}
	return Title(strings.ReplaceAll(name, "_", " ")), true
}

// Title title-cases s in English.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
