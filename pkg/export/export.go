package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ettle/strcase"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/records"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// ErrUnsupportedFormat is returned by ParseFormat and Write for unknown formats.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ParseFormat maps user input (including common aliases) to a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

// Extension is the file extension used for downloads.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case "":
		return "json"
	default:
		return string(f)
	}
}

// Column selects a record field and the label it is exported under.
type Column struct {
	Field string `json:"field" yaml:"field"`
	Label string `json:"label" yaml:"label"`
}

// Columns builds columns whose labels are the title-cased field names.
func Columns(fields ...string) []Column {
	out := make([]Column, 0, len(fields))
	for _, f := range fields {
		out = append(out, Column{Field: f, Label: Label(f)})
	}
	return out
}

// Label turns a field name such as "bug_probability" into "Bug Probability".
func Label(field string) string {
	return strcase.ToCase(strings.ReplaceAll(field, ".", "_"), strcase.TitleCase, ' ')
}

// Table is the exported view of a dashboard.
type Table struct {
	Title       string
	Columns     []Column
	Rows        []records.Record
	Summary     records.Record
	Series      map[string][]geometry.SeriesPoint
	Categories  map[string][]geometry.CategoryTotal
	GeneratedAt time.Time
}

type document struct {
	Title       string                              `json:"title,omitempty" yaml:"title,omitempty"`
	GeneratedAt time.Time                           `json:"generated_at" yaml:"generated_at"`
	Columns     []Column                            `json:"columns" yaml:"columns"`
	Rows        []map[string]any                    `json:"rows" yaml:"rows"`
	Summary     map[string]any                      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Series      map[string][]geometry.SeriesPoint   `json:"series,omitempty" yaml:"series,omitempty"`
	Categories  map[string][]geometry.CategoryTotal `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Write encodes table in the given format. CSV carries only the rows.
func Write(w io.Writer, format Format, table Table) error {
	if len(table.Columns) == 0 {
		table.Columns = Columns(InferFields(table.Rows)...)
	}
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toDocument(table))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toDocument(table)); err != nil {
			return fmt.Errorf("export: yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, table)
	case FormatMarkdown:
		return writeMarkdown(w, table)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// InferFields lists the fields present across rows in first-seen order, with
// the keys of each record visited alphabetically.
func InferFields(rows []records.Record) []string {
	var fields []string
	seen := map[string]bool{}
	for _, r := range rows {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				fields = append(fields, k)
			}
		}
	}
	return fields
}

func toDocument(table Table) document {
	rows := make([]map[string]any, 0, len(table.Rows))
	for _, r := range table.Rows {
		row := make(map[string]any, len(table.Columns))
		for _, c := range table.Columns {
			row[c.Field] = r.Get(c.Field)
		}
		rows = append(rows, row)
	}
	doc := document{
		Title:       table.Title,
		GeneratedAt: table.GeneratedAt,
		Columns:     table.Columns,
		Rows:        rows,
		Series:      table.Series,
		Categories:  table.Categories,
	}
	if len(table.Summary) > 0 {
		doc.Summary = map[string]any(table.Summary)
	}
	return doc
}

func writeCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	for _, r := range table.Rows {
		line := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			line[i] = FormatValue(r.Get(c.Field))
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("export: csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMarkdown(w io.Writer, table Table) error {
	var b strings.Builder
	if table.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", table.Title)
	}
	if !table.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "_Generated %s_\n\n", table.GeneratedAt.UTC().Format(time.RFC3339))
	}
	if len(table.Summary) > 0 {
		b.WriteString("## Summary\n\n")
		keys := make([]string, 0, len(table.Summary))
		for k := range table.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %s\n", Label(k), escapeCell(FormatValue(table.Summary[k])))
		}
		b.WriteString("\n")
	}
	if len(table.Columns) > 0 {
		labels := make([]string, len(table.Columns))
		rule := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			labels[i] = escapeCell(c.Label)
			rule[i] = "---"
		}
		fmt.Fprintf(&b, "| %s |\n| %s |\n", strings.Join(labels, " | "), strings.Join(rule, " | "))
		for _, r := range table.Rows {
			cells := make([]string, len(table.Columns))
			for i, c := range table.Columns {
				cells[i] = escapeCell(FormatValue(r.Get(c.Field)))
			}
			fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
		}
	}
	names := make([]string, 0, len(table.Categories))
	for name := range table.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n## %s\n\n", Label(name))
		for _, c := range table.Categories[name] {
			fmt.Fprintf(&b, "- %s: %s\n", escapeCell(c.Category), strconv.FormatFloat(c.Count, 'f', -1, 64))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatValue renders a field value as a single cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any, records.Record:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
