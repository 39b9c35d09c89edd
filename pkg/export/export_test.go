package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/records"
)

func sampleTable() Table {
	return Table{
		Title:   "Bug Prediction",
		Columns: Columns("path", "bug_probability", "metrics.churn"),
		Rows: []records.Record{
			{"path": "auth/login.go", "bug_probability": 0.82, "metrics": map[string]any{"churn": 14.0}},
			{"path": "api|v2.go", "bug_probability": 0.4},
		},
		Summary:     records.Record{"total_files": 2.0, "high_risk": 1.0},
		Categories:  map[string][]geometry.CategoryTotal{"risk_levels": {{Category: "high", Count: 1}, {Category: "low", Count: 1}}},
		GeneratedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"": FormatJSON, "CSV": FormatCSV, "md": FormatMarkdown, "yml": FormatYAML} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Equal(t, "md", FormatMarkdown.Extension())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Bug Probability", Label("bug_probability"))
	assert.Equal(t, "Metrics Churn", Label("metrics.churn"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleTable()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Path", "Bug Probability", "Metrics Churn"}, rows[0])
	assert.Equal(t, []string{"auth/login.go", "0.82", "14"}, rows[1])
	assert.Equal(t, []string{"api|v2.go", "0.4", ""}, rows[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleTable()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Bug Prediction", doc["title"])
	rows := doc["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, 14.0, rows[0].(map[string]any)["metrics.churn"])
	assert.Contains(t, doc, "categories")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleTable()))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Bug Prediction", doc["title"])
	summary := doc["summary"].(map[string]any)
	assert.Equal(t, 2, summary["total_files"])
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, sampleTable()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Bug Prediction\n"))
	assert.Contains(t, out, "- **High Risk**: 1")
	assert.Contains(t, out, "| Path | Bug Probability | Metrics Churn |")
	assert.Contains(t, out, `| api\|v2.go | 0.4 |  |`)
	assert.Contains(t, out, "## Risk Levels")
}

func TestWriteInfersColumns(t *testing.T) {
	var buf bytes.Buffer
	table := Table{Rows: []records.Record{{"b": 1, "a": "x"}, {"c": true}}}
	require.NoError(t, Write(&buf, FormatCSV, table))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "A,B,C", lines[0])
	assert.Equal(t, "x,1,", lines[1])
	assert.Equal(t, ",,true", lines[2])
}

func TestWriteUnsupported(t *testing.T) {
	assert.ErrorIs(t, Write(&bytes.Buffer{}, Format("pdf"), Table{}), ErrUnsupportedFormat)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "a, b", FormatValue([]any{"a", "b"}))
	assert.Equal(t, `{"k":1}`, FormatValue(map[string]any{"k": 1}))
	assert.Equal(t, "3", FormatValue(3))
}
