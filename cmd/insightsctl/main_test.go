package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	core "github.com/goliatone/go-insights/components/dashboard"
)

func TestParseFilters(t *testing.T) {
	filters, err := parseFilters([]string{"severity:critical", "severity: high", "service:api"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"severity": {"critical", "high"},
		"service":  {"api"},
	}, filters)

	empty, err := parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	for _, bad := range []string{"severity", ":critical", "severity:"} {
		if _, err := parseFilters([]string{bad}); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestQueryFlagsRequest(t *testing.T) {
	q := queryFlags{Search: "auth", Period: "7d", Sort: "score", Dir: "desc", Page: 2}
	req, err := q.request()
	require.NoError(t, err)
	require.NotNil(t, req.Search)
	assert.Equal(t, "auth", *req.Search)
	require.NotNil(t, req.Period)
	assert.Equal(t, "7d", *req.Period)
	assert.Nil(t, req.GroupBy)
	assert.Equal(t, "desc", req.SortDir)
	assert.Equal(t, 2, req.Page)
}

func TestScaffoldCreatesManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifests", "custom.yaml")
	var out bytes.Buffer
	g := &Globals{stdout: &out}

	cmd := scaffoldCmd{
		Code:          "acme.flaky_tests",
		Description:   "Tests ranked by flake rate",
		Category:      "quality",
		ManifestPath:  manifestPath,
		RecordsKey:    "tests",
		KeyField:      []string{"id"},
		SeverityField: "severity",
		Column:        []string{"name", "flake_rate"},
		Period:        []string{"24h", "7d"},
		Tag:           []string{"ci"},
		Channel:       "internal",
	}
	require.NoError(t, cmd.Run(g))
	assert.Contains(t, out.String(), "acme.flaky_tests")

	doc, err := core.ReadManifest(manifestPath)
	require.NoError(t, err)
	require.Len(t, doc.Domains, 1)
	def := doc.Domains[0].Definition
	assert.Equal(t, "Flaky Tests", def.Name)
	assert.Equal(t, "/api/flaky-tests/items", def.Slices[0].Endpoint)
	assert.Equal(t, "tests", def.Slices[0].Shape.Key)
	assert.Equal(t, core.CategoriesFromRecords, def.CategorySource)
	assert.Equal(t, "severity", def.DefaultSort.Field)
	assert.Equal(t, "internal", doc.Domains[0].Source.Channel)
	assert.Len(t, def.Columns, 2)

	props, ok := def.Schema["properties"].(map[string]any)
	require.True(t, ok)
	period, ok := props["period"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, period["enum"], 2)

	reg := core.NewRegistry()
	_, err = reg.LoadManifestFile(manifestPath)
	require.NoError(t, err)
	_, ok = reg.Domain("acme.flaky_tests")
	assert.True(t, ok)
}

func TestScaffoldRejectsDuplicatesWithoutOverwrite(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "custom.yaml")
	g := &Globals{stdout: &bytes.Buffer{}}
	cmd := scaffoldCmd{Code: "acme.queue_depth", ManifestPath: manifestPath, KeyField: []string{"id"}, Period: []string{"24h"}}
	require.NoError(t, cmd.Run(g))

	err := cmd.Run(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--overwrite")

	cmd.Overwrite = true
	cmd.Name = "Queue Depth v2"
	require.NoError(t, cmd.Run(g))
	doc, err := core.ReadManifest(manifestPath)
	require.NoError(t, err)
	require.Len(t, doc.Domains, 1)
	assert.Equal(t, "Queue Depth v2", doc.Domains[0].Definition.Name)
}

func TestScaffoldValidation(t *testing.T) {
	cmd := scaffoldCmd{Code: "nodots", ManifestPath: filepath.Join(t.TempDir(), "x.yaml")}
	require.Error(t, cmd.Run(&Globals{stdout: &bytes.Buffer{}}))
}

func TestScaffoldSchemaFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"type":"object","properties":{"region":{"type":"string"}}}`), 0o600))

	cmd := scaffoldCmd{Code: "acme.regions", SchemaPath: schemaPath}
	def, err := cmd.definition()
	require.NoError(t, err)
	props := def.Schema["properties"].(map[string]any)
	assert.Contains(t, props, "region")

	cmd.SchemaPath = filepath.Join(dir, "missing.json")
	_, err = cmd.definition()
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := validateCmd{Manifests: []string{"../../docs/manifests/dependency-risk.yaml"}}
	require.NoError(t, cmd.Run(&Globals{stdout: &out}))
	assert.Contains(t, out.String(), "1 domain(s)")

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("version: \"9\"\ndomains: []\n"), 0o600))
	cmd.Manifests = []string{broken}
	assert.Error(t, cmd.Run(&Globals{stdout: &bytes.Buffer{}}))
}

func TestViewCommandDemo(t *testing.T) {
	var out bytes.Buffer
	g := &Globals{Demo: true, LogLevel: "error", Output: "json", stdout: &out}
	cmd := viewCmd{queryFlags{Domain: core.DomainBugPrediction, User: "cli"}}
	require.NoError(t, cmd.Run(context.Background(), g))

	var vm map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &vm))
	assert.Equal(t, core.DomainBugPrediction, vm["domain"])
	assert.NotEmpty(t, vm["rows"])
}

func TestDomainsCommandYAML(t *testing.T) {
	var out bytes.Buffer
	g := &Globals{Demo: true, LogLevel: "error", Output: "yaml", stdout: &out}
	require.NoError(t, (&domainsCmd{}).Run(context.Background(), g))

	var domains []map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &domains))
	assert.Len(t, domains, len(core.DefaultDomainDefinitions()))
}

func TestExportCommandDemo(t *testing.T) {
	var out bytes.Buffer
	g := &Globals{Demo: true, LogLevel: "error", stdout: &out}
	cmd := exportCmd{queryFlags: queryFlags{Domain: core.DomainBugPrediction, User: "cli"}, Format: "csv"}
	require.NoError(t, cmd.Run(context.Background(), g))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Greater(t, len(lines), 1)

	cmd.Format = "pdf"
	assert.Error(t, cmd.Run(context.Background(), g))
}

func TestWatchRequiresStream(t *testing.T) {
	g := &Globals{Demo: true, LogLevel: "error", stdout: &bytes.Buffer{}}
	cmd := watchCmd{queryFlags: queryFlags{Domain: core.DomainLogPatterns}}
	err := cmd.Run(context.Background(), g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream_url")
}
