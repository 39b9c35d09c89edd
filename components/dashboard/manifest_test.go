package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insights/pkg/records"
	"github.com/goliatone/go-insights/pkg/viewstate"
)

func TestDecodeManifest(t *testing.T) {
	const payload = `
version: "1"
name: community-pack
domains:
  - definition:
      code: community.flaky_tests
      name: Flaky Tests
      description: Tests that fail intermittently on the main branch.
      category: quality
      slices:
        - name: tests
          kind: records
          endpoint: /api/flaky/tests
          shape:
            key: tests
            defaults:
              flake_rate: 0
      default_sort:
        field: flake_rate
        direction: desc
    source:
      name: CI Analyzer
      summary: Mines CI runs for flaky tests.
      engine: ci-analyzer
      docs_url: https://example.com/insights/flaky
`
	doc, err := DecodeManifest(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, doc.Domains, 1)

	domain := doc.Domains[0]
	assert.Equal(t, "community.flaky_tests", domain.Definition.Code)
	assert.Equal(t, "Flaky Tests", domain.Definition.Name)
	assert.Equal(t, "CI Analyzer", domain.Source.Name)
	assert.Equal(t, "ci-analyzer", domain.Source.Engine)
	require.Len(t, domain.Definition.Slices, 1)
	assert.Equal(t, viewstate.KindRecords, domain.Definition.Slices[0].Kind)
	assert.Equal(t, "tests", domain.Definition.Slices[0].Shape.Key)
	assert.Equal(t, records.SortState{Field: "flake_rate", Direction: records.Desc}, domain.Definition.DefaultSort)
}

func TestDecodeManifestRejectsUnknownFields(t *testing.T) {
	const payload = `
version: "1"
widgets:
  - definition:
      code: legacy.widget
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widgets")
}

func TestDecodeManifestRejectsEmptyAndUnsupported(t *testing.T) {
	_, err := DecodeManifest(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest is empty")

	_, err = DecodeManifest(strings.NewReader("version: \"2\"\ndomains: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest version")
}

func TestRegistryLoadManifestDocument(t *testing.T) {
	doc := &DomainManifestDocument{
		Version: manifestVersionV1,
		Domains: []ManifestDomain{
			{
				Definition: DomainDefinition{
					Code:   "acme.deploy_frequency",
					Name:   "Deploy Frequency",
					Slices: []SliceDefinition{{Name: "deploys", Endpoint: "/api/deploys"}},
				},
				Source: ManifestSource{
					Name:    "Deploy Tracker",
					Summary: "Counts production deploys",
					Engine:  "acme-deploys",
				},
			},
		},
	}
	reg := NewRegistry()

	require.NoError(t, reg.LoadManifestDocument(doc))

	def, ok := reg.Domain("acme.deploy_frequency")
	require.True(t, ok)
	assert.Equal(t, "Deploy Frequency", def.Name)
	assert.Equal(t, "deploys", def.PrimarySlice())

	meta, ok := reg.ManifestMetadata("acme.deploy_frequency")
	require.True(t, ok)
	assert.Equal(t, "Deploy Tracker", meta.Name)

	_, ok = reg.ManifestMetadata(DomainCodeQuality)
	assert.False(t, ok, "built-in domains carry no manifest metadata")
}

func TestManifestDuplicateCodes(t *testing.T) {
	const payload = `
domains:
  - definition:
      code: dup.domain
      name: First
      slices: [{name: a, endpoint: /a}]
  - definition:
      code: dup.domain
      name: Second
      slices: [{name: a, endpoint: /a}]
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicates domain code")
}

func TestManifestRejectsInvalidDefinition(t *testing.T) {
	const payload = `
domains:
  - definition:
      code: broken.domain
      name: Broken
      slices: [{name: a, kind: matrix, endpoint: /a}]
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "matrix"`)
}

func TestEncodeManifestRoundTrip(t *testing.T) {
	doc := &DomainManifestDocument{
		Version: ManifestVersion,
		Name:    "built-ins",
		Domains: []ManifestDomain{{Definition: domainDefinition(t, DomainTechDebt)}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeManifest(&buf, doc))

	decoded, err := DecodeManifest(&buf)
	require.NoError(t, err)
	require.Len(t, decoded.Domains, 1)
	def := decoded.Domains[0].Definition
	assert.Equal(t, DomainTechDebt, def.Code)
	assert.Equal(t, "items", def.PrimarySlice())
	assert.Len(t, def.Slices, 4)
}

func TestDocsManifestsAreValid(t *testing.T) {
	dir := filepath.Join("..", "..", "docs", "manifests")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	codes := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		reg := NewRegistry()
		doc, err := reg.LoadManifestFile(path)
		require.NoErrorf(t, err, "manifest %s should load", path)
		for _, domain := range doc.Domains {
			if prev, exists := codes[domain.Definition.Code]; exists {
				t.Fatalf("domain code %s defined in both %s and %s", domain.Definition.Code, prev, path)
			}
			if _, builtin := reg.Domain(domain.Definition.Code); !builtin {
				t.Fatalf("domain %s from %s was not registered", domain.Definition.Code, path)
			}
			codes[domain.Definition.Code] = path
		}
	}
	assert.NotEmpty(t, codes)
}
