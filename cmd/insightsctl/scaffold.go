package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ettle/strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	core "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
	"github.com/goliatone/go-insights/pkg/viewstate"
)

type scaffoldCmd struct {
	Code          string   `required:"" help:"Fully-qualified domain code (e.g. acme.dependency_risk)."`
	Name          string   `help:"Display name (defaults to the code's last segment in title case)."`
	Description   string   `help:"One-line description used in manifests."`
	Category      string   `default:"custom" help:"Domain category (quality, risk, operations, ...)."`
	ManifestPath  string   `name:"manifest" required:"" type:"path" help:"Manifest YAML file to create or update."`
	APIBase       string   `name:"api" help:"Endpoint prefix (defaults to /api/<code-segment>)."`
	RecordsKey    string   `name:"records-key" default:"items" help:"Envelope key holding the records list."`
	KeyField      []string `name:"key-field" default:"id" help:"Identity fields tried in order (repeatable)."`
	SeverityField string   `name:"severity-field" help:"Field used for category totals and priority ordering."`
	Column        []string `help:"Table columns as field names (repeatable)."`
	Stream        string   `help:"Live stream path (e.g. /ws/dependencies)."`
	Period        []string `default:"24h,7d,30d" help:"Supported periods."`
	SchemaPath    string   `name:"schema" type:"path" help:"JSON schema file for the mount configuration."`
	Tag           []string `help:"Manifest tags (repeatable)."`
	Maintainer    []string `help:"Maintainers to record in the manifest."`
	Engine        string   `help:"Backend engine serving the domain."`
	DocsURL       string   `name:"docs-url" help:"Link to backend documentation."`
	Channel       string   `help:"Distribution channel label (community, partner, internal)."`
	Overwrite     bool     `help:"Replace an existing entry with the same code."`
}

func (cmd *scaffoldCmd) Run(g *Globals) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("insightsctl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	if !cmd.Overwrite {
		for _, domain := range doc.Domains {
			if domain.Definition.Code == cmd.Code {
				return fmt.Errorf("insightsctl: manifest already defines domain %s (use --overwrite to replace)", cmd.Code)
			}
		}
	}
	def, err := cmd.definition()
	if err != nil {
		return err
	}
	entry := core.ManifestDomain{
		Definition: def,
		Source: core.ManifestSource{
			Name:    def.Name + " Engine",
			Summary: def.Description,
			Engine:  cmd.Engine,
			DocsURL: cmd.DocsURL,
			Channel: cmd.Channel,
		},
		Maintainers: cmd.Maintainer,
		Tags:        cmd.Tag,
	}

	replaced := false
	for idx := range doc.Domains {
		if doc.Domains[idx].Definition.Code == cmd.Code {
			doc.Domains[idx] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Domains = append(doc.Domains, entry)
	}
	sort.Slice(doc.Domains, func(i, j int) bool {
		return doc.Domains[i].Definition.Code < doc.Domains[j].Definition.Code
	})
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(g.out(), "✓ Added %s to %s\n", cmd.Code, manifestPath)
	return nil
}

func (cmd *scaffoldCmd) validate() error {
	if !strings.Contains(cmd.Code, ".") {
		return fmt.Errorf("insightsctl: domain code %s must contain at least one '.' segment", cmd.Code)
	}
	return nil
}

func (cmd *scaffoldCmd) definition() (core.DomainDefinition, error) {
	segment := codeSegment(cmd.Code)
	name := cmd.Name
	if name == "" {
		name = cases.Title(language.English).String(strings.ReplaceAll(segment, "_", " "))
	}
	api := strings.TrimRight(cmd.APIBase, "/")
	if api == "" {
		api = "/api/" + strcase.ToKebab(segment)
	}
	schema, err := cmd.loadSchema()
	if err != nil {
		return core.DomainDefinition{}, err
	}

	def := core.DomainDefinition{
		Code:        cmd.Code,
		Name:        name,
		Description: cmd.Description,
		Category:    cmd.Category,
		Schema:      schema,
		Slices: []core.SliceDefinition{
			{
				Name:      "items",
				Kind:      viewstate.KindRecords,
				Endpoint:  api + "/items",
				Shape:     normalize.ShapeHint{Key: cmd.RecordsKey},
				KeyFields: cmd.KeyField,
				Entities:  []string{strcase.ToSnake(segment) + "_item", "item"},
			},
			{
				Name:     "summary",
				Kind:     viewstate.KindSummary,
				Endpoint: api + "/summary",
				Shape:    normalize.ShapeHint{Key: "summary"},
				Optional: true,
			},
		},
		Primary:      "items",
		Stream:       cmd.Stream,
		SearchFields: cmd.Column,
		Columns:      export.Columns(cmd.Column...),
		Periods:      cmd.Period,
	}
	if cmd.SeverityField != "" {
		def.SeverityField = cmd.SeverityField
		def.PriorityOrder = []string{"critical", "high", "medium", "low", "info"}
		def.DefaultSort = records.SortState{Field: cmd.SeverityField, Direction: records.Asc}
		def.CategorySource = core.CategoriesFromRecords
		def.CategorySlice = "categories"
	}
	return def, nil
}

func (cmd *scaffoldCmd) loadSchema() (map[string]any, error) {
	if cmd.SchemaPath == "" {
		return core.MountSchema(cmd.Period), nil
	}
	data, err := os.ReadFile(cmd.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("insightsctl: read schema file: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("insightsctl: parse schema JSON: %w", err)
	}
	return schema, nil
}

type validateCmd struct {
	Manifests []string `arg:"" type:"existingfile" help:"Manifest files to validate."`
}

func (cmd *validateCmd) Run(g *Globals) error {
	var errs []error
	for _, path := range cmd.Manifests {
		reg := core.NewRegistry()
		doc, err := reg.LoadManifestFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(g.out(), "✓ %s: %d domain(s)\n", path, len(doc.Domains))
	}
	return errors.Join(errs...)
}

func loadOrInitManifest(path string) (*core.DomainManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			doc := &core.DomainManifestDocument{
				Version: core.ManifestVersion,
				Domains: []core.ManifestDomain{},
				Source:  path,
			}
			return doc, nil
		}
		return nil, fmt.Errorf("insightsctl: stat manifest: %w", err)
	}
	return core.ReadManifest(path)
}

func writeManifest(path string, doc *core.DomainManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("insightsctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("insightsctl: create manifest %s: %w", path, err)
	}
	if err := core.EncodeManifest(file, doc); err != nil {
		_ = file.Close()
		return fmt.Errorf("insightsctl: write manifest: %w", err)
	}
	return file.Close()
}

func codeSegment(code string) string {
	parts := strings.Split(code, ".")
	slug := strings.TrimSpace(parts[len(parts)-1])
	if slug == "" {
		slug = code
	}
	return slug
}
