package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// DomainManifestDocument models a YAML/JSON manifest describing insight domains.
type DomainManifestDocument struct {
	Version  string           `json:"version" yaml:"version"`
	Name     string           `json:"name,omitempty" yaml:"name,omitempty"`
	Package  string           `json:"package,omitempty" yaml:"package,omitempty"`
	Homepage string           `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Domains  []ManifestDomain `json:"domains" yaml:"domains"`
	Source   string           `json:"-" yaml:"-"`
}

// ManifestDomain describes a single domain entry within a manifest.
type ManifestDomain struct {
	Definition  DomainDefinition `json:"definition" yaml:"definition"`
	Source      ManifestSource   `json:"source,omitempty" yaml:"source,omitempty"`
	Maintainers []string         `json:"maintainers,omitempty" yaml:"maintainers,omitempty"`
	Tags        []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ManifestSource captures discovery metadata about the backend serving a domain.
type ManifestSource struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Engine   string `json:"engine,omitempty" yaml:"engine,omitempty"`
	DocsURL  string `json:"docs_url,omitempty" yaml:"docs_url,omitempty"`
	Channel  string `json:"channel,omitempty" yaml:"channel,omitempty"`
	Contract string `json:"contract,omitempty" yaml:"contract,omitempty"`
}

// LoadManifestFile reads a manifest from disk, registers it against the registry, and returns the document.
func (r *Registry) LoadManifestFile(path string) (*DomainManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers definitions and source metadata from a decoded manifest.
func (r *Registry) LoadManifestDocument(doc *DomainManifestDocument) error {
	if doc == nil {
		return errors.New("dashboard: manifest document is nil")
	}
	for _, domain := range doc.Domains {
		if err := r.RegisterDomain(domain.Definition); err != nil {
			return fmt.Errorf("dashboard: register domain %s from %s: %w", domain.Definition.Code, doc.Source, err)
		}
		r.recordManifestMetadata(domain.Definition.Code, domain.Source)
	}
	return nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*DomainManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*DomainManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc DomainManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeManifest writes doc as YAML.
func EncodeManifest(w io.Writer, doc *DomainManifestDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("dashboard: encode manifest: %w", err)
	}
	return enc.Close()
}

// Validate ensures the manifest satisfies required fields.
func (doc *DomainManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Domains))
	for idx, domain := range doc.Domains {
		if domain.Definition.Code == "" {
			return fmt.Errorf("dashboard: manifest domain at index %d is missing definition.code", idx)
		}
		if domain.Definition.Name == "" {
			return fmt.Errorf("dashboard: manifest domain %s missing definition.name", domain.Definition.Code)
		}
		if _, exists := seen[domain.Definition.Code]; exists {
			return fmt.Errorf("dashboard: manifest duplicates domain code %s", domain.Definition.Code)
		}
		seen[domain.Definition.Code] = struct{}{}
		if err := validateDefinition(domain.Definition); err != nil {
			return err
		}
	}
	return nil
}

func (doc *DomainManifestDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
}

func (s ManifestSource) isZero() bool {
	return s == ManifestSource{}
}
