// Package manifest reads and writes the package.json document describing
// one package: its identity, declared dependencies, and build flags.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/frederic-klein/vpm/internal/version"
)

// FileName marks the top level of every package, on disk and inside
// archives.
const FileName = "package.json"

// ownPackageName is the framework's own package name. A dependency on it
// is silently skipped when found inside a dependency map, so manifests
// written for future framework versions that self-declare keep parsing.
const ownPackageName = "vpm"

// ErrInvalidManifest is wrapped for structurally malformed documents.
var ErrInvalidManifest = errors.New("invalid package manifest")

// DuplicateDependencyError reports a dependency name declared more than
// once in one manifest.
type DuplicateDependencyError struct {
	Name string
}

func (e *DuplicateDependencyError) Error() string {
	return fmt.Sprintf("dependency %q declared more than once", e.Name)
}

// Manifest is a package's parsed metadata. Values are created by parsing
// and not mutated afterwards, except for the version stamp the installer
// applies before persisting a copy.
type Manifest struct {
	Name         string
	Version      version.Version
	URL          string
	Dependencies map[string]version.Range
	BuildFlags   []string
}

// document is the raw wire shape of package.json.
type document struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	URL          string            `json:"url,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	DFlags       []string          `json:"dflags,omitempty"`
}

// Parse reads a manifest document. Any dependency name repeated in the
// raw document is a DuplicateDependencyError; encoding/json would silently
// keep the last value, so duplicates are detected on the token stream.
func Parse(data []byte) (*Manifest, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("%w: missing package name", ErrInvalidManifest)
	}
	if err := checkDuplicateDependencies(data); err != nil {
		return nil, err
	}

	v, err := version.Parse(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", doc.Name, err)
	}

	m := &Manifest{
		Name:         doc.Name,
		Version:      v,
		URL:          doc.URL,
		Dependencies: make(map[string]version.Range, len(doc.Dependencies)),
		BuildFlags:   doc.DFlags,
	}
	for name, expr := range doc.Dependencies {
		if name == ownPackageName {
			continue
		}
		rng, err := version.ParseRange(expr)
		if err != nil {
			return nil, fmt.Errorf("package %s, dependency %s: %w", doc.Name, name, err)
		}
		m.Dependencies[name] = rng
	}
	return m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Save writes the manifest back in its wire form.
func (m *Manifest) Save(path string) error {
	doc := document{
		Name:    m.Name,
		Version: m.Version.String(),
		URL:     m.URL,
		DFlags:  m.BuildFlags,
	}
	if len(m.Dependencies) > 0 {
		doc.Dependencies = make(map[string]string, len(m.Dependencies))
		for name, rng := range m.Dependencies {
			doc.Dependencies[name] = rng.String()
		}
	}
	data, err := json.MarshalIndent(&doc, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// DependencyNames returns the declared dependency names in sorted order,
// giving deterministic traversal and reporting.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkDuplicateDependencies walks the raw top-level "dependencies"
// object and reports the first repeated key.
func checkDuplicateDependencies(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: not an object", ErrInvalidManifest)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
		key, _ := keyTok.(string)
		if key != "dependencies" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return fmt.Errorf("%w: dependencies is not an object", ErrInvalidManifest)
		}
		seen := make(map[string]bool)
		for dec.More() {
			nameTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
			}
			name, _ := nameTok.(string)
			if seen[name] {
				return &DuplicateDependencyError{Name: name}
			}
			seen[name] = true
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
			}
		}
		return nil
	}
	return nil
}
