package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/frederic-klein/vpm/internal/version"
)

func TestParse(t *testing.T) {
	data := []byte(`{
		"name": "webapp",
		"version": "1.2.3",
		"url": "https://example.org/webapp",
		"dependencies": {
			"router": ">=0.5.0",
			"orm": ">=1.0.0 <2.0.0",
			"bleeding": "~master"
		},
		"dflags": ["-w", "-debug"]
	}`)

	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Name != "webapp" {
		t.Errorf("Name = %q, want webapp", m.Name)
	}
	if m.Version != (version.Version{Major: 1, Minor: 2, Patch: 3}) {
		t.Errorf("Version = %s, want 1.2.3", m.Version)
	}
	if m.URL != "https://example.org/webapp" {
		t.Errorf("URL = %q", m.URL)
	}
	if len(m.Dependencies) != 3 {
		t.Fatalf("got %d dependencies, want 3", len(m.Dependencies))
	}
	if !m.Dependencies["orm"].Matches(version.Version{Major: 1, Minor: 5, Patch: 0}) {
		t.Error("orm constraint should match 1.5.0")
	}
	if !m.Dependencies["bleeding"].Matches(version.Master) {
		t.Error("bleeding constraint should match ~master")
	}
	if len(m.BuildFlags) != 2 || m.BuildFlags[0] != "-w" {
		t.Errorf("BuildFlags = %v", m.BuildFlags)
	}
}

func TestParseDuplicateDependency(t *testing.T) {
	data := []byte(`{
		"name": "webapp",
		"version": "1.0.0",
		"dependencies": {
			"router": ">=0.5.0",
			"orm": ">=1.0.0",
			"router": ">=0.6.0"
		}
	}`)

	_, err := Parse(data)
	var dup *DuplicateDependencyError
	if !errors.As(err, &dup) {
		t.Fatalf("Parse error = %v, want DuplicateDependencyError", err)
	}
	if dup.Name != "router" {
		t.Errorf("duplicate name = %q, want router", dup.Name)
	}
}

// A dependency on the framework's own package name is skipped, not kept
// and not an error.
func TestParseSkipsOwnPackageName(t *testing.T) {
	data := []byte(`{
		"name": "webapp",
		"version": "1.0.0",
		"dependencies": {
			"vpm": ">=0.0.1",
			"router": ">=0.5.0"
		}
	}`)

	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := m.Dependencies["vpm"]; ok {
		t.Error("dependency on own package name should be skipped")
	}
	if _, ok := m.Dependencies["router"]; !ok {
		t.Error("router dependency should survive")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"not an object", `[1, 2]`},
		{"missing name", `{"version": "1.0.0"}`},
		{"bad version", `{"name": "x", "version": "1.0"}`},
		{"bad range", `{"name": "x", "version": "1.0.0", "dependencies": {"y": "!=1.0.0"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Fatal("Parse should fail")
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	rng, err := version.ParseRange(">=1.0.0 <2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	m := &Manifest{
		Name:         "webapp",
		Version:      version.Version{Major: 2, Minor: 1, Patch: 0},
		URL:          "https://example.org/webapp",
		Dependencies: map[string]version.Range{"orm": rng},
		BuildFlags:   []string{"-w"},
	}

	path := filepath.Join(t.TempDir(), FileName)
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Name != m.Name || back.Version != m.Version || back.URL != m.URL {
		t.Errorf("round trip changed identity: %+v", back)
	}
	if !back.Dependencies["orm"].Matches(version.Version{Major: 1, Minor: 5, Patch: 0}) {
		t.Error("orm constraint lost in round trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load error = %v, want not-exist", err)
	}
}

func TestDependencyNamesSorted(t *testing.T) {
	m, err := Parse([]byte(`{
		"name": "webapp",
		"version": "1.0.0",
		"dependencies": {"zeta": ">=1.0.0", "alpha": ">=1.0.0", "mid": ">=1.0.0"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	names := m.DependencyNames()
	want := []string{"alpha", "mid", "zeta"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("DependencyNames() = %v, want %v", names, want)
		}
	}
}
