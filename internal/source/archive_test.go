package source

import (
	"archive/zip"
	"path/filepath"
	"testing"
)

func openArchive(t *testing.T, files map[string]string) []*zip.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.zip")
	writeArchive(t, path, files)
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { zr.Close() })
	return zr.File
}

func TestArchiveRootMarkerFile(t *testing.T) {
	files := openArchive(t, map[string]string{
		"router-1.0.0/package.json":        manifestJSON("router", "1.0.0"),
		"router-1.0.0/source/mod.d":        "x",
		"router-1.0.0/deps/sub/package.json": manifestJSON("sub", "1.0.0"),
	})
	if got := ArchiveRoot(files); got != "router-1.0.0" {
		t.Errorf("ArchiveRoot = %q, want router-1.0.0 (shallowest marker wins)", got)
	}
}

func TestArchiveRootTopLevelMarker(t *testing.T) {
	files := openArchive(t, map[string]string{
		"package.json": manifestJSON("router", "1.0.0"),
		"source/mod.d": "x",
	})
	if got := ArchiveRoot(files); got != "" {
		t.Errorf("ArchiveRoot = %q, want empty", got)
	}
}

// Without a marker file the common leading directory chain is the best
// guess for the package root.
func TestArchiveRootCommonPrefixFallback(t *testing.T) {
	files := openArchive(t, map[string]string{
		"wrap/inner/source/mod.d": "x",
		"wrap/inner/readme.md":    "y",
	})
	if got := ArchiveRoot(files); got != "wrap/inner" {
		t.Errorf("ArchiveRoot = %q, want wrap/inner", got)
	}

	split := openArchive(t, map[string]string{
		"one/a.d": "x",
		"two/b.d": "y",
	})
	if got := ArchiveRoot(split); got != "" {
		t.Errorf("ArchiveRoot = %q, want empty for disjoint tops", got)
	}
}

func TestEntryPath(t *testing.T) {
	tests := []struct {
		name, root string
		want       string
		ok         bool
	}{
		{"router-1.0.0/source/mod.d", "router-1.0.0", "source/mod.d", true},
		{"router-1.0.0/package.json", "router-1.0.0", "package.json", true},
		{"router-1.0.0", "router-1.0.0", "", false},
		{"other/file.d", "router-1.0.0", "", false},
		{"source/mod.d", "", "source/mod.d", true},
		{"../escape.d", "", "", false},
	}
	for _, tt := range tests {
		rel, ok := EntryPath(tt.name, tt.root)
		if ok != tt.ok || rel != tt.want {
			t.Errorf("EntryPath(%q, %q) = (%q, %v), want (%q, %v)",
				tt.name, tt.root, rel, ok, tt.want, tt.ok)
		}
	}
}

func TestManifestFromArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.zip")
	writeArchive(t, path, map[string]string{
		"router-1.0.0/package.json": manifestJSON("router", "1.0.0"),
		"router-1.0.0/source/mod.d": "x",
	})
	m, err := ManifestFromArchive(path)
	if err != nil {
		t.Fatalf("ManifestFromArchive: %v", err)
	}
	if m.Name != "router" {
		t.Errorf("Name = %q", m.Name)
	}

	bare := filepath.Join(t.TempDir(), "bare.zip")
	writeArchive(t, bare, map[string]string{"just/a.d": "x"})
	if _, err := ManifestFromArchive(bare); err == nil {
		t.Error("archive without a manifest should fail")
	}
}
