package source

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/frederic-klein/vpm/internal/version"
)

// writeArchive builds a zip archive at path with the given entries.
// Entries whose name ends in "/" become directories.
func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		if name[len(name)-1] == '/' {
			if _, err := zw.Create(name); err != nil {
				t.Fatal(err)
			}
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func manifestJSON(name, vers string) string {
	return fmt.Sprintf(`{"name": %q, "version": %q}`, name, vers)
}

func newArchiveDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, vers := range []string{"1.0.0", "1.5.0", "2.0.0"} {
		writeArchive(t, filepath.Join(dir, "router-"+vers+".zip"), map[string]string{
			"router-" + vers + "/package.json":   manifestJSON("router", "0.0.0"),
			"router-" + vers + "/source/":        "",
			"router-" + vers + "/source/mod.d":   "module router;",
			"router-" + vers + "/source/extra.d": "// extra",
		})
	}
	writeArchive(t, filepath.Join(dir, "router-master.zip"), map[string]string{
		"router-master/package.json": manifestJSON("router", "0.0.0"),
	})
	writeArchive(t, filepath.Join(dir, "orm-0.9.0.zip"), map[string]string{
		"orm-0.9.0/package.json": manifestJSON("orm", "0.0.0"),
	})
	return dir
}

func rng(t *testing.T, expr string) version.Range {
	t.Helper()
	r, err := version.ParseRange(expr)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestDirPicksHighestSatisfying(t *testing.T) {
	s := NewDir(newArchiveDir(t))

	tests := []struct {
		expr string
		want string
	}{
		{">=1.0.0", "2.0.0"},
		{">=1.0.0 <2.0.0", "1.5.0"},
		{"==1.0.0", "1.0.0"},
		{"~master", "~master"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			m, err := s.Manifest("router", rng(t, tt.expr))
			if err != nil {
				t.Fatalf("Manifest: %v", err)
			}
			if m.Name != "router" {
				t.Errorf("Name = %q", m.Name)
			}
			if m.Version.String() != tt.want {
				t.Errorf("Version = %s, want %s (filename overrides archived manifest)", m.Version, tt.want)
			}
		})
	}
}

func TestDirNoSatisfyingArchive(t *testing.T) {
	s := NewDir(newArchiveDir(t))
	if _, err := s.Manifest("router", rng(t, ">=3.0.0")); err == nil {
		t.Error("no router archive satisfies >=3.0.0")
	}
	if _, err := s.Manifest("missing", rng(t, ">=0.0.0")); err == nil {
		t.Error("unknown package should fail")
	}
	if err := s.Store(filepath.Join(t.TempDir(), "out.zip"), "router", rng(t, ">=3.0.0")); err == nil {
		t.Error("Store should fail when nothing satisfies the range")
	}
}

func TestDirStoreCopiesArchive(t *testing.T) {
	dir := newArchiveDir(t)
	s := NewDir(dir)

	dest := filepath.Join(t.TempDir(), "router.zip")
	if err := s.Store(dest, "router", rng(t, ">=1.0.0 <2.0.0")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	want, err := os.ReadFile(filepath.Join(dir, "router-1.5.0.zip"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Error("stored archive differs from the source archive")
	}
}
