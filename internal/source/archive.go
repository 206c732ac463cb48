package source

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/frederic-klein/vpm/internal/manifest"
)

// ArchiveRoot locates the directory prefix holding the package's top
// level inside an archive: the shallowest entry named like the package
// marker file wins. Archives without a marker fall back to the common
// leading directory chain of all entries, a best-effort heuristic for
// archives wrapped in a single top-level directory.
func ArchiveRoot(files []*zip.File) string {
	root := ""
	found := false
	depth := -1
	for _, f := range files {
		name := cleanEntryName(f.Name)
		if path.Base(name) != manifest.FileName {
			continue
		}
		d := strings.Count(name, "/")
		if !found || d < depth {
			root, depth, found = path.Dir(name), d, true
		}
	}
	if found {
		if root == "." {
			return ""
		}
		return root
	}
	return commonDir(files)
}

// commonDir returns the longest directory chain shared by every entry.
func commonDir(files []*zip.File) string {
	var common []string
	first := true
	for _, f := range files {
		name := cleanEntryName(f.Name)
		dir := path.Dir(name)
		if f.FileInfo().IsDir() {
			dir = name
		}
		var parts []string
		if dir != "." && dir != "" {
			parts = strings.Split(dir, "/")
		}
		if first {
			common, first = parts, false
			continue
		}
		n := len(common)
		if len(parts) < n {
			n = len(parts)
		}
		i := 0
		for i < n && common[i] == parts[i] {
			i++
		}
		common = common[:i]
	}
	return strings.Join(common, "/")
}

func cleanEntryName(name string) string {
	return strings.TrimSuffix(path.Clean(strings.TrimPrefix(name, "/")), "/")
}

// EntryPath maps an archive entry onto its path relative to the detected
// root. ok is false for entries outside the root or escaping it.
func EntryPath(name, root string) (rel string, ok bool) {
	n := cleanEntryName(name)
	if n == "" || n == "." || strings.HasPrefix(n, "../") || n == ".." {
		return "", false
	}
	if root == "" {
		return n, true
	}
	if n == root {
		return "", false
	}
	if !strings.HasPrefix(n, root+"/") {
		return "", false
	}
	return n[len(root)+1:], true
}

// ManifestFromArchive reads the package manifest out of a zip archive.
func ManifestFromArchive(archivePath string) (*manifest.Manifest, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer zr.Close()

	root := ArchiveRoot(zr.File)
	want := manifest.FileName
	if root != "" {
		want = root + "/" + manifest.FileName
	}
	for _, f := range zr.File {
		if cleanEntryName(f.Name) != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("reading %s from archive: %w", want, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s from archive: %w", want, err)
		}
		return manifest.Parse(data)
	}
	return nil, fmt.Errorf("archive %s contains no %s", archivePath, manifest.FileName)
}
