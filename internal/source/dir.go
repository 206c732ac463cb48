package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/frederic-klein/vpm/internal/manifest"
	"github.com/frederic-klein/vpm/internal/version"
)

// archiveNameRe matches "<name>-<x.y.z>.zip" and "<name>-master.zip".
var archiveNameRe = regexp.MustCompile(`^(.+)-(\d+\.\d+\.\d+|master)\.zip$`)

// Dir serves packages from a flat directory of pre-built archives. The
// version is embedded in the archive filename; the highest one satisfying
// the requested range wins, with no further tie-break semantics.
type Dir struct {
	dir string
}

// NewDir returns a source reading archives from dir.
func NewDir(dir string) *Dir {
	return &Dir{dir: dir}
}

// Manifest reads the package manifest out of the best matching archive.
// The filename-embedded version overrides whatever the archived manifest
// claims, since archives often carry a stale or generic version field.
func (s *Dir) Manifest(name string, rng version.Range) (*manifest.Manifest, error) {
	path, v, err := s.bestArchive(name, rng)
	if err != nil {
		return nil, err
	}
	m, err := ManifestFromArchive(path)
	if err != nil {
		return nil, err
	}
	m.Version = v
	return m, nil
}

// Store copies the best matching archive to destPath.
func (s *Dir) Store(destPath, name string, rng version.Range) error {
	path, _, err := s.bestArchive(name, rng)
	if err != nil {
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer in.Close()
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying archive: %w", err)
	}
	return out.Close()
}

// bestArchive scans the directory for archives of name and returns the
// highest version satisfying rng.
func (s *Dir) bestArchive(name string, rng version.Range) (string, version.Version, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", version.Version{}, fmt.Errorf("scanning archive directory: %w", err)
	}

	var (
		best     version.Version
		bestPath string
		found    bool
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := archiveNameRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != name {
			continue
		}
		v := version.Master
		if m[2] != "master" {
			v, err = version.Parse(m[2])
			if err != nil {
				continue
			}
		}
		if !rng.Matches(v) {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best, bestPath, found = v, filepath.Join(s.dir, e.Name()), true
		}
	}
	if !found {
		return "", version.Version{}, fmt.Errorf("no archive of %s satisfies %s in %s", name, rng, s.dir)
	}
	return bestPath, best, nil
}
