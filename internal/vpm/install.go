package vpm

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/frederic-klein/vpm/internal/journal"
	"github.com/frederic-klein/vpm/internal/manifest"
	"github.com/frederic-klein/vpm/internal/source"
	"github.com/frederic-klein/vpm/internal/version"
)

// Install fetches the best version of name satisfying rng and extracts it
// under the modules directory, journaling every directory and file it
// creates. The downloaded archive is removed again on every exit path.
// There is no rollback: files written before a failure stay on disk.
func (m *Manager) Install(name string, rng version.Range) error {
	destDir := filepath.Join(m.modulesDir(), name)
	if _, err := os.Stat(destDir); err == nil {
		return &AlreadyInstalledError{Package: name}
	}

	meta, err := m.src.Manifest(name, rng)
	if err != nil {
		return &source.FetchError{Package: name, Err: err}
	}
	m.logf("installing %s %s", name, meta.Version)

	tmp, err := os.CreateTemp("", "vpm-archive-*.zip")
	if err != nil {
		return fmt.Errorf("creating temporary archive: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := m.src.Store(tmpPath, name, rng); err != nil {
		return &source.FetchError{Package: name, Err: err}
	}

	j, err := m.extract(tmpPath, destDir)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", name, err)
	}

	// The archive's own manifest may carry a stale or generic version;
	// the source-reported one is authoritative.
	mfPath := filepath.Join(destDir, manifest.FileName)
	installed, err := manifest.Load(mfPath)
	switch {
	case err == nil:
		installed.Version = meta.Version
		if err := installed.Save(mfPath); err != nil {
			return fmt.Errorf("stamping version of %s: %w", name, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := meta.Save(mfPath); err != nil {
			return fmt.Errorf("writing manifest of %s: %w", name, err)
		}
		j.Add(journal.KindFile, manifest.FileName)
	default:
		return fmt.Errorf("reading extracted manifest of %s: %w", name, err)
	}

	if err := j.Save(filepath.Join(destDir, journal.FileName)); err != nil {
		return fmt.Errorf("persisting journal of %s: %w", name, err)
	}
	if err := m.state.Touch(name); err != nil {
		return err
	}
	m.logf("installed %s %s", name, meta.Version)
	return nil
}

// extract unpacks the archive at archivePath into destDir: directories
// first, then files, recording one journal entry per created path.
func (m *Manager) extract(archivePath, destDir string) (*journal.Journal, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	root := source.ArchiveRoot(zr.File)
	j := journal.New()
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}

	created := make(map[string]bool)
	for _, f := range zr.File {
		rel, ok := source.EntryPath(f.Name, root)
		if !ok || rel == "" {
			continue
		}
		dir := rel
		if !f.FileInfo().IsDir() {
			dir = path.Dir(rel)
		}
		if err := makeDirs(destDir, dir, created, j); err != nil {
			return nil, err
		}
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rel, ok := source.EntryPath(f.Name, root)
		if !ok || rel == "" {
			continue
		}
		if err := writeFile(f, filepath.Join(destDir, filepath.FromSlash(rel))); err != nil {
			return nil, err
		}
		j.Add(journal.KindFile, rel)
	}
	return j, nil
}

// makeDirs creates each missing segment of the slash-separated dir under
// destDir, journaling every segment it actually creates.
func makeDirs(destDir, dir string, created map[string]bool, j *journal.Journal) error {
	if dir == "." || dir == "" {
		return nil
	}
	parent := path.Dir(dir)
	if parent != "." && parent != dir {
		if err := makeDirs(destDir, parent, created, j); err != nil {
			return err
		}
	}
	if created[dir] {
		return nil
	}
	full := filepath.Join(destDir, filepath.FromSlash(dir))
	if err := os.Mkdir(full, 0755); err != nil {
		if os.IsExist(err) {
			created[dir] = true
			return nil
		}
		return fmt.Errorf("creating %s: %w", full, err)
	}
	created[dir] = true
	j.Add(journal.KindDirectory, dir)
	return nil
}

func writeFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return out.Close()
}

// Uninstall replays name's journal in reverse: files first, then
// directories deepest-first, refusing anything the journal does not
// account for. A missing journal means nothing may be deleted at all.
func (m *Manager) Uninstall(name string) error {
	destDir := filepath.Join(m.modulesDir(), name)
	journalPath := filepath.Join(destDir, journal.FileName)

	j, err := journal.Load(journalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingJournalError{Package: name}
		}
		return err
	}
	m.logf("uninstalling %s", name)

	for _, e := range j.Files() {
		p := filepath.Join(destDir, filepath.FromSlash(e.Path))
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				m.logf("already gone during uninstall of %s: %s", name, e.Path)
				continue
			}
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}

	for _, e := range j.DirectoriesDeepestFirst() {
		p := filepath.Join(destDir, filepath.FromSlash(e.Path))
		info, err := os.Lstat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				m.logf("already gone during uninstall of %s: %s", name, e.Path)
				continue
			}
			return fmt.Errorf("inspecting %s: %w", p, err)
		}
		if !info.IsDir() {
			return &AlienFilesError{Package: name, Path: e.Path}
		}
		contents, err := os.ReadDir(p)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", p, err)
		}
		if len(contents) > 0 {
			return &AlienFilesError{Package: name, Path: e.Path}
		}
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}

	leftovers, err := os.ReadDir(destDir)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", destDir, err)
	}
	for _, e := range leftovers {
		if e.Name() != journal.FileName {
			return &AlienFilesError{Package: name, Path: "."}
		}
	}

	// The journal itself is not a journal entry. It goes last so a
	// refused uninstall stays retryable after the blocker is removed.
	if err := os.Remove(journalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing journal: %w", err)
	}
	if err := os.Remove(destDir); err != nil {
		return fmt.Errorf("removing %s: %w", destDir, err)
	}
	if err := m.state.Forget(name); err != nil {
		return err
	}
	m.logf("uninstalled %s", name)
	return nil
}
