// Package journal records the filesystem entries created while installing
// one package. The log is persisted next to the installed files and
// replayed in reverse to uninstall exactly what was written, nothing more.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// FileName is the journal's name inside an installed package directory.
const FileName = "journal.json"

// Kind tags one journal entry.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Entry is one recorded filesystem mutation. Path is relative to the
// installed package directory and slash-separated.
type Entry struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// Journal is the ordered log of entries for one package install.
type Journal struct {
	entries []Entry
}

// New returns an empty journal.
func New() *Journal { return &Journal{} }

// Add appends one entry.
func (j *Journal) Add(kind Kind, path string) {
	j.entries = append(j.entries, Entry{Kind: kind, Path: path})
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int { return len(j.entries) }

// Files returns the file entries in recorded order.
func (j *Journal) Files() []Entry {
	return j.byKind(KindFile)
}

// DirectoriesDeepestFirst returns the directory entries ordered by
// descending path depth, so each directory is removed after everything
// inside it.
func (j *Journal) DirectoriesDeepestFirst() []Entry {
	dirs := j.byKind(KindDirectory)
	sort.SliceStable(dirs, func(a, b int) bool {
		return strings.Count(dirs[a].Path, "/") > strings.Count(dirs[b].Path, "/")
	})
	return dirs
}

func (j *Journal) byKind(kind Kind) []Entry {
	var out []Entry
	for _, e := range j.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Save persists the journal as an ordered JSON array at path.
func (j *Journal) Save(path string) error {
	data, err := json.MarshalIndent(j.entries, "", "\t")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	return nil
}

// Load reads a journal back verbatim. A missing file surfaces as the
// underlying not-exist error for the caller to classify.
func Load(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing journal %s: %w", path, err)
	}
	return &Journal{entries: entries}, nil
}
