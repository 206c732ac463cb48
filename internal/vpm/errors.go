package vpm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/frederic-klein/vpm/internal/graph"
)

// AlreadyInstalledError reports an install target whose directory already
// exists; an uninstall has to happen first.
type AlreadyInstalledError struct {
	Package string
}

func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("package %s is already installed", e.Package)
}

// MissingJournalError reports an uninstall target without a journal. The
// package directory is left untouched: without the journal there is no
// record of what may be deleted.
type MissingJournalError struct {
	Package string
}

func (e *MissingJournalError) Error() string {
	return fmt.Sprintf("package %s has no install journal", e.Package)
}

// AlienFilesError reports content inside an installed package directory
// that the journal does not cover. Uninstall refuses to force-delete it.
type AlienFilesError struct {
	Package string
	Path    string
}

func (e *AlienFilesError) Error() string {
	return fmt.Sprintf("package %s: %s contains files not created by the installer", e.Package, e.Path)
}

// UnresolvableDependencyError reports a resolution run that stagnated
// with requirements still missing: a fetch round produced the same
// missing set as the round before it.
type UnresolvableDependencyError struct {
	Missing map[string]*graph.Requested
}

func (e *UnresolvableDependencyError) Error() string {
	return "unresolvable dependencies: " + describeRequirements(e.Missing)
}

// ConflictError reports requirement sets that no single version can
// satisfy.
type ConflictError struct {
	Conflicts map[string]*graph.Requested
}

func (e *ConflictError) Error() string {
	return "conflicting dependencies: " + describeRequirements(e.Conflicts)
}

func describeRequirements(reqs map[string]*graph.Requested) string {
	names := make([]string, 0, len(reqs))
	for name := range reqs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		req := reqs[name]
		issuers := make([]string, 0, len(req.Issuers))
		for issuer := range req.Issuers {
			issuers = append(issuers, issuer)
		}
		sort.Strings(issuers)
		parts = append(parts, fmt.Sprintf("%s %s (wanted by %s)", name, req.Range, strings.Join(issuers, ", ")))
	}
	return strings.Join(parts, "; ")
}
