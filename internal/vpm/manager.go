// Package vpm orchestrates dependency resolution and journaled
// install/uninstall of packages under one package root. One Manager owns
// one root directory for the duration of a run and is not safe for
// concurrent use; external mutation of the install tree during a run is
// not defended against.
package vpm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/frederic-klein/vpm/internal/graph"
	"github.com/frederic-klein/vpm/internal/manifest"
	"github.com/frederic-klein/vpm/internal/source"
	"github.com/frederic-klein/vpm/internal/state"
	"github.com/frederic-klein/vpm/internal/version"
)

const (
	// modulesDirName holds installed packages under the root directory.
	modulesDirName = "modules"
	// stateDirName holds per-root bookkeeping (the freshness database).
	stateDirName = ".vpm"

	// DefaultCheckInterval is how long an installed package's metadata is
	// trusted before the source is asked again.
	DefaultCheckInterval = 24 * time.Hour

	// maxResolveRounds caps the fixed-point iteration. The stagnation
	// check catches a repeated round; the cap additionally stops a
	// source that keeps flip-flopping between answers.
	maxResolveRounds = 1000
)

// Options configure one Manager.
type Options struct {
	// Annotate plans but never mutates.
	Annotate bool
	// ForceReinstall reinstalls packages that already satisfy their
	// requirement.
	ForceReinstall bool
	// CheckInterval overrides DefaultCheckInterval.
	CheckInterval time.Duration
	// Verbose enables progress logging.
	Verbose bool
}

// Manager resolves and applies the dependency actions of one package root.
type Manager struct {
	rootDir string
	root    *manifest.Manifest
	src     source.Source
	state   *state.Store
	opts    Options
	logf    func(string, ...interface{})
}

// New loads the root package at rootDir and prepares a manager using src
// for metadata and archives. A nil src is fine for callers that only
// uninstall. Callers own Close.
func New(rootDir string, src source.Source, opts Options) (*Manager, error) {
	root, err := manifest.Load(filepath.Join(rootDir, manifest.FileName))
	if err != nil {
		return nil, fmt.Errorf("loading root package: %w", err)
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}

	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	st, err := state.Open(filepath.Join(stateDir, "state.db"))
	if err != nil {
		return nil, err
	}

	logf := func(string, ...interface{}) {}
	if opts.Verbose {
		logf = func(format string, args ...interface{}) {
			fmt.Printf(format+"\n", args...)
		}
	}
	return &Manager{
		rootDir: rootDir,
		root:    root,
		src:     src,
		state:   st,
		opts:    opts,
		logf:    logf,
	}, nil
}

// Close releases the per-root state.
func (m *Manager) Close() error { return m.state.Close() }

// Root returns the root package.
func (m *Manager) Root() *manifest.Manifest { return m.root }

func (m *Manager) modulesDir() string { return filepath.Join(m.rootDir, modulesDirName) }

// Actions resolves the dependency graph and returns the plan: Failure
// actions when resolution stagnates, Conflict actions when requirements
// cannot coexist, otherwise the Uninstall and InstallUpdate actions that
// bring the install tree in line with the resolved graph. All Uninstall
// actions precede all InstallUpdate actions. Problems are always returned
// as a complete batch, never thrown at the first one.
func (m *Manager) Actions() ([]Action, error) {
	return m.actions(m.opts.ForceReinstall)
}

func (m *Manager) actions(forceReinstall bool) ([]Action, error) {
	g, err := m.resolve()
	if err != nil {
		var unresolvable *UnresolvableDependencyError
		if !errors.As(err, &unresolvable) {
			return nil, err
		}
		return requirementActions(ActionFailure, unresolvable.Missing), nil
	}

	if conflicts := g.Conflicted(); len(conflicts) > 0 {
		return requirementActions(ActionConflict, conflicts), nil
	}

	installed, err := m.installedPackages()
	if err != nil {
		return nil, err
	}
	needed := g.Needed()

	var uninstalls, installs []Action
	for _, name := range sortedNames(needed) {
		if name == m.root.Name {
			continue
		}
		req := needed[name]
		inst := installed[name]
		switch {
		case inst == nil:
			installs = append(installs, Action{ActionInstallUpdate, name, req.Range, req.Issuers})
		case !req.Range.Matches(inst.Version) && !inst.Version.IsMaster():
			// An installed master checkout always counts as "latest".
			installs = append(installs, Action{ActionInstallUpdate, name, req.Range, req.Issuers})
		case forceReinstall:
			uninstalls = append(uninstalls, Action{ActionUninstall, name, version.Exact(inst.Version), req.Issuers})
			installs = append(installs, Action{ActionInstallUpdate, name, req.Range, req.Issuers})
		}
	}
	for _, name := range sortedNames(installed) {
		if _, ok := needed[name]; ok {
			continue
		}
		uninstalls = append(uninstalls, Action{
			Kind:    ActionUninstall,
			Package: name,
			Range:   version.Exact(installed[name].Version),
		})
	}
	return append(uninstalls, installs...), nil
}

// Update executes a plan: all Uninstall actions, then all InstallUpdate
// actions, then re-resolves to confirm nothing remains. A plan containing
// Conflict or Failure actions, or annotate mode, performs no mutation.
func (m *Manager) Update(actions []Action) error {
	failures := make(map[string]*graph.Requested)
	conflicts := make(map[string]*graph.Requested)
	for _, a := range actions {
		switch a.Kind {
		case ActionFailure:
			failures[a.Package] = &graph.Requested{Range: a.Range, Issuers: a.Issuers}
		case ActionConflict:
			conflicts[a.Package] = &graph.Requested{Range: a.Range, Issuers: a.Issuers}
		}
	}
	if len(failures) > 0 {
		return &UnresolvableDependencyError{Missing: failures}
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	if m.opts.Annotate {
		for _, a := range actions {
			m.logf("would %s", a)
		}
		return nil
	}

	for _, a := range actions {
		if a.Kind != ActionUninstall {
			continue
		}
		if err := m.Uninstall(a.Package); err != nil {
			return err
		}
	}
	for _, a := range actions {
		if a.Kind != ActionInstallUpdate {
			continue
		}
		if err := m.Install(a.Package, a.Range); err != nil {
			return err
		}
	}

	// The remainder check never reapplies the force flag: a completed
	// forced reinstall would otherwise regenerate its own plan forever.
	remaining, err := m.actions(false)
	if err != nil {
		return fmt.Errorf("re-resolving after update: %w", err)
	}
	if len(remaining) > 0 {
		// Either an install step misbehaved or the tree changed under us.
		return fmt.Errorf("%d actions remain after update: %s", len(remaining), describeActions(remaining))
	}
	return nil
}

// resolve drives the graph to a fixed point: fetch metadata for every
// missing requirement, insert it, repeat until nothing is missing. A
// round that reproduces the previous round's missing set means no
// progress is possible and resolution has stagnated.
func (m *Manager) resolve() (*graph.Graph, error) {
	g := graph.New(m.root)
	installed, err := m.installedPackages()
	if err != nil {
		return nil, err
	}

	prevSig := ""
	for round := 0; ; round++ {
		missing := g.Missing()
		if len(missing) == 0 {
			break
		}
		sig := missingSignature(missing)
		if sig == prevSig || round >= maxResolveRounds {
			return nil, &UnresolvableDependencyError{Missing: missing}
		}
		prevSig = sig

		for _, name := range sortedNames(missing) {
			req := missing[name]
			p := m.localCopy(installed, name, req.Range)
			if p == nil {
				fetched, err := m.src.Manifest(name, req.Range)
				if err != nil {
					m.logf("no metadata for %s %s: %v", name, req.Range, err)
					continue
				}
				p = fetched
			}
			if p.Name != name {
				m.logf("source returned %s for %s, ignoring", p.Name, name)
				continue
			}
			if err := g.Insert(p); err != nil {
				m.logf("cannot use %s: %v", name, err)
			}
		}
	}
	g.ClearUnused()
	return g, nil
}

// localCopy returns the installed manifest for name when it satisfies the
// requirement and is not yet due for a freshness re-check against the
// source.
func (m *Manager) localCopy(installed map[string]*manifest.Manifest, name string, rng version.Range) *manifest.Manifest {
	inst := installed[name]
	if inst == nil || !rng.Matches(inst.Version) {
		return nil
	}
	due, err := m.state.Due(name, m.opts.CheckInterval)
	if err != nil || due {
		return nil
	}
	m.logf("using installed copy of %s (%s)", name, inst.Version)
	return inst
}

// installedPackages scans the modules directory for installed manifests,
// keyed by directory name.
func (m *Manager) installedPackages() (map[string]*manifest.Manifest, error) {
	out := make(map[string]*manifest.Manifest)
	entries, err := os.ReadDir(m.modulesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("scanning %s: %w", m.modulesDir(), err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		mf, err := manifest.Load(filepath.Join(m.modulesDir(), e.Name(), manifest.FileName))
		if err != nil {
			m.logf("skipping %s: %v", e.Name(), err)
			continue
		}
		out[e.Name()] = mf
	}
	return out, nil
}

// missingSignature identifies one round's missing set by (name, merged
// constraint), the stagnation comparison key.
func missingSignature(missing map[string]*graph.Requested) string {
	parts := make([]string, 0, len(missing))
	for _, name := range sortedNames(missing) {
		parts = append(parts, name+" "+missing[name].Range.String())
	}
	return strings.Join(parts, ";")
}

func requirementActions(kind ActionKind, reqs map[string]*graph.Requested) []Action {
	actions := make([]Action, 0, len(reqs))
	for _, name := range sortedNames(reqs) {
		req := reqs[name]
		actions = append(actions, Action{kind, name, req.Range, req.Issuers})
	}
	return actions
}

func describeActions(actions []Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.String()
	}
	return strings.Join(parts, "; ")
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
