// Package graph holds the dependency graph the resolver iterates on: one
// immutable root package plus the candidate metadata known so far, queried
// for the needed, missing, and conflicted requirement sets.
package graph

import (
	"fmt"
	"sort"

	"github.com/frederic-klein/vpm/internal/manifest"
	"github.com/frederic-klein/vpm/internal/version"
)

// Requested is the merged constraint for one package name, together with
// the sub-constraint each issuing package contributed. The issuer map is
// diagnostic: it tells the user who wanted what when a requirement cannot
// be met.
type Requested struct {
	Range   version.Range
	Issuers map[string]version.Range
}

// Graph is a root package plus the candidate metadata currently known for
// its transitive dependencies. At most one manifest per name; the root is
// always present and never replaced or removed.
type Graph struct {
	root     *manifest.Manifest
	packages map[string]*manifest.Manifest
}

// New builds a graph seeded with root.
func New(root *manifest.Manifest) *Graph {
	return &Graph{
		root:     root,
		packages: map[string]*manifest.Manifest{root.Name: root},
	}
}

// Root returns the root package.
func (g *Graph) Root() *manifest.Manifest { return g.root }

// Package returns the candidate for name, or nil.
func (g *Graph) Package(name string) *manifest.Manifest { return g.packages[name] }

// Insert adds or replaces the candidate for p.Name. Replacing the root is
// forbidden.
func (g *Graph) Insert(p *manifest.Manifest) error {
	if p.Name == g.root.Name {
		return fmt.Errorf("cannot replace root package %q", p.Name)
	}
	g.packages[p.Name] = p
	return nil
}

// Remove drops the candidate for name. Removing the root is a no-op.
func (g *Graph) Remove(name string) {
	if name == g.root.Name {
		return
	}
	delete(g.packages, name)
}

// eachDependency visits every declared dependency edge of every package in
// the graph, root included, in deterministic order. pkg is the candidate
// currently known for the edge's target, or nil.
func (g *Graph) eachDependency(visit func(pkg *manifest.Manifest, name string, dep version.Range, issuer *manifest.Manifest)) {
	issuers := make([]string, 0, len(g.packages))
	for name := range g.packages {
		issuers = append(issuers, name)
	}
	sort.Strings(issuers)
	for _, in := range issuers {
		issuer := g.packages[in]
		for _, dep := range issuer.DependencyNames() {
			visit(g.packages[dep], dep, issuer.Dependencies[dep], issuer)
		}
	}
}

// Missing returns the merged requirement for every dependency edge that is
// not currently satisfied: the target has no graph entry, or its version
// fails the edge's constraint. Edges whose declared range is already
// invalid are skipped here, since no candidate could ever satisfy them;
// Conflicted reports them instead.
func (g *Graph) Missing() map[string]*Requested {
	missing := make(map[string]*Requested)
	g.eachDependency(func(pkg *manifest.Manifest, name string, dep version.Range, issuer *manifest.Manifest) {
		if !dep.Valid() {
			return
		}
		if pkg != nil && dep.Matches(pkg.Version) {
			return
		}
		addRequirement(missing, name, dep, issuer.Name)
	})
	return missing
}

// Needed returns the merged requirement for every dependency name,
// regardless of satisfaction. It is a pure query: calling it repeatedly
// without mutating the graph yields identical results.
func (g *Graph) Needed() map[string]*Requested {
	needed := make(map[string]*Requested)
	g.eachDependency(func(pkg *manifest.Manifest, name string, dep version.Range, issuer *manifest.Manifest) {
		addRequirement(needed, name, dep, issuer.Name)
	})
	return needed
}

// Conflicted returns the names whose merged requirement is invalid, i.e.
// names for which no version can satisfy all issuers at once.
func (g *Graph) Conflicted() map[string]*Requested {
	conflicted := make(map[string]*Requested)
	for name, req := range g.Needed() {
		if !req.Range.Valid() {
			conflicted[name] = req
		}
	}
	return conflicted
}

// ClearUnused drops every non-root candidate that is not referenced by a
// satisfied requirement: packages fetched during resolution that later
// rounds stopped needing.
func (g *Graph) ClearUnused() {
	needed := g.Needed()
	for name, pkg := range g.packages {
		if name == g.root.Name {
			continue
		}
		req := needed[name]
		if req == nil || !req.Range.Matches(pkg.Version) {
			delete(g.packages, name)
		}
	}
}

func addRequirement(reqs map[string]*Requested, name string, dep version.Range, issuer string) {
	req := reqs[name]
	if req == nil {
		req = &Requested{Range: dep, Issuers: make(map[string]version.Range)}
		reqs[name] = req
	} else {
		req.Range = req.Range.Merge(dep)
	}
	req.Issuers[issuer] = dep
}
