// Package source abstracts where packages come from. The resolver and
// installer only ever see the Source interface; whether archives sit in a
// local directory or behind a registry is this package's business.
package source

import (
	"fmt"

	"github.com/frederic-klein/vpm/internal/manifest"
	"github.com/frederic-klein/vpm/internal/version"
)

// Source resolves a package name plus range constraint to metadata and to
// a downloadable archive. Implementations pick the best (highest)
// available version satisfying the range. Fetch latency and cancellation
// are the implementation's responsibility.
type Source interface {
	// Manifest returns the metadata of the best available version
	// satisfying rng.
	Manifest(name string, rng version.Range) (*manifest.Manifest, error)
	// Store writes an archive of the best available version satisfying
	// rng to destPath.
	Store(destPath, name string, rng version.Range) error
}

// FetchError wraps any failure reported by a Source during an install.
// The cause is opaque to the caller beyond unwrapping.
type FetchError struct {
	Package string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching package %s: %v", e.Package, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
