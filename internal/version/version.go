// Package version implements the version algebra used by the resolver:
// [major, minor, patch] version triples and two-sided range constraints
// over them, with intersection ("merge") as the core operation.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MasterString is the literal accepted for the master/head tag.
const MasterString = "~master"

// masterComponent marks all three components of the master tag. It never
// appears in an ordinary parsed version, whose components are non-negative.
const masterComponent = -1

// ErrInvalidVersion is wrapped by Parse for malformed input.
var ErrInvalidVersion = errors.New("invalid version format")

// Version is an ordered [major, minor, patch] triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

var (
	// Release is the lowest ordinary version, used as the default lower bound.
	Release = Version{0, 0, 0}
	// Head is the highest ordinary version, used as the default upper bound.
	Head = Version{9999, 9999, 9999}
	// Master is the branch-head tag. It is equal only to itself and
	// incomparable to ordinary triples beyond that equality check.
	Master = Version{masterComponent, masterComponent, masterComponent}
)

// Parse reads a version from its textual form: "~master" or exactly three
// dot-separated non-negative integers.
func Parse(s string) (Version, error) {
	if s == MasterString {
		return Master, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var n [3]int
	for i, p := range parts {
		u, err := strconv.ParseUint(p, 10, 31)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		n[i] = int(u)
	}
	return Version{n[0], n[1], n[2]}, nil
}

// IsMaster reports whether v is the master tag.
func (v Version) IsMaster() bool { return v == Master }

// Compare orders versions lexicographically by component. Ordinary triples
// form a strict total order. Comparing Master against an ordinary triple is
// permitted but never reports equality; the resolver only relies on the
// equality outcome in that case.
func (v Version) Compare(o Version) int {
	if d := cmp(v.Major, o.Major); d != 0 {
		return d
	}
	if d := cmp(v.Minor, o.Minor); d != 0 {
		return d
	}
	return cmp(v.Patch, o.Patch)
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (v Version) String() string {
	if v.IsMaster() {
		return MasterString
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
