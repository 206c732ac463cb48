package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is wrapped by ParseRange for malformed expressions.
var ErrInvalidRange = errors.New("invalid range expression")

// Comparator is one of the four interval bound operators.
type Comparator uint8

const (
	GTE Comparator = iota
	GT
	LTE
	LT
)

func (c Comparator) String() string {
	switch c {
	case GTE:
		return ">="
	case GT:
		return ">"
	case LTE:
		return "<="
	case LT:
		return "<"
	}
	return "?"
}

// inclusive reports whether the comparator is satisfied when a version
// equals the bound itself.
func (c Comparator) inclusive() bool { return c == GTE || c == LTE }

// eval reports whether v stands in the comparator's relation to bound.
func (c Comparator) eval(v, bound Version) bool {
	d := v.Compare(bound)
	switch c {
	case GTE:
		return d >= 0
	case GT:
		return d > 0
	case LTE:
		return d <= 0
	case LT:
		return d < 0
	}
	return false
}

// Range is a two-sided version interval. Values are produced by ParseRange
// or Merge and never mutated in place.
type Range struct {
	cmpLow  Comparator
	low     Version
	cmpHigh Comparator
	high    Version
}

// Any matches every ordinary version.
var Any = Range{GTE, Release, LTE, Head}

// empty matches no version at all; Merge returns it when a master range
// meets an ordinary one.
var empty = Range{GT, Head, LT, Release}

// Exact constrains to a single version.
func Exact(v Version) Range { return Range{GTE, v, LTE, v} }

// ParseRange reads a range expression: a single comparator+version
// ("">=1.2.3""), two space-separated bounds (">=1.0.0 <2.0.0"), "==1.2.3",
// or the literal "~master". A missing comparator defaults to ">=". "=="
// combined with a second bound is an error. If two explicit bounds arrive
// with the lower version above the upper one, the pair is swapped together
// with its comparators.
func ParseRange(expr string) (Range, error) {
	s := strings.TrimSpace(expr)
	if s == MasterString {
		return Range{GTE, Master, LTE, Master}, nil
	}
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		c, v, exact, err := parseBound(parts[0])
		if err != nil {
			return Range{}, err
		}
		if exact {
			return Exact(v), nil
		}
		switch c {
		case GTE, GT:
			return Range{c, v, LTE, Head}, nil
		default:
			return Range{GTE, Release, c, v}, nil
		}
	case 2:
		cA, vA, exA, err := parseBound(parts[0])
		if err != nil {
			return Range{}, err
		}
		cB, vB, exB, err := parseBound(parts[1])
		if err != nil {
			return Range{}, err
		}
		if exA || exB {
			return Range{}, fmt.Errorf("%w: %q: \"==\" cannot be combined with a second bound", ErrInvalidRange, expr)
		}
		if vA.Compare(vB) > 0 {
			cA, vA, cB, vB = cB, vB, cA, vA
		}
		return Range{cA, vA, cB, vB}, nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, expr)
}

// parseBound splits one comparator+version token. The comparator prefix
// runs up to the first digit; an empty prefix means ">=".
func parseBound(tok string) (Comparator, Version, bool, error) {
	i := 0
	for i < len(tok) && (tok[i] < '0' || tok[i] > '9') {
		i++
	}
	op, vs := tok[:i], tok[i:]
	v, err := Parse(vs)
	if err != nil {
		return 0, Version{}, false, fmt.Errorf("%w: %q", ErrInvalidRange, tok)
	}
	switch op {
	case "", ">=":
		return GTE, v, false, nil
	case ">":
		return GT, v, false, nil
	case "<=":
		return LTE, v, false, nil
	case "<":
		return LT, v, false, nil
	case "==":
		return GTE, v, true, nil
	}
	return 0, Version{}, false, fmt.Errorf("%w: unknown comparator %q", ErrInvalidRange, op)
}

// Valid reports whether the interval is non-empty under its own operators.
// Equal bounds form a point constraint, valid only when both comparators
// include the point.
func (r Range) Valid() bool {
	if r.low.IsMaster() || r.high.IsMaster() {
		return r.low.IsMaster() && r.high.IsMaster()
	}
	switch c := r.low.Compare(r.high); {
	case c > 0:
		return false
	case c == 0:
		return r.cmpLow.eval(r.low, r.low) && r.cmpHigh.eval(r.high, r.high)
	}
	return r.cmpLow.eval(r.high, r.low) && r.cmpHigh.eval(r.low, r.high)
}

// Matches reports whether v satisfies both bounds. A master range matches
// only the master tag, and the master tag matches only master ranges.
func (r Range) Matches(v Version) bool {
	if r.low.IsMaster() || r.high.IsMaster() {
		return r.low.IsMaster() && r.high.IsMaster() && v.IsMaster()
	}
	if v.IsMaster() {
		return false
	}
	return r.cmpLow.eval(v, r.low) && r.cmpHigh.eval(v, r.high)
}

// Merge intersects two ranges. If one side is invalid the other wins.
// Otherwise the higher lower bound and the lower upper bound are kept,
// each with the comparator of the side that determined it; when both
// sides propose the same boundary value, the strict comparator wins.
// The result may itself be invalid; that is how conflicting
// requirements are detected.
func (r Range) Merge(o Range) Range {
	if !r.Valid() {
		return o
	}
	if !o.Valid() {
		return r
	}
	if r.low.IsMaster() || o.low.IsMaster() {
		if r.low.IsMaster() && o.low.IsMaster() {
			return r
		}
		return empty
	}

	var out Range
	switch d := r.low.Compare(o.low); {
	case d > 0:
		out.cmpLow, out.low = r.cmpLow, r.low
	case d < 0:
		out.cmpLow, out.low = o.cmpLow, o.low
	default:
		out.cmpLow, out.low = r.cmpLow, r.low
		if out.cmpLow.inclusive() && !o.cmpLow.inclusive() {
			out.cmpLow = o.cmpLow
		}
	}
	switch d := r.high.Compare(o.high); {
	case d < 0:
		out.cmpHigh, out.high = r.cmpHigh, r.high
	case d > 0:
		out.cmpHigh, out.high = o.cmpHigh, o.high
	default:
		out.cmpHigh, out.high = r.cmpHigh, r.high
		if out.cmpHigh.inclusive() && !o.cmpHigh.inclusive() {
			out.cmpHigh = o.cmpHigh
		}
	}
	return out
}

// String renders the shortest expression describing the same interval;
// it round-trips through ParseRange to an equivalent range, not
// necessarily the identical text.
func (r Range) String() string {
	if r.low.IsMaster() && r.high.IsMaster() {
		return MasterString
	}
	if r.low == r.high && r.cmpLow.inclusive() && r.cmpHigh.inclusive() {
		return "==" + r.low.String()
	}
	if r.high == Head && r.cmpHigh == LTE {
		return r.cmpLow.String() + r.low.String()
	}
	if r.low == Release && r.cmpLow == GTE {
		return r.cmpHigh.String() + r.high.String()
	}
	return r.cmpLow.String() + r.low.String() + " " + r.cmpHigh.String() + r.high.String()
}
