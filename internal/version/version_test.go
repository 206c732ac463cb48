package version

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"0.0.0", Release, true},
		{"1.2.3", Version{1, 2, 3}, true},
		{"9999.9999.9999", Head, true},
		{"10.0.3", Version{10, 0, 3}, true},
		{"~master", Master, true},
		{"", Version{}, false},
		{"1", Version{}, false},
		{"1.2", Version{}, false},
		{"1.2.3.4", Version{}, false},
		{"a.b.c", Version{}, false},
		{"1.2.x", Version{}, false},
		{"-1.2.3", Version{}, false},
		{"1.-2.3", Version{}, false},
		{"1.2.3-rc1", Version{}, false},
		{"master", Version{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.ok {
				if err != nil {
					t.Fatalf("Parse(%q) error = %v", tt.in, err)
				}
				if got != tt.want {
					t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.in, got)
			}
			if !errors.Is(err, ErrInvalidVersion) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidVersion", tt.in, err)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.2.3", "1.2.4", -1},
		{"1.10.0", "1.9.0", 1},
		{"0.0.0", "0.0.1", -1},
		{"0.0.0", "9999.9999.9999", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			a := mustParse(t, tt.a)
			b := mustParse(t, tt.b)
			if got := a.Compare(b); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", a, b, got, tt.want)
			}
			if got := b.Compare(a); got != -tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", b, a, got, -tt.want)
			}
		})
	}
}

// Ordinary triples must form a strict total order with antisymmetric Compare.
func TestCompareTotalOrder(t *testing.T) {
	ordered := []Version{
		Release,
		{0, 0, 1},
		{0, 1, 0},
		{1, 0, 0},
		{1, 2, 3},
		{1, 10, 0},
		{2, 0, 0},
		Head,
	}
	for i, a := range ordered {
		for j, b := range ordered {
			got := a.Compare(b)
			want := cmp(i, j)
			if got != want {
				t.Errorf("Compare(%s, %s) = %d, want %d", a, b, got, want)
			}
			if got != -b.Compare(a) {
				t.Errorf("Compare(%s, %s) is not antisymmetric", a, b)
			}
		}
	}
}

func TestMasterEquality(t *testing.T) {
	if Master.Compare(Master) != 0 {
		t.Error("Master should equal itself")
	}
	if !Master.IsMaster() {
		t.Error("Master.IsMaster() = false")
	}
	for _, v := range []Version{Release, {1, 2, 3}, Head} {
		if v.IsMaster() {
			t.Errorf("%s.IsMaster() = true", v)
		}
		if Master.Compare(v) == 0 {
			t.Errorf("Master compares equal to %s", v)
		}
		if v.Compare(Master) == 0 {
			t.Errorf("%s compares equal to Master", v)
		}
	}
}

func TestVersionString(t *testing.T) {
	for _, s := range []string{"0.0.0", "1.2.3", "9999.9999.9999", "~master"} {
		v := mustParse(t, s)
		if v.String() != s {
			t.Errorf("String() = %q, want %q", v.String(), s)
		}
	}
}

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return v
}
