package vpm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/frederic-klein/vpm/internal/version"
)

// ActionKind classifies one planned mutation or one reported problem.
type ActionKind uint8

const (
	// ActionInstallUpdate installs or updates one package.
	ActionInstallUpdate ActionKind = iota
	// ActionUninstall removes one installed package.
	ActionUninstall
	// ActionConflict reports a requirement set no version can satisfy.
	ActionConflict
	// ActionFailure reports a requirement resolution could not meet.
	ActionFailure
)

func (k ActionKind) String() string {
	switch k {
	case ActionInstallUpdate:
		return "install"
	case ActionUninstall:
		return "uninstall"
	case ActionConflict:
		return "conflict"
	case ActionFailure:
		return "failure"
	}
	return "unknown"
}

// Action is one entry of the plan Actions produces: either a mutation to
// perform or a problem to report. Issuers names the packages whose
// declarations produced the constraint.
type Action struct {
	Kind    ActionKind
	Package string
	Range   version.Range
	Issuers map[string]version.Range
}

func (a Action) String() string {
	s := fmt.Sprintf("%s %s %s", a.Kind, a.Package, a.Range)
	if len(a.Issuers) > 0 {
		issuers := make([]string, 0, len(a.Issuers))
		for name := range a.Issuers {
			issuers = append(issuers, name)
		}
		sort.Strings(issuers)
		s += " (wanted by " + strings.Join(issuers, ", ") + ")"
	}
	return s
}
