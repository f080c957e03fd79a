// Package version holds build information for the binir CLI. The variables
// can be overridden at build time via -ldflags.
package version

import (
	"fmt"

	"github.com/fatih/color"

	"binir/ir"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Info is the machine-readable form printed by `binir version --format json`.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	IRVersion uint32 `json:"ir_version"`
}

func Current() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		IRVersion: ir.Version,
	}
}

var (
	nameColor    = color.New(color.FgCyan, color.Bold)
	versionColor = color.New(color.FgYellow, color.Bold)
	dimColor     = color.New(color.Faint)
)

// Pretty renders info for a terminal. Color is dropped automatically when
// stdout is not a terminal or NO_COLOR is set.
func (i Info) Pretty() string {
	s := nameColor.Sprint("binir") + " " + versionColor.Sprint(i.Version)
	s += dimColor.Sprintf(" (ir format %d)", i.IRVersion)
	if i.GitCommit != "" {
		s += fmt.Sprintf("\n  commit: %s", i.GitCommit)
	}
	if i.BuildDate != "" {
		s += fmt.Sprintf("\n  built:  %s", i.BuildDate)
	}
	return s
}
