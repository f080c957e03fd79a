package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestCurrentReflectsOverrides(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version = "1.2.3"
	GitCommit = "abc123"
	info := Current()
	if info.Version != "1.2.3" || info.GitCommit != "abc123" {
		t.Fatalf("Current = %+v", info)
	}
	if info.IRVersion == 0 {
		t.Fatalf("ir format version missing")
	}
}

func TestPrettyWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	out := Info{Version: "0.1.0", IRVersion: 1, BuildDate: "2024-01-15"}.Pretty()
	if !strings.HasPrefix(out, "binir 0.1.0 (ir format 1)") {
		t.Fatalf("Pretty = %q", out)
	}
	if !strings.Contains(out, "built:  2024-01-15") || strings.Contains(out, "commit") {
		t.Fatalf("Pretty = %q", out)
	}
}
