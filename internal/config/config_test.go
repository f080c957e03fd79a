package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"binir/internal/container"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[output]
compression = "none"

[store]
path = "db/irs.db"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Compression() != container.CompressionNone {
		t.Fatalf("compression = %s", cfg.Compression())
	}
	if got, want := cfg.StorePath(), filepath.Join(root, "db", "irs.db"); got != want {
		t.Fatalf("StorePath = %q, want %q", got, want)
	}
	// unset keys keep their defaults
	if cfg.Trace.Level != "off" {
		t.Fatalf("trace level = %q", cfg.Trace.Level)
	}
}

func TestDiscoverDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" || cfg.Compression() != container.CompressionXZ {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown keys":    "[output]\nlevel = \"x\"\n",
		"[trace].level":   "[trace]\nlevel = \"loud\"\n",
		"compression":     "[output]\ncompression = \"zip\"\n",
		"empty [store]":   "[store]\npath = \"\"\n",
		"must not be":     "[verify]\njobs = -1\n",
		"[verify].ui":     "[verify]\nui = \"sometimes\"\n",
		"failed to parse": "[output\n",
	}
	for want, body := range cases {
		path := writeConfig(t, t.TempDir(), body)
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%q: expected error containing %q, got %v", body, want, err)
		}
	}
}
