// Package config loads binir.toml, the optional per-project settings file.
//
//	[output]
//	compression = "xz"      # none | xz
//
//	[trace]
//	level  = "phase"        # off | phase | module | debug
//	output = "-"            # "-" for stderr, or a file path
//	format = "text"         # text | ndjson
//
//	[store]
//	path = ".binir/irs.db"  # relative to the file's directory
//
//	[verify]
//	jobs = 4                # 0 uses GOMAXPROCS
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"binir/internal/container"
	"binir/internal/trace"
)

// FileName is the name looked up by Find.
const FileName = "binir.toml"

// Config is the decoded settings file. Path and Root are empty when the
// defaults are used.
type Config struct {
	Path string `toml:"-"`
	Root string `toml:"-"`

	Output OutputConfig `toml:"output"`
	Trace  TraceConfig  `toml:"trace"`
	Store  StoreConfig  `toml:"store"`
	Verify VerifyConfig `toml:"verify"`
}

type OutputConfig struct {
	Compression string `toml:"compression"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Format string `toml:"format"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type VerifyConfig struct {
	Jobs int    `toml:"jobs"`
	UI   string `toml:"ui"` // auto, on or off
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		Output: OutputConfig{Compression: "xz"},
		Trace:  TraceConfig{Level: "off", Output: "-", Format: "text"},
		Store:  StoreConfig{Path: filepath.Join(".binir", "irs.db")},
		Verify: VerifyConfig{UI: "auto"},
	}
}

// Find walks from startDir towards the root looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest binir.toml above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes path over the defaults and checks every value.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("store", "path") && strings.TrimSpace(cfg.Store.Path) == "" {
		return Config{}, fmt.Errorf("%s: empty [store].path", path)
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first value that the rest of binir would reject.
func (c Config) Validate() error {
	if _, err := container.ParseCompression(c.Output.Compression); err != nil {
		return fmt.Errorf("[output].compression: %w", err)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace].format: %w", err)
	}
	if c.Verify.Jobs < 0 {
		return fmt.Errorf("[verify].jobs must not be negative, got %d", c.Verify.Jobs)
	}
	switch strings.ToLower(strings.TrimSpace(c.Verify.UI)) {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("[verify].ui must be auto, on or off, got %q", c.Verify.UI)
	}
	return nil
}

// StorePath resolves the store path against the file's directory.
func (c Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) || c.Root == "" {
		return c.Store.Path
	}
	return filepath.Join(c.Root, c.Store.Path)
}

// Compression returns the parsed [output].compression.
func (c Config) Compression() container.Compression {
	comp, err := container.ParseCompression(c.Output.Compression)
	if err != nil {
		return container.CompressionXZ
	}
	return comp
}
