package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"binir/internal/config"
)

type settingsKey struct{}

type cleanupKey struct{}

type cleanupHolder struct {
	fn func()
}

func errInvalidFlag(name, value, want string) error {
	return fmt.Errorf("invalid --%s value %q (expected %s)", name, value, want)
}

// loadSettings reads binir.toml once per invocation and caches it on the
// command context.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	if cfg, ok := settingsFrom(cmd); ok {
		return cfg, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	setContext(cmd, context.WithValue(commandContext(cmd), settingsKey{}, cfg))
	return cfg, nil
}

func settingsFrom(cmd *cobra.Command) (config.Config, bool) {
	cfg, ok := commandContext(cmd).Value(settingsKey{}).(config.Config)
	return cfg, ok
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)
}

func attachCleanup(cmd *cobra.Command, fn func()) {
	setContext(cmd, context.WithValue(commandContext(cmd), cleanupKey{}, &cleanupHolder{fn: fn}))
}

// runCleanup flushes the tracer. It is safe to call more than once.
func runCleanup(cmd *cobra.Command) {
	h, ok := commandContext(cmd).Value(cleanupKey{}).(*cleanupHolder)
	if !ok || h.fn == nil {
		return
	}
	fn := h.fn
	h.fn = nil
	fn()
}
