package main

import (
	"strings"

	"github.com/spf13/cobra"

	"binir/internal/config"
)

// progressView is how verify reports progress.
type progressView uint8

const (
	progressPlain progressView = iota // one line per file once the batch ends
	progressLive                      // Bubble Tea view while files are checked
)

// resolveProgressView combines --ui, [verify].ui, --quiet and the terminal
// check. --ui wins over the config file; --quiet always prints plain lines.
func resolveProgressView(cmd *cobra.Command, cfg config.Config, stdoutTTY bool) (progressView, error) {
	value := cfg.Verify.UI
	if cmd.Flags().Changed("ui") {
		v, err := cmd.Flags().GetString("ui")
		if err != nil {
			return progressPlain, err
		}
		value = v
	}
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		if quiet(cmd) || !stdoutTTY {
			return progressPlain, nil
		}
		return progressLive, nil
	case "on":
		if quiet(cmd) {
			return progressPlain, nil
		}
		return progressLive, nil
	case "off":
		return progressPlain, nil
	default:
		return progressPlain, errInvalidFlag("ui", value, "auto|on|off")
	}
}
