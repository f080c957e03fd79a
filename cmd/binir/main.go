package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"binir/internal/version"
)

// newRootCmd builds the command tree. Tests build a fresh tree per run so
// flag state never leaks between them.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "binir",
		Short:         "Inspect, verify and store binary IR files",
		Long:          `binir reads and writes .bnir containers holding an encoded binary IR: modules, sections, blocks, control flow and symbols.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyColorFlag(cmd); err != nil {
				return err
			}
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			cleanup, err := setupTracing(cmd, cfg)
			if err != nil {
				return err
			}
			attachCleanup(cmd, cleanup)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			runCleanup(cmd)
		},
	}

	root.AddCommand(newInspectCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newStoreCmd())
	root.AddCommand(newVersionCmd())

	flags := root.PersistentFlags()
	flags.String("config", "", "path to binir.toml (default: nearest one above the working directory)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.String("trace", "", "trace output file (\"-\" for stderr)")
	flags.String("trace-level", "", "trace level (off|phase|module|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "", "trace format (text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln(color.RedString("error:"), err)
		runCleanup(root)
		os.Exit(1)
	}
}

func applyColorFlag(cmd *cobra.Command) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return errInvalidFlag("color", mode, "auto|on|off")
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth is the width of stdout, or 100 when it is not a terminal.
func terminalWidth() int {
	if !isTerminal(os.Stdout) {
		return 100
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 100
	}
	return w
}
