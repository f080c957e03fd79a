package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"binir/internal/observ"
	"binir/internal/verify"
)

// containerExt is the extension collected when a directory is passed.
const containerExt = ".bnir"

func newVerifyCmd() *cobra.Command {
	var (
		jobs      int
		roundTrip bool
	)
	cmd := &cobra.Command{
		Use:   "verify <file.bnir|dir>...",
		Short: "Decode and validate containers in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			view, err := resolveProgressView(cmd, cfg, isTerminal(os.Stdout))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("jobs") {
				jobs = cfg.Verify.Jobs
			}
			files, err := collectContainers(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no %s files found", containerExt)
			}

			opts := verify.Options{Jobs: jobs, RoundTrip: roundTrip}
			ctx := commandContext(cmd)
			timer := observ.NewTimer()
			idx := timer.Begin("verify")
			var results []verify.Result
			if view == progressLive {
				results, err = runVerifyWithUI(ctx, "verifying", files, opts)
			} else {
				results, err = verify.Files(ctx, files, opts)
			}
			timer.End(idx, fmt.Sprintf("%d files", len(files)))
			if err != nil {
				return err
			}

			failed := reportResults(cmd.OutOrStdout(), results, quiet(cmd))
			printTimings(cmd, timer)
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed verification", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "max parallel files (0=auto)")
	cmd.Flags().BoolVar(&roundTrip, "roundtrip", false, "re-encode each IR and compare the bytes")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off); default from [verify].ui")
	return cmd
}

// collectContainers expands directories into the containers below them.
// Plain file arguments are kept whatever their extension.
func collectContainers(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}
	for _, arg := range args {
		err := filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if p == arg || strings.EqualFold(filepath.Ext(p), containerExt) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return files, nil
}

// reportResults prints one line per file and returns the failure count.
func reportResults(w io.Writer, results []verify.Result, quiet bool) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s %s: %v\n", color.RedString("FAIL"), r.Path, r.Err)
			continue
		}
		if quiet {
			continue
		}
		fmt.Fprintf(w, "%s   %s (%d modules, %d symbols, %d nodes, %s)\n",
			color.GreenString("ok"), r.Path, r.Modules, r.Symbols, r.Nodes, r.Elapsed.Round(time.Microsecond))
	}
	return failed
}
