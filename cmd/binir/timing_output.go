package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binir/internal/observ"
)

// printTimings writes the timer summary to stderr when --timings is set.
func printTimings(cmd *cobra.Command, t *observ.Timer) {
	show, err := cmd.Flags().GetBool("timings")
	if err != nil || !show {
		return
	}
	fmt.Fprint(cmd.ErrOrStderr(), t.Summary())
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Flags().GetBool("quiet")
	return err == nil && q
}
