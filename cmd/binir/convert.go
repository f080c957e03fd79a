package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binir/internal/container"
	"binir/internal/observ"
	"binir/ir"
)

func newConvertCmd() *cobra.Command {
	var compression string
	cmd := &cobra.Command{
		Use:   "convert <in.bnir> <out.bnir>",
		Short: "Decode a container and write it again, optionally recompressed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			comp := cfg.Compression()
			if cmd.Flags().Changed("compression") {
				comp, err = container.ParseCompression(compression)
				if err != nil {
					return err
				}
			}

			timer := observ.NewTimer()
			var r *ir.IR
			if err := timer.Measure("decode", func() error {
				var err error
				r, _, err = loadIR(cmd, args[0])
				return err
			}); err != nil {
				return err
			}
			var h container.Header
			if err := timer.Measure("encode", func() error {
				msg, err := ir.EncodeIRContext(commandContext(cmd), r)
				if err != nil {
					return err
				}
				h, err = container.WriteFile(args[1], msg, container.Options{Compression: comp})
				return err
			}); err != nil {
				return err
			}
			if !quiet(cmd) {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d modules, %s, %d bytes payload)\n",
					args[1], r.NumModules(), h.Compression, h.Length)
			}
			printTimings(cmd, timer)
			return nil
		},
	}
	cmd.Flags().StringVar(&compression, "compression", "", "payload compression (none|xz); default from binir.toml")
	return cmd
}
