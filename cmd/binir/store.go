package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"binir/internal/container"
	"binir/internal/store"
	"binir/internal/ui"
	"binir/ir"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep encoded IRs in a local database",
	}
	cmd.PersistentFlags().String("db", "", "database path (default: [store].path from binir.toml)")
	cmd.AddCommand(newStorePutCmd(), newStoreGetCmd(), newStoreListCmd(), newStoreRemoveCmd())
	return cmd
}

// openStore opens the database named by --db or binir.toml, creating its
// directory when needed.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.StorePath()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	return store.Open(commandContext(cmd), path, store.WithCompression(cfg.Compression()))
}

func newStorePutCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "put <file.bnir>",
		Short: "Decode a container and store its IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := loadIR(cmd, args[0])
			if err != nil {
				return err
			}
			for m := range r.Modules() {
				if err := ir.Validate(m); err != nil {
					return fmt.Errorf("%s: module %q: %w", args[0], m.Name(), err)
				}
			}
			msg, err := ir.EncodeIRContext(commandContext(cmd), r)
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			e, err := s.Put(commandContext(cmd), name, msg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.UUID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name to store under (default: file name)")
	return cmd
}

func newStoreGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <uuid> <out.bnir>",
		Short: "Write a stored IR to a container file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid uuid %q: %w", args[0], err)
			}
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			msg, e, err := s.Get(commandContext(cmd), id)
			if err != nil {
				return err
			}
			// decode first so a damaged row never reaches disk
			if _, err := ir.DecodeIRContext(commandContext(cmd), ir.NewContext(), msg); err != nil {
				return fmt.Errorf("stored ir %s: %w", id, err)
			}
			if _, err := container.WriteFile(args[1], msg, container.Options{Compression: cfg.Compression()}); err != nil {
				return err
			}
			if !quiet(cmd) {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d modules)\n", args[1], e.Name, e.Modules)
			}
			return nil
		},
	}
}

func newStoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored IRs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			entries, err := s.List(commandContext(cmd))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-36s  %-20s %7s %10s  %-12s  %s\n", "UUID", "NAME", "MODULES", "SIZE", "DIGEST", "CREATED")
			for _, e := range entries {
				fmt.Fprintf(out, "%-36s  %-20s %7d %10d  %-12s  %s\n",
					e.UUID, ui.Truncate(e.Name, 20), e.Modules, e.Size, e.Digest[:12], e.Created.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func newStoreRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <uuid>...",
		Aliases: []string{"remove"},
		Short:   "Delete stored IRs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid uuid %q: %w", arg, err)
				}
				if err := s.Delete(commandContext(cmd), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
