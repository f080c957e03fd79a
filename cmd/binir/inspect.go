package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"binir/internal/container"
	"binir/internal/observ"
	"binir/internal/ui"
	"binir/ir"
)

type inspectOptions struct {
	format  string
	symbols bool
	find    string
	at      string
	width   int
}

func newInspectCmd() *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect <file.bnir>",
		Short: "Summarize the modules stored in a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.format = strings.ToLower(opts.format)
			if opts.format != "text" && opts.format != "json" {
				return errInvalidFlag("format", opts.format, "text|json")
			}
			opts.width = terminalWidth()

			timer := observ.NewTimer()
			var (
				r *ir.IR
				h container.Header
			)
			err := timer.Measure("load", func() error {
				var err error
				r, h, err = loadIR(cmd, args[0])
				return err
			})
			if err != nil {
				return err
			}
			if err := inspectIR(cmd.OutOrStdout(), r, h, opts); err != nil {
				return err
			}
			printTimings(cmd, timer)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|json)")
	cmd.Flags().BoolVar(&opts.symbols, "symbols", false, "list every symbol")
	cmd.Flags().StringVar(&opts.find, "find", "", "list symbols with this name")
	cmd.Flags().StringVar(&opts.at, "at", "", "list symbols and blocks at this address (hex with 0x)")
	return cmd
}

// loadIR reads a container and decodes it into a fresh Context.
func loadIR(cmd *cobra.Command, path string) (*ir.IR, container.Header, error) {
	msg, h, err := container.ReadFile(path)
	if err != nil {
		return nil, h, err
	}
	r, err := ir.DecodeIRContext(commandContext(cmd), ir.NewContext(), msg)
	if err != nil {
		return nil, h, fmt.Errorf("%s: %w", path, err)
	}
	return r, h, nil
}

type moduleSummary struct {
	Name          string           `json:"name"`
	UUID          string           `json:"uuid"`
	Format        string           `json:"format"`
	ISA           string           `json:"isa"`
	PreferredAddr string           `json:"preferred_addr"`
	EntryPoint    string           `json:"entry_point"`
	Image         string           `json:"image_span"`
	Sections      []sectionSummary `json:"sections"`
	Data          int              `json:"data_objects"`
	Proxies       int              `json:"proxy_blocks"`
	Vertices      int              `json:"cfg_vertices"`
	Edges         int              `json:"cfg_edges"`
	SymExprs      int              `json:"symbolic_expressions"`
	AuxData       []string         `json:"aux_data"`
	Symbols       []symbolSummary  `json:"symbols,omitempty"`
	SymbolCount   int              `json:"symbol_count"`
}

type sectionSummary struct {
	Name      string `json:"name"`
	Flags     string `json:"flags"`
	Address   string `json:"address,omitempty"`
	Size      uint64 `json:"size"`
	Intervals int    `json:"intervals"`
	Blocks    int    `json:"blocks"`
}

type symbolSummary struct {
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Storage  string `json:"storage"`
	Referent string `json:"referent,omitempty"`
}

type irSummary struct {
	UUID        string          `json:"uuid"`
	Version     uint32          `json:"version"`
	Compression string          `json:"compression"`
	Checksum    string          `json:"checksum"`
	Modules     []moduleSummary `json:"modules"`
}

var referentKind = ir.ReferentVisitor[string]{
	Code:  func(b *ir.CodeBlock) string { return "code " + b.UUID().String() },
	Data:  func(b *ir.DataBlock) string { return "data " + b.UUID().String() },
	Proxy: func(b *ir.ProxyBlock) string { return "proxy " + b.UUID().String() },
}

func summarize(r *ir.IR, h container.Header, opts inspectOptions) (irSummary, error) {
	out := irSummary{
		UUID:        r.UUID().String(),
		Version:     r.Version(),
		Compression: h.Compression.String(),
		Checksum:    fmt.Sprintf("%x", h.Checksum[:8]),
	}
	var at ir.Addr
	if opts.at != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(opts.at), "0x"), 16, 64)
		if err != nil {
			return out, fmt.Errorf("invalid --at address %q: %w", opts.at, err)
		}
		at = ir.Addr(v)
	}
	want := norm.NFC.String(opts.find)

	for m := range r.Modules() {
		ms := moduleSummary{
			Name:          m.Name(),
			UUID:          m.UUID().String(),
			Format:        m.FileFormat().String(),
			ISA:           m.ISA().String(),
			PreferredAddr: m.PreferredAddr().String(),
			Data:          m.NumData(),
			Vertices:      m.CFG().NumVertices(),
			Edges:         m.CFG().NumEdges(),
			SymExprs:      m.NumSymbolicExpressions(),
			AuxData:       m.AuxDataNames(),
			SymbolCount:   m.NumSymbols(),
		}
		img := m.ImageByteMap()
		lo, hi := img.AddrMinMax()
		ms.EntryPoint = img.EntryPointAddress().String()
		ms.Image = fmt.Sprintf("%s..%s", lo, hi)
		for range m.ProxyBlocks() {
			ms.Proxies++
		}
		for _, s := range m.SectionsByAddress() {
			ss := sectionSummary{Name: s.Name(), Flags: s.Flags().String(), Intervals: s.NumByteIntervals()}
			if a, ok := s.Address(); ok {
				ss.Address = a.String()
			}
			ss.Size, _ = s.Size()
			for bi := range s.ByteIntervals() {
				ss.Blocks += bi.NumBlocks()
			}
			ms.Sections = append(ms.Sections, ss)
		}

		switch {
		case opts.at != "":
			for s := range m.FindSymbols(at) {
				ms.Symbols = append(ms.Symbols, summarizeSymbol(s))
			}
		case opts.find != "":
			for s := range m.Symbols() {
				if norm.NFC.String(s.Name()) == want {
					ms.Symbols = append(ms.Symbols, summarizeSymbol(s))
				}
			}
		case opts.symbols:
			for s := range m.Symbols() {
				ms.Symbols = append(ms.Symbols, summarizeSymbol(s))
			}
		}
		out.Modules = append(out.Modules, ms)
	}
	return out, nil
}

func summarizeSymbol(s *ir.Symbol) symbolSummary {
	ss := symbolSummary{Name: s.Name(), Storage: s.StorageKind().String()}
	if a, ok := s.Address(); ok {
		ss.Address = a.String()
	}
	ss.Referent, _ = ir.Visit(s, referentKind)
	return ss
}

func inspectIR(w io.Writer, r *ir.IR, h container.Header, opts inspectOptions) error {
	sum, err := summarize(r, h, opts)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	width := opts.width
	if width <= 0 {
		width = 100
	}
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	fmt.Fprintf(w, "%s %s (format %d, %s, checksum %s)\n", bold.Sprint("ir"), sum.UUID, sum.Version, sum.Compression, sum.Checksum)
	for _, m := range sum.Modules {
		fmt.Fprintf(w, "\n%s %s  %s/%s  preferred %s  entry %s  image %s\n",
			bold.Sprint("module"), color.CyanString(m.Name), m.Format, m.ISA, m.PreferredAddr, m.EntryPoint, m.Image)
		fmt.Fprintf(w, "  cfg %d vertices, %d edges; %d symbols; %d data objects; %d proxies; %d symbolic expressions\n",
			m.Vertices, m.Edges, m.SymbolCount, m.Data, m.Proxies, m.SymExprs)
		if len(m.AuxData) > 0 {
			fmt.Fprintf(w, "  aux %s\n", strings.Join(m.AuxData, ", "))
		}
		for _, s := range m.Sections {
			addr := s.Address
			if addr == "" {
				addr = "-"
			}
			fmt.Fprintf(w, "  %-16s %-12s %10s %8d bytes %3d intervals %4d blocks\n",
				ui.Truncate(s.Name, 16), s.Flags, addr, s.Size, s.Intervals, s.Blocks)
		}
		if len(m.Symbols) > 0 {
			fmt.Fprintln(w)
		}
		for _, s := range m.Symbols {
			addr := s.Address
			if addr == "" {
				addr = "-"
			}
			line := fmt.Sprintf("  %12s %-7s %s", addr, s.Storage, s.Name)
			if s.Referent != "" {
				line += dim.Sprint(" -> " + s.Referent)
			}
			fmt.Fprintln(w, ui.Truncate(line, width))
		}
	}
	return nil
}
