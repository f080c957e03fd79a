// Package testkit builds sample IR values and checks the invariants tests
// across the repository rely on.
package testkit

import (
	"fmt"

	"binir/ir"
)

// Sample is a small but complete module with handles to its interesting
// nodes.
type Sample struct {
	IR      *ir.IR
	Module  *ir.Module
	Text    *ir.Section
	Code    *ir.CodeBlock
	Data    *ir.DataBlock
	Proxy   *ir.ProxyBlock
	Main    *ir.Symbol
	Table   *ir.Symbol
	Import  *ir.Symbol
	Literal *ir.Symbol
}

// BuildSample populates c with one IR holding one ELF module:
//
//	.text at 0x1000, 16 bytes: code block [0,+8), data block [8,+4)
//	proxy block for the import "puts"
//	cfg: code -> proxy, code -> code
//	symbols: main -> code, table -> data, puts -> proxy, lit @ 0x2000
//	symbolic expression at 0x1004 = main + 4
func BuildSample(c *ir.Context) (*Sample, error) {
	r := ir.NewIR(c)
	m := r.AddModule(c, "sample")
	m.SetBinaryPath("/bin/sample")
	m.SetFileFormat(ir.FormatELF)
	m.SetISA(ir.ISAX64)
	m.SetPreferredAddr(0x1000)
	m.Properties().Set("compiler", ir.StringValue("cc"))

	img := m.ImageByteMap()
	img.SetFileName("sample")
	img.SetBaseAddress(0x1000)
	img.SetEntryPointAddress(0x1000)
	if err := img.SetAddrMinMax(0x1000, 0x1010); err != nil {
		return nil, err
	}
	if err := img.SetData(0x1000, []byte{0x55, 0x48, 0x89, 0xe5}); err != nil {
		return nil, err
	}

	text := m.AddSection(c, ".text")
	text.SetFlags(ir.SectionReadable | ir.SectionExecutable | ir.SectionLoaded | ir.SectionInitialized)
	bi := text.AddByteInterval(c, 0x1000, 16)
	if err := bi.SetContents([]byte{0x55, 0x48, 0x89, 0xe5, 0xc3}); err != nil {
		return nil, err
	}
	code, err := bi.AddCodeBlock(c, 0, 8)
	if err != nil {
		return nil, err
	}
	data, err := bi.AddDataBlock(c, 8, 4)
	if err != nil {
		return nil, err
	}
	proxy := m.AddProxyBlock(c)

	g := m.CFG()
	vc := g.AddBlock(code)
	vp := g.AddBlock(proxy)
	if err := g.AddEdge(vc, vp); err != nil {
		return nil, err
	}
	if err := g.AddEdge(vc, vc); err != nil {
		return nil, err
	}

	m.AddData(ir.NewDataObject(c, 0x1008, 4), ir.NewDataObject(c, 0x2000, 8))

	main := ir.NewSymbolFor(c, code, "main")
	main.SetStorageKind(ir.StorageStatic)
	table := ir.NewSymbolFor(c, data, "table")
	imp := ir.NewSymbolFor(c, proxy, "puts")
	lit := ir.NewSymbolAt(c, 0x2000, "lit")
	m.AddSymbols(main, table, imp, lit)

	m.AddSymbolicExpression(0x1004, ir.SymAddrConst{Offset: 4, Sym: main})

	if err := ir.PutAux(m, ir.CommentsAux, map[ir.Addr]string{0x1000: "entry"}); err != nil {
		return nil, fmt.Errorf("aux: %w", err)
	}

	return &Sample{
		IR:      r,
		Module:  m,
		Text:    text,
		Code:    code,
		Data:    data,
		Proxy:   proxy,
		Main:    main,
		Table:   table,
		Import:  imp,
		Literal: lit,
	}, nil
}

// MustSample is BuildSample for tests that cannot proceed without it.
func MustSample(c *ir.Context) *Sample {
	s, err := BuildSample(c)
	if err != nil {
		panic(fmt.Errorf("testkit: build sample: %w", err))
	}
	return s
}
