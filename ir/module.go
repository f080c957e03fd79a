package ir

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"sort"
)

// FileFormat is the container format the module was loaded from.
type FileFormat uint8

const (
	FormatUndefined FileFormat = iota
	FormatCOFF
	FormatELF
	FormatPE
	FormatIdaProDb32
	FormatIdaProDb64
	FormatXCOFF
	FormatMachO
)

func (f FileFormat) String() string {
	switch f {
	case FormatCOFF:
		return "coff"
	case FormatELF:
		return "elf"
	case FormatPE:
		return "pe"
	case FormatIdaProDb32:
		return "idb32"
	case FormatIdaProDb64:
		return "idb64"
	case FormatXCOFF:
		return "xcoff"
	case FormatMachO:
		return "macho"
	default:
		return "undefined"
	}
}

// ISA identifies the instruction set of the module.
type ISA uint8

const (
	ISAUndefined ISA = iota
	ISAIA32
	ISAPPC32
	ISAX64
	ISAARM
	ISAValidButUnsupported
)

func (i ISA) String() string {
	switch i {
	case ISAIA32:
		return "ia32"
	case ISAPPC32:
		return "ppc32"
	case ISAX64:
		return "x64"
	case ISAARM:
		return "arm"
	case ISAValidButUnsupported:
		return "unsupported"
	default:
		return "undefined"
	}
}

type symbolEntry struct {
	addr Addr
	sym  *Symbol
}

// Module is one loaded binary image.
type Module struct {
	nodeBase
	AuxDataContainer

	name          string
	binaryPath    string
	format        FileFormat
	isa           ISA
	preferredAddr Addr
	rebaseDelta   int64

	cfg      *CFG
	data     []*DataObject
	sections []*Section
	proxies  []*ProxyBlock
	symbols  []*Symbol
	symExprs map[Addr]SymbolicExpression
	image    *ImageByteMap

	// symIndex is symbols with an address, stably sorted by it. It is valid
	// while symEpoch equals the arena epoch.
	symIndex []symbolEntry
	symEpoch uint64
	symValid bool
}

// NewModule creates a module together with its image byte map.
func NewModule(c *Context, name string) *Module {
	m := register(c, newModuleShell(name))
	m.image = NewImageByteMap(c)
	m.image.module = m
	return m
}

func newModuleShell(name string) *Module {
	return &Module{
		name:     name,
		cfg:      NewCFG(),
		symExprs: make(map[Addr]SymbolicExpression),
	}
}

func (m *Module) Name() string { return m.name }

func (m *Module) SetName(name string) { m.name = name }

func (m *Module) BinaryPath() string { return m.binaryPath }

func (m *Module) SetBinaryPath(p string) { m.binaryPath = p }

func (m *Module) FileFormat() FileFormat { return m.format }

func (m *Module) SetFileFormat(f FileFormat) { m.format = f }

func (m *Module) ISA() ISA { return m.isa }

func (m *Module) SetISA(isa ISA) { m.isa = isa }

func (m *Module) PreferredAddr() Addr { return m.preferredAddr }

func (m *Module) SetPreferredAddr(a Addr) { m.preferredAddr = a }

func (m *Module) RebaseDelta() int64 { return m.rebaseDelta }

func (m *Module) SetRebaseDelta(d int64) { m.rebaseDelta = d }

// CFG returns the module's control-flow graph.
func (m *Module) CFG() *CFG { return m.cfg }

// ImageByteMap returns the module's byte map. Modules not created through
// NewModule or a decoder have none; calling this on them panics.
func (m *Module) ImageByteMap() *ImageByteMap {
	if m.image == nil {
		panic("ir: module has no image byte map")
	}
	return m.image
}

// SetImageByteMap replaces the module's map with ibm, which must be detached
// or already owned by m. The previous map becomes detached.
func (m *Module) SetImageByteMap(ibm *ImageByteMap) error {
	if ibm == nil {
		return invariantf("module %q: nil image byte map", m.name)
	}
	if ibm.module != nil && ibm.module != m {
		return invariantf("image byte map %s is owned by module %q", ibm.uuid, ibm.module.name)
	}
	if m.image != nil && m.image != ibm {
		m.image.module = nil
	}
	m.image = ibm
	ibm.module = m
	return nil
}

// AddData appends data objects in order.
func (m *Module) AddData(ds ...*DataObject) {
	m.data = append(m.data, ds...)
}

// Data yields data objects in insertion order.
func (m *Module) Data() iter.Seq[*DataObject] { return slices.Values(m.data) }

func (m *Module) NumData() int { return len(m.data) }

// DataByAddress returns the data objects sorted by address, ties in
// insertion order.
func (m *Module) DataByAddress() []*DataObject {
	out := slices.Clone(m.data)
	slices.SortStableFunc(out, func(a, b *DataObject) int { return cmp.Compare(a.address, b.address) })
	return out
}

// AddSections appends sections in order.
func (m *Module) AddSections(ss ...*Section) {
	m.sections = append(m.sections, ss...)
}

// AddSection creates an empty section and appends it.
func (m *Module) AddSection(c *Context, name string) *Section {
	s := NewSection(c, name)
	m.sections = append(m.sections, s)
	return s
}

func (m *Module) Sections() iter.Seq[*Section] { return slices.Values(m.sections) }

func (m *Module) NumSections() int { return len(m.sections) }

// SectionsByAddress returns sections sorted by address; sections without an
// address sort first.
func (m *Module) SectionsByAddress() []*Section {
	out := slices.Clone(m.sections)
	slices.SortStableFunc(out, func(a, b *Section) int {
		aa, aok := a.Address()
		ba, bok := b.Address()
		if aok != bok {
			if aok {
				return 1
			}
			return -1
		}
		return cmp.Compare(aa, ba)
	})
	return out
}

// AddProxyBlock creates a proxy block owned by the module.
func (m *Module) AddProxyBlock(c *Context) *ProxyBlock {
	p := NewProxyBlock(c)
	m.proxies = append(m.proxies, p)
	return p
}

// AttachProxyBlocks makes the module the owner of existing proxies.
func (m *Module) AttachProxyBlocks(ps ...*ProxyBlock) {
	m.proxies = append(m.proxies, ps...)
}

func (m *Module) ProxyBlocks() iter.Seq[*ProxyBlock] { return slices.Values(m.proxies) }

// AddSymbols appends symbols. Duplicates are kept.
func (m *Module) AddSymbols(ss ...*Symbol) {
	m.symbols = append(m.symbols, ss...)
	m.symValid = false
}

// AddSymbol creates an unbound extern symbol in the module.
func (m *Module) AddSymbol(c *Context, name string) *Symbol {
	s := NewSymbol(c, name)
	m.AddSymbols(s)
	return s
}

func (m *Module) NumSymbols() int { return len(m.symbols) }

// Symbols yields symbols without an address first, in insertion order, then
// the others by ascending address, insertion order among equal addresses.
func (m *Module) Symbols() iter.Seq[*Symbol] {
	return func(yield func(*Symbol) bool) {
		for _, s := range m.symbols {
			if _, ok := s.Address(); !ok && !yield(s) {
				return
			}
		}
		for _, e := range m.symbolIndex() {
			if !yield(e.sym) {
				return
			}
		}
	}
}

// FindSymbols yields every symbol whose effective address equals a.
func (m *Module) FindSymbols(a Addr) iter.Seq[*Symbol] {
	idx := m.symbolIndex()
	i := sort.Search(len(idx), func(i int) bool { return idx[i].addr >= a })
	return func(yield func(*Symbol) bool) {
		for j := i; j < len(idx) && idx[j].addr == a; j++ {
			if !yield(idx[j].sym) {
				return
			}
		}
	}
}

func (m *Module) symbolIndex() []symbolEntry {
	epoch := m.arenaEpoch()
	if m.symValid && m.symEpoch == epoch {
		return m.symIndex
	}
	idx := make([]symbolEntry, 0, len(m.symbols))
	for _, s := range m.symbols {
		if a, ok := s.Address(); ok {
			idx = append(idx, symbolEntry{addr: a, sym: s})
		}
	}
	slices.SortStableFunc(idx, func(x, y symbolEntry) int { return cmp.Compare(x.addr, y.addr) })
	m.symIndex, m.symEpoch, m.symValid = idx, epoch, true
	return idx
}

func (m *Module) arenaEpoch() uint64 {
	if m.ctx == nil {
		return 0
	}
	return m.ctx.epoch
}

// AddSymbolicExpression stores e at a, replacing any existing entry.
func (m *Module) AddSymbolicExpression(a Addr, e SymbolicExpression) {
	m.symExprs[a] = e
}

// FindSymbolicExpression returns the expression stored exactly at a.
func (m *Module) FindSymbolicExpression(a Addr) (SymbolicExpression, bool) {
	e, ok := m.symExprs[a]
	return e, ok
}

// RemoveSymbolicExpression deletes the entry at a and reports whether it
// existed.
func (m *Module) RemoveSymbolicExpression(a Addr) bool {
	if _, ok := m.symExprs[a]; !ok {
		return false
	}
	delete(m.symExprs, a)
	return true
}

func (m *Module) NumSymbolicExpressions() int { return len(m.symExprs) }

// SymbolicExpressions yields entries by ascending address.
func (m *Module) SymbolicExpressions() iter.Seq2[Addr, SymbolicExpression] {
	return func(yield func(Addr, SymbolicExpression) bool) {
		for _, a := range slices.Sorted(maps.Keys(m.symExprs)) {
			if !yield(a, m.symExprs[a]) {
				return
			}
		}
	}
}

// HasPreferredAddr reports whether m prefers to load at a.
func HasPreferredAddr(m *Module, a Addr) bool { return m.preferredAddr == a }

// ContainsAddr reports whether a lies inside m's image byte map.
func ContainsAddr(m *Module, a Addr) bool { return m.ImageByteMap().Contains(a) }
