package ir

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/google/uuid"

	"binir/ir/wire"
)

func roundTripModule(t *testing.T, m *Module) (*Module, *Context) {
	t.Helper()
	msg, err := EncodeModule(m)
	if err != nil {
		t.Fatalf("EncodeModule: %v", err)
	}
	data, err := wire.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back wire.Module
	if err := wire.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	c := NewContext()
	out, err := DecodeModule(c, &back)
	if err != nil {
		t.Fatalf("DecodeModule: %v", err)
	}
	return out, c
}

func TestSymbolRoundTripWithAddress(t *testing.T) {
	c := NewContext()
	s := NewSymbolAt(c, 2, "test")
	msg := EncodeSymbol(s)
	data, err := wire.Marshal(&msg)
	if err != nil {
		t.Fatal(err)
	}
	var back wire.Symbol
	if err := wire.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}

	c2 := NewContext()
	got, err := DecodeSymbol(c2, &back)
	if err != nil {
		t.Fatalf("DecodeSymbol: %v", err)
	}
	if got.Name() != "test" || got.StorageKind() != StorageExtern {
		t.Fatalf("got %q/%s", got.Name(), got.StorageKind())
	}
	if a, ok := got.Address(); !ok || a != 2 {
		t.Fatalf("address = %s, %v", a, ok)
	}
	if got.Referent() != nil {
		t.Fatalf("unexpected referent")
	}
	if got.UUID() != s.UUID() {
		t.Fatalf("identity not restored")
	}
	if n, ok := c2.FindNode(s.UUID()); !ok || n != Node(got) {
		t.Fatalf("decoded symbol not registered under its uuid")
	}
}

func TestSymbolReferentSurvivesModuleRoundTrip(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	bi := m.AddSection(c, ".data").AddByteInterval(c, 0, 10)
	d, err := bi.AddDataBlock(c, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bi.AddCodeBlock(c, 1, 2); err != nil {
		t.Fatal(err)
	}
	sym := NewSymbolFor(c, d, "d")
	m.AddSymbols(sym)

	out, _ := roundTripModule(t, m)
	syms := slices.Collect(out.Symbols())
	if len(syms) != 1 {
		t.Fatalf("expected one symbol, got %d", len(syms))
	}
	var decoded *DataBlock
	for s := range out.Sections() {
		for bi := range s.ByteIntervals() {
			for b := range bi.DataBlocks() {
				decoded = b
			}
		}
	}
	if decoded == nil {
		t.Fatalf("data block lost")
	}
	if syms[0].DataBlock() != decoded {
		t.Fatalf("referent not rebound to the decoded data block")
	}
	if syms[0].DataBlock().UUID() != d.UUID() {
		t.Fatalf("referent identity changed")
	}
	if syms[0].CodeBlock() != nil {
		t.Fatalf("code block query should be absent")
	}
}

func TestDataObjectsSurviveRoundTrip(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	a := NewDataObject(c, 0x10, 4)
	b := NewDataObject(c, 0x20, 8)
	m.AddData(a, b)

	out, _ := roundTripModule(t, m)
	counts := make(map[uuid.UUID]int)
	for d := range out.Data() {
		counts[d.UUID()]++
	}
	if len(counts) != 2 || counts[a.UUID()] != 1 || counts[b.UUID()] != 1 {
		t.Fatalf("data objects after round trip: %v", counts)
	}
}

func TestModuleRoundTripIsStable(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	m.SetISA(ISAARM)
	m.SetRebaseDelta(-0x100)
	m.Properties().Set("tag", BytesValue{1, 2})
	bi := m.AddSection(c, ".text").AddByteInterval(c, 0x8000, 8)
	code, err := bi.AddCodeBlock(c, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	code.SetDecodeMode(DecodeThumb)
	code.Properties().Set("id", UUIDValue(uuid.New()))
	detached := NewCodeBlock(c, 2)
	proxy := m.AddProxyBlock(c)
	g := m.CFG()
	if err := g.AddEdge(g.AddBlock(code), g.AddBlock(detached)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(g.AddBlock(detached), g.AddBlock(proxy)); err != nil {
		t.Fatal(err)
	}
	f := NewSymbolFor(c, code, "f")
	ext := NewSymbolFor(c, proxy, "ext")
	loose := NewSymbolFor(c, detached, "loose")
	m.AddSymbols(f, ext, loose)
	m.AddSymbolicExpression(0x8002, SymAddrAddr{Scale: 4, Offset: 0, Sym1: f, Sym2: loose})

	before, err := EncodeModule(m)
	if err != nil {
		t.Fatalf("EncodeModule: %v", err)
	}
	out, c2 := roundTripModule(t, m)
	after, err := EncodeModule(out)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("round trip changed the module:\nbefore %+v\nafter  %+v", before, after)
	}

	// structural references point at the decoded nodes, not copies
	g2 := out.CFG()
	if g2.NumVertices() != 3 || g2.NumEdges() != 2 {
		t.Fatalf("cfg shape %d/%d", g2.NumVertices(), g2.NumEdges())
	}
	for b := range g2.Blocks() {
		if n, ok := c2.FindNode(b.UUID()); !ok || n != Node(b) {
			t.Fatalf("cfg vertex %s is not the registered node", b.UUID())
		}
	}
	e, _ := out.FindSymbolicExpression(0x8002)
	aa := e.(SymAddrAddr)
	if aa.Sym2.Referent() == nil || aa.Sym2.Referent().UUID() != detached.UUID() {
		t.Fatalf("symbolic expression symbol lost its referent")
	}
	if mode := aa.Sym1.CodeBlock().DecodeMode(); mode != DecodeThumb {
		t.Fatalf("decode mode = %d", mode)
	}
}

func TestDecodeUnresolvedReferentFails(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	s := NewSymbolFor(c, m.AddProxyBlock(c), "p")
	m.AddSymbols(s)
	msg, err := EncodeModule(m)
	if err != nil {
		t.Fatal(err)
	}
	missing := uuid.New()
	msg.Symbols[0].Referent = wire.UUID(missing)

	target := NewContext()
	out, err := DecodeModule(target, msg)
	if out != nil {
		t.Fatalf("partial module returned")
	}
	var ie *IdentityError
	if !errors.As(err, &ie) || ie.UUID != missing {
		t.Fatalf("expected *IdentityError for %s, got %v", missing, err)
	}
	if target.Len() != 0 {
		t.Fatalf("failed decode left %d nodes in the context", target.Len())
	}
}

func TestDecodeRejectsDuplicateIdentity(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	m.AddData(NewDataObject(c, 1, 1), NewDataObject(c, 2, 1))
	msg, err := EncodeModule(m)
	if err != nil {
		t.Fatal(err)
	}
	msg.Data[1].Node.UUID = msg.Data[0].Node.UUID
	var ie *IdentityError
	if _, err := DecodeModule(NewContext(), msg); !errors.As(err, &ie) {
		t.Fatalf("expected *IdentityError, got %v", err)
	}
}

func TestDecodeSymbolNeedsLiveReferent(t *testing.T) {
	c := NewContext()
	b := NewCodeBlock(c, 1)
	msg := EncodeSymbol(NewSymbolFor(c, b, "f"))

	other := NewContext()
	var ie *IdentityError
	if _, err := DecodeSymbol(other, &msg); !errors.As(err, &ie) {
		t.Fatalf("expected *IdentityError, got %v", err)
	}
	if other.Len() != 0 {
		t.Fatalf("failed decode registered %d nodes", other.Len())
	}

	// once a block with the same identity is live, the referent binds to it
	stand := NewCodeBlock(other, 1)
	stand.SetUUID(b.UUID())
	got, err := DecodeSymbol(other, &msg)
	if err != nil {
		t.Fatalf("DecodeSymbol: %v", err)
	}
	if got.CodeBlock() != stand {
		t.Fatalf("referent bound to %v", got.Referent())
	}
}

func TestEncodeRejectsForeignReferent(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	other := NewModule(c, "other")
	bi := other.AddSection(c, ".text").AddByteInterval(c, 0, 4)
	code, err := bi.AddCodeBlock(c, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	m.AddSymbols(NewSymbolFor(c, code, "foreign"))

	var ie *IdentityError
	if _, err := EncodeModule(m); !errors.As(err, &ie) || ie.UUID != code.UUID() {
		t.Fatalf("expected *IdentityError for foreign block, got %v", err)
	}
	if err := Validate(m); !errors.As(err, &ie) {
		t.Fatalf("Validate missed the foreign referent: %v", err)
	}
}

func TestDecodeIRRestoresModules(t *testing.T) {
	c := NewContext()
	r := NewIR(c)
	r.AddModule(c, "a")
	r.AddModule(c, "b")
	r.AddAuxData("note", AuxData{TypeName: "string", Data: []byte("hi")})
	msg, err := EncodeIR(r)
	if err != nil {
		t.Fatal(err)
	}
	c2 := NewContext()
	out, err := DecodeIR(c2, msg)
	if err != nil {
		t.Fatalf("DecodeIR: %v", err)
	}
	if out.UUID() != r.UUID() || out.NumModules() != 2 {
		t.Fatalf("ir identity or modules lost")
	}
	if m, ok := out.FindModule("b"); !ok || m.ImageByteMap() == nil {
		t.Fatalf("module b lost")
	}
	if d, ok := out.AuxData("note"); !ok || string(d.Data) != "hi" {
		t.Fatalf("ir aux data lost")
	}
	// ir, two modules and their image byte maps
	if c2.Len() != 5 {
		t.Fatalf("expected 5 nodes, got %d", c2.Len())
	}
}

func TestRepeatedEntriesRoundTrip(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	p := m.AddProxyBlock(c)
	m.AttachProxyBlocks(p)
	s := NewSymbolFor(c, p, "dup")
	d := NewDataObject(c, 0x10, 4)
	m.AddSymbols(s, s)
	m.AddData(d, d)
	m.AddSymbolicExpression(0x10, SymAddrConst{Sym: s})
	if err := Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	out, c2 := roundTripModule(t, m)
	syms := slices.Collect(out.Symbols())
	if len(syms) != 2 || syms[0] != syms[1] {
		t.Fatalf("expected the same symbol twice, got %v", syms)
	}
	data := slices.Collect(out.Data())
	if len(data) != 2 || data[0] != data[1] || data[0].UUID() != d.UUID() {
		t.Fatalf("expected the same data object twice, got %v", data)
	}
	proxies := slices.Collect(out.ProxyBlocks())
	if len(proxies) != 2 || proxies[0] != proxies[1] {
		t.Fatalf("expected the same proxy twice, got %v", proxies)
	}
	if syms[0].ProxyBlock() != proxies[0] {
		t.Fatalf("referent not bound to the decoded proxy")
	}
	if e, ok := out.FindSymbolicExpression(0x10); !ok || e.Symbols()[0] != syms[0] {
		t.Fatalf("symbolic expression lost its symbol")
	}
	// symbol, data object, proxy, module and image byte map
	if c2.Len() != 5 {
		t.Fatalf("expected 5 nodes, got %d", c2.Len())
	}
}

func TestDecodeIRSharedSymbol(t *testing.T) {
	c := NewContext()
	r := NewIR(c)
	a := r.AddModule(c, "a")
	b := r.AddModule(c, "b")
	s := NewSymbolAt(c, 0x40, "shared")
	a.AddSymbols(s)
	b.AddSymbols(s)
	msg, err := EncodeIR(r)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeIR(NewContext(), msg)
	if err != nil {
		t.Fatalf("DecodeIR: %v", err)
	}
	ma, _ := out.FindModule("a")
	mb, _ := out.FindModule("b")
	sa := slices.Collect(ma.Symbols())
	sb := slices.Collect(mb.Symbols())
	if len(sa) != 1 || len(sb) != 1 || sa[0] != sb[0] || sa[0].UUID() != s.UUID() {
		t.Fatalf("shared symbol not restored as one node")
	}
}

func TestDecodeIRRejectsBadMessages(t *testing.T) {
	var iv *InvariantViolation
	if _, err := DecodeIR(NewContext(), nil); !errors.As(err, &iv) {
		t.Fatalf("expected *InvariantViolation for nil message, got %v", err)
	}
	msg, err := EncodeIR(NewIR(NewContext()))
	if err != nil {
		t.Fatal(err)
	}
	msg.Version = Version + 1
	c := NewContext()
	if _, err := DecodeIR(c, msg); !errors.As(err, &iv) {
		t.Fatalf("expected *InvariantViolation for version %d, got %v", msg.Version, err)
	}
	if c.Len() != 0 {
		t.Fatalf("rejected message left %d nodes", c.Len())
	}
	if _, err := DecodeModule(NewContext(), nil); !errors.As(err, &iv) {
		t.Fatalf("expected *InvariantViolation for nil module, got %v", err)
	}
}
