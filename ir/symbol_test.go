package ir

import (
	"slices"
	"testing"
)

func TestSymbolReferentExcludesAddress(t *testing.T) {
	c := NewContext()
	s := NewSymbolAt(c, 2, "test")
	if a, ok := s.Address(); !ok || a != 2 {
		t.Fatalf("address = %s, %v", a, ok)
	}
	if s.StorageKind() != StorageExtern {
		t.Fatalf("default storage = %s", s.StorageKind())
	}

	bi := NewByteInterval(c, 0x100, 8)
	d, err := bi.AddDataBlock(c, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	s.SetReferent(d)
	if s.HasExplicitAddress() {
		t.Fatalf("explicit address kept after binding a referent")
	}
	if a, _ := s.Address(); a != 0x104 {
		t.Fatalf("effective address = %s", a)
	}

	s.SetAddress(9)
	if s.Referent() != nil {
		t.Fatalf("referent kept after setting an address")
	}
	if a, ok := s.Address(); !ok || a != 9 {
		t.Fatalf("address = %s, %v", a, ok)
	}
}

func TestSymbolTypedReferentGetters(t *testing.T) {
	c := NewContext()
	d := NewDataBlock(c, 1)
	s := NewSymbolFor(c, d, "d")
	if s.DataBlock() != d {
		t.Fatalf("DataBlock getter missed the referent")
	}
	if s.CodeBlock() != nil || s.ProxyBlock() != nil {
		t.Fatalf("typed getters matched the wrong kind")
	}

	var none *CodeBlock
	s.SetReferent(none)
	if s.Referent() != nil {
		t.Fatalf("typed nil stored as a referent")
	}
	if _, ok := s.Address(); ok {
		t.Fatalf("unbound symbol without explicit address has an address")
	}
}

func referentName() ReferentVisitor[string] {
	return ReferentVisitor[string]{
		Code:  func(*CodeBlock) string { return "code" },
		Data:  func(*DataBlock) string { return "data" },
		Proxy: func(*ProxyBlock) string { return "proxy" },
	}
}

func TestVisitDispatchesOnReferentKind(t *testing.T) {
	c := NewContext()
	cases := []struct {
		ref  Block
		want string
	}{
		{NewCodeBlock(c, 1), "code"},
		{NewDataBlock(c, 1), "data"},
		{NewProxyBlock(c), "proxy"},
	}
	for _, tc := range cases {
		s := NewSymbolFor(c, tc.ref, "s")
		got, ok := Visit(s, referentName())
		if !ok || got != tc.want {
			t.Fatalf("Visit = %q, %v; want %q", got, ok, tc.want)
		}
	}
}

func TestVisitUnboundCallsNothing(t *testing.T) {
	c := NewContext()
	calls := 0
	v := ReferentVisitor[struct{}]{
		Node: func(Node) struct{} { calls++; return struct{}{} },
	}
	if _, ok := Visit(NewSymbolAt(c, 1, "a"), v); ok {
		t.Fatalf("unbound symbol reported a visit")
	}
	if calls != 0 {
		t.Fatalf("handler called %d times", calls)
	}
}

func TestVisitFallsBackToCapability(t *testing.T) {
	c := NewContext()
	var seen []string
	v := ReferentVisitor[struct{}]{
		CFGNode: func(n CFGNode) struct{} { seen = append(seen, "cfg:"+n.Kind().String()); return struct{}{} },
	}
	if _, ok := Visit(NewSymbolFor(c, NewCodeBlock(c, 1), "c"), v); !ok {
		t.Fatalf("code block not visited as a CFG node")
	}
	if _, ok := Visit(NewSymbolFor(c, NewProxyBlock(c), "p"), v); !ok {
		t.Fatalf("proxy block not visited as a CFG node")
	}
	if _, ok := Visit(NewSymbolFor(c, NewDataBlock(c, 1), "d"), v); ok {
		t.Fatalf("data block visited as a CFG node")
	}
	if !slices.Equal(seen, []string{"cfg:code", "cfg:proxy"}) {
		t.Fatalf("visits = %v", seen)
	}

	v.Node = func(n Node) struct{} { seen = append(seen, "node"); return struct{}{} }
	if _, ok := Visit(NewSymbolFor(c, NewDataBlock(c, 1), "d"), v); !ok {
		t.Fatalf("data block not visited as a node")
	}
	if seen[len(seen)-1] != "node" {
		t.Fatalf("visits = %v", seen)
	}
}

func TestVisitPrefersSpecificHandler(t *testing.T) {
	c := NewContext()
	calls := 0
	v := ReferentVisitor[int]{
		Code:    func(*CodeBlock) int { calls++; return 1 },
		CFGNode: func(CFGNode) int { calls++; return 2 },
		Node:    func(Node) int { calls++; return 3 },
	}
	got, ok := Visit(NewSymbolFor(c, NewCodeBlock(c, 1), "c"), v)
	if !ok || got != 1 || calls != 1 {
		t.Fatalf("Visit = %d, %v after %d calls", got, ok, calls)
	}
}

func TestFindSymbolsReturnsDuplicates(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	a := NewSymbolAt(c, 0x10, "a")
	b := NewSymbolAt(c, 0x20, "b")
	a2 := NewSymbolAt(c, 0x10, "a2")
	unplaced := NewSymbol(c, "u")
	m.AddSymbols(a, b, a2, unplaced)

	if got := slices.Collect(m.FindSymbols(0x10)); !slices.Equal(got, []*Symbol{a, a2}) {
		t.Fatalf("FindSymbols(0x10) = %v", names(got))
	}
	if got := slices.Collect(m.FindSymbols(0x30)); len(got) != 0 {
		t.Fatalf("FindSymbols(0x30) = %v", names(got))
	}
	if got := names(slices.Collect(m.Symbols())); !slices.Equal(got, []string{"u", "a", "a2", "b"}) {
		t.Fatalf("Symbols = %v", got)
	}
}

func TestFindSymbolsTracksAddressChanges(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	bi := m.AddSection(c, ".text").AddByteInterval(c, 0x1000, 0x10)
	code, err := bi.AddCodeBlock(c, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSymbolFor(c, code, "f")
	m.AddSymbols(s)
	if got := slices.Collect(m.FindSymbols(0x1000)); len(got) != 1 {
		t.Fatalf("symbol not indexed at its referent's address")
	}

	bi.SetAddress(0x3000)
	if got := slices.Collect(m.FindSymbols(0x1000)); len(got) != 0 {
		t.Fatalf("stale index entry at old address")
	}
	if got := slices.Collect(m.FindSymbols(0x3000)); len(got) != 1 {
		t.Fatalf("symbol not found after moving the interval")
	}

	code.SetOffset(8)
	if got := slices.Collect(m.FindSymbols(0x3008)); len(got) != 1 {
		t.Fatalf("symbol not found after moving the block")
	}

	s.SetAddress(0x40)
	if got := slices.Collect(m.FindSymbols(0x40)); len(got) != 1 {
		t.Fatalf("symbol not found at its explicit address")
	}
}

func names(ss []*Symbol) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Name())
	}
	return out
}
