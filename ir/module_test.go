package ir

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestModuleKeepsInsertionOrder(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	hi := NewDataObject(c, 0x20, 1)
	lo := NewDataObject(c, 0x10, 1)
	m.AddData(hi, lo)
	if got := slices.Collect(m.Data()); !slices.Equal(got, []*DataObject{hi, lo}) {
		t.Fatalf("Data not in insertion order")
	}
	if got := m.DataByAddress(); !slices.Equal(got, []*DataObject{lo, hi}) {
		t.Fatalf("DataByAddress not sorted")
	}

	empty := m.AddSection(c, ".empty")
	late := m.AddSection(c, ".late")
	late.AddByteInterval(c, 0x9000, 1)
	early := m.AddSection(c, ".early")
	early.AddByteInterval(c, 0x1000, 1)
	if got := m.SectionsByAddress(); !slices.Equal(got, []*Section{empty, early, late}) {
		t.Fatalf("SectionsByAddress order wrong")
	}
	if m.NumSections() != 3 {
		t.Fatalf("expected 3 sections, got %d", m.NumSections())
	}
}

func TestModuleSymbolicExpressions(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	s := m.AddSymbol(c, "target")
	m.AddSymbolicExpression(0x30, SymAddrConst{Offset: 1, Sym: s})
	m.AddSymbolicExpression(0x10, SymStackConst{Offset: -8, Sym: s})
	m.AddSymbolicExpression(0x30, SymAddrConst{Offset: 2, Sym: s})

	if m.NumSymbolicExpressions() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.NumSymbolicExpressions())
	}
	e, ok := m.FindSymbolicExpression(0x30)
	if !ok || e.(SymAddrConst).Offset != 2 {
		t.Fatalf("entry at 0x30 not replaced: %v", e)
	}
	var addrs []Addr
	for a := range m.SymbolicExpressions() {
		addrs = append(addrs, a)
	}
	if !slices.Equal(addrs, []Addr{0x10, 0x30}) {
		t.Fatalf("addresses = %v", addrs)
	}
	if !m.RemoveSymbolicExpression(0x10) || m.RemoveSymbolicExpression(0x10) {
		t.Fatalf("RemoveSymbolicExpression reported wrong result")
	}
}

func TestImageByteMap(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	img := m.ImageByteMap()
	if err := img.SetAddrMinMax(0x100, 0x110); err != nil {
		t.Fatalf("SetAddrMinMax: %v", err)
	}
	if err := img.SetData(0x108, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := img.SetData(0x10e, []byte{1, 2, 3}); err == nil {
		t.Fatalf("write past the end accepted")
	}

	// shrinking from below keeps the overlapping bytes
	if err := img.SetAddrMinMax(0x104, 0x110); err != nil {
		t.Fatal(err)
	}
	got, err := img.Data(0x108, 4)
	if err != nil || !slices.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("Data = %v, %v", got, err)
	}
	if _, err := img.Data(0x100, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read outside the span: %v", err)
	}
	if err := img.SetAddrMinMax(0x10, 0x1); err == nil {
		t.Fatalf("inverted span accepted")
	}
	if !ContainsAddr(m, 0x10f) || ContainsAddr(m, 0x110) {
		t.Fatalf("ContainsAddr is off by one")
	}
}

func TestSetImageByteMapTransfersOwnership(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	other := NewModule(c, "other")
	old := m.ImageByteMap()
	if old.Module() != m {
		t.Fatalf("new module does not own its map")
	}

	if err := m.SetImageByteMap(other.ImageByteMap()); err == nil {
		t.Fatalf("map of another module accepted")
	}
	if err := m.SetImageByteMap(nil); err == nil {
		t.Fatalf("nil map accepted")
	}

	img := NewImageByteMap(c)
	if img.Module() != nil {
		t.Fatalf("new map should be detached")
	}
	if err := img.SetAddrMinMax(0x400, 0x410); err != nil {
		t.Fatal(err)
	}
	if err := m.SetImageByteMap(img); err != nil {
		t.Fatalf("SetImageByteMap: %v", err)
	}
	if m.ImageByteMap() != img || img.Module() != m || old.Module() != nil {
		t.Fatalf("ownership not transferred")
	}
	if err := m.SetImageByteMap(img); err != nil {
		t.Fatalf("reinstalling the owned map: %v", err)
	}
	if err := other.SetImageByteMap(old); err != nil {
		t.Fatalf("detached map rejected: %v", err)
	}

	out, _ := roundTripModule(t, m)
	if lo, hi := out.ImageByteMap().AddrMinMax(); lo != 0x400 || hi != 0x410 {
		t.Fatalf("installed map lost in round trip: %s..%s", lo, hi)
	}
	if out.ImageByteMap().Module() != out {
		t.Fatalf("decoded map not owned by its module")
	}
}

func TestAuxDataSchemas(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	if _, err := GetAux(m, CommentsAux); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing table: %v", err)
	}
	want := map[Addr]string{0x10: "entry", 0x20: "loop"}
	if err := PutAux(m, CommentsAux, want); err != nil {
		t.Fatalf("PutAux: %v", err)
	}
	got, err := GetAux(m, CommentsAux)
	if err != nil {
		t.Fatalf("GetAux: %v", err)
	}
	if len(got) != 2 || got[0x10] != "entry" || got[0x20] != "loop" {
		t.Fatalf("GetAux = %v", got)
	}

	wrong := AuxSchema[map[string]Addr]{Name: CommentsAux.Name, TypeName: "mapping<string,Addr>"}
	if _, err := GetAux(m, wrong); err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("type name mismatch not detected: %v", err)
	}
	if names := m.AuxDataNames(); !slices.Equal(names, []string{"comments"}) {
		t.Fatalf("AuxDataNames = %v", names)
	}
}

func TestIRFindModule(t *testing.T) {
	c := NewContext()
	r := NewIR(c)
	a := r.AddModule(c, "a")
	r.AddModule(c, "b")
	if m, ok := r.FindModule("a"); !ok || m != a {
		t.Fatalf("FindModule(a) failed")
	}
	if _, ok := r.FindModule("zzz"); ok {
		t.Fatalf("unknown module found")
	}
	if r.Version() != Version || r.NumModules() != 2 {
		t.Fatalf("version %d, %d modules", r.Version(), r.NumModules())
	}
}
