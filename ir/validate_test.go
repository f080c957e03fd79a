package ir

import (
	"errors"
	"testing"
)

func TestValidateAcceptsWellFormedModule(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	bi := m.AddSection(c, ".text").AddByteInterval(c, 0, 4)
	b, err := bi.AddCodeBlock(c, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	m.CFG().AddBlock(b)
	m.AddSymbols(NewSymbolFor(c, b, "f"))
	if err := Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := NewContext()
	m := NewModule(c, "m")
	bi := m.AddSection(c, ".text").AddByteInterval(c, 0, 4)
	b, err := bi.AddCodeBlock(c, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	b.SetSize(8)
	stray := NewSymbol(c, "stray")
	m.AddSymbolicExpression(0, SymAddrConst{Sym: stray})

	err = Validate(m)
	var iv *InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("oversized block not reported: %v", err)
	}
	var ie *IdentityError
	if !errors.As(err, &ie) || ie.UUID != stray.UUID() {
		t.Fatalf("foreign symbol not reported: %v", err)
	}
}
