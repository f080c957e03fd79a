package ir

// SymbolicExpression describes an operand or datum computed from symbols.
// It is implemented by SymAddrConst, SymAddrAddr and SymStackConst.
type SymbolicExpression interface {
	// Symbols lists the symbols the expression refers to.
	Symbols() []*Symbol

	isSymbolicExpression()
}

// SymAddrConst is Sym + Offset.
type SymAddrConst struct {
	Offset int64
	Sym    *Symbol
}

// SymAddrAddr is (Sym1 - Sym2) / Scale + Offset.
type SymAddrAddr struct {
	Scale  int64
	Offset int64
	Sym1   *Symbol
	Sym2   *Symbol
}

// SymStackConst is a stack slot: Sym + Offset relative to the frame.
type SymStackConst struct {
	Offset int64
	Sym    *Symbol
}

func (e SymAddrConst) Symbols() []*Symbol  { return []*Symbol{e.Sym} }
func (e SymAddrAddr) Symbols() []*Symbol   { return []*Symbol{e.Sym1, e.Sym2} }
func (e SymStackConst) Symbols() []*Symbol { return []*Symbol{e.Sym} }

func (SymAddrConst) isSymbolicExpression()  {}
func (SymAddrAddr) isSymbolicExpression()   {}
func (SymStackConst) isSymbolicExpression() {}
