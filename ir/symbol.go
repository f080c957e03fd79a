package ir

// StorageKind is the linkage class of a symbol.
type StorageKind uint8

const (
	StorageUndefined StorageKind = iota
	StorageStatic
	StorageExtern
	StorageLocal
)

func (k StorageKind) String() string {
	switch k {
	case StorageStatic:
		return "static"
	case StorageExtern:
		return "extern"
	case StorageLocal:
		return "local"
	default:
		return "undefined"
	}
}

// Symbol names either an explicit address or a block (its referent), never
// both. Setting one clears the other.
type Symbol struct {
	nodeBase
	name       string
	address    Addr
	hasAddress bool
	storage    StorageKind
	referent   Block
}

// NewSymbol creates an unbound extern symbol.
func NewSymbol(c *Context, name string) *Symbol {
	return register(c, &Symbol{name: name, storage: StorageExtern})
}

// NewSymbolAt creates an extern symbol with an explicit address.
func NewSymbolAt(c *Context, a Addr, name string) *Symbol {
	s := NewSymbol(c, name)
	s.address, s.hasAddress = a, true
	return s
}

// NewSymbolFor creates an extern symbol bound to ref.
func NewSymbolFor(c *Context, ref Block, name string) *Symbol {
	s := NewSymbol(c, name)
	s.referent = normalizeBlock(ref)
	return s
}

func (s *Symbol) Name() string { return s.name }

func (s *Symbol) SetName(name string) { s.name = name }

func (s *Symbol) StorageKind() StorageKind { return s.storage }

func (s *Symbol) SetStorageKind(k StorageKind) { s.storage = k }

// Address is the referent's address when one is bound, otherwise the
// explicit address if any.
func (s *Symbol) Address() (Addr, bool) {
	if s.referent != nil {
		return s.referent.Address()
	}
	return s.address, s.hasAddress
}

// SetAddress gives the symbol an explicit address and unbinds its referent.
func (s *Symbol) SetAddress(a Addr) {
	s.referent = nil
	s.address, s.hasAddress = a, true
	s.ctx.touch()
}

// ClearAddress drops the explicit address.
func (s *Symbol) ClearAddress() {
	s.address, s.hasAddress = 0, false
	s.ctx.touch()
}

// HasExplicitAddress reports whether the address was set directly.
func (s *Symbol) HasExplicitAddress() bool { return s.hasAddress }

// Referent returns the bound block or nil.
func (s *Symbol) Referent() Block { return s.referent }

// SetReferent binds b and discards any explicit address. A nil b unbinds.
func (s *Symbol) SetReferent(b Block) {
	s.referent = normalizeBlock(b)
	s.address, s.hasAddress = 0, false
	s.ctx.touch()
}

// ClearReferent unbinds the referent; the address stays absent until set.
func (s *Symbol) ClearReferent() { s.SetReferent(nil) }

func (s *Symbol) CodeBlock() *CodeBlock {
	b, _ := s.referent.(*CodeBlock)
	return b
}

func (s *Symbol) DataBlock() *DataBlock {
	b, _ := s.referent.(*DataBlock)
	return b
}

func (s *Symbol) ProxyBlock() *ProxyBlock {
	b, _ := s.referent.(*ProxyBlock)
	return b
}

// normalizeBlock turns typed nil pointers into an untyped nil.
func normalizeBlock(b Block) Block {
	switch v := b.(type) {
	case *CodeBlock:
		if v == nil {
			return nil
		}
	case *DataBlock:
		if v == nil {
			return nil
		}
	case *ProxyBlock:
		if v == nil {
			return nil
		}
	}
	return b
}
