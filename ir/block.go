package ir

// BlockKind discriminates the three block variants.
type BlockKind uint8

const (
	BlockInvalid BlockKind = iota
	BlockCode
	BlockData
	BlockProxy
)

func (k BlockKind) String() string {
	switch k {
	case BlockCode:
		return "code"
	case BlockData:
		return "data"
	case BlockProxy:
		return "proxy"
	default:
		return "invalid"
	}
}

// Block is a CFG vertex payload and the only thing a Symbol can refer to.
// It is implemented by *CodeBlock, *DataBlock and *ProxyBlock only.
type Block interface {
	Node
	Kind() BlockKind
	Size() uint64
	// Address is absent for proxies and for blocks outside an addressed
	// byte interval.
	Address() (Addr, bool)

	isBlock()
}

// CFGNode is the subset of blocks that carry control flow.
type CFGNode interface {
	Block
	isCFGNode()
}

// DecodeMode selects an alternate instruction decoding, e.g. ARM Thumb.
type DecodeMode uint8

const (
	DecodeDefault DecodeMode = iota
	DecodeThumb
)

// placement is the shared position of code and data blocks in an interval.
type placement struct {
	interval *ByteInterval
	offset   uint64
	size     uint64
}

func (p *placement) Interval() *ByteInterval { return p.interval }

func (p *placement) Offset() uint64 { return p.offset }

func (p *placement) Size() uint64 { return p.size }

func (p *placement) address() (Addr, bool) {
	if p.interval == nil {
		return 0, false
	}
	start, ok := p.interval.Address()
	if !ok {
		return 0, false
	}
	return start.Add(int64(p.offset)), true
}

// CodeBlock is a run of instructions.
type CodeBlock struct {
	nodeBase
	placement
	mode DecodeMode
}

// NewCodeBlock creates a block that does not yet live in any byte interval.
func NewCodeBlock(c *Context, size uint64) *CodeBlock {
	return register(c, &CodeBlock{placement: placement{size: size}})
}

func (b *CodeBlock) Kind() BlockKind { return BlockCode }

func (b *CodeBlock) Address() (Addr, bool) { return b.address() }

func (b *CodeBlock) SetSize(size uint64) { b.size = size }

// SetOffset moves the block inside its interval.
func (b *CodeBlock) SetOffset(off uint64) {
	b.offset = off
	b.ctx.touch()
}

func (b *CodeBlock) DecodeMode() DecodeMode { return b.mode }

func (b *CodeBlock) SetDecodeMode(m DecodeMode) { b.mode = m }

func (*CodeBlock) isBlock()   {}
func (*CodeBlock) isCFGNode() {}

// DataBlock is a run of bytes that are not executed.
type DataBlock struct {
	nodeBase
	placement
}

// NewDataBlock creates a block that does not yet live in any byte interval.
func NewDataBlock(c *Context, size uint64) *DataBlock {
	return register(c, &DataBlock{placement: placement{size: size}})
}

func (b *DataBlock) Kind() BlockKind { return BlockData }

func (b *DataBlock) Address() (Addr, bool) { return b.address() }

func (b *DataBlock) SetSize(size uint64) { b.size = size }

func (b *DataBlock) SetOffset(off uint64) {
	b.offset = off
	b.ctx.touch()
}

func (*DataBlock) isBlock() {}

// ProxyBlock stands for a target outside the module, such as an imported
// function. It has neither bytes nor an address.
type ProxyBlock struct {
	nodeBase
}

func NewProxyBlock(c *Context) *ProxyBlock {
	return register(c, &ProxyBlock{})
}

func (*ProxyBlock) Kind() BlockKind { return BlockProxy }

func (*ProxyBlock) Size() uint64 { return 0 }

func (*ProxyBlock) Address() (Addr, bool) { return 0, false }

func (*ProxyBlock) isBlock()   {}
func (*ProxyBlock) isCFGNode() {}
