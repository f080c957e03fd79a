package ir

import (
	"iter"
	"slices"
)

// ByteInterval is a contiguous byte range of a section. Code and data
// blocks live in it at fixed offsets.
type ByteInterval struct {
	nodeBase
	section    *Section
	address    Addr
	hasAddress bool
	size       uint64
	contents   []byte
	blocks     []Block
}

// NewByteInterval creates an interval of size bytes starting at addr.
func NewByteInterval(c *Context, addr Addr, size uint64) *ByteInterval {
	return register(c, &ByteInterval{address: addr, hasAddress: true, size: size})
}

// Section is the owning section, or nil for a free-standing interval.
func (bi *ByteInterval) Section() *Section { return bi.section }

func (bi *ByteInterval) Address() (Addr, bool) { return bi.address, bi.hasAddress }

func (bi *ByteInterval) SetAddress(a Addr) {
	bi.address, bi.hasAddress = a, true
	bi.ctx.touch()
}

// ClearAddress marks the interval as not yet placed in memory.
func (bi *ByteInterval) ClearAddress() {
	bi.address, bi.hasAddress = 0, false
	bi.ctx.touch()
}

func (bi *ByteInterval) Size() uint64 { return bi.size }

// SetSize resizes the interval; it may not drop below the initialized bytes.
func (bi *ByteInterval) SetSize(size uint64) error {
	if uint64(len(bi.contents)) > size {
		return invariantf("byte interval size %d below initialized size %d", size, len(bi.contents))
	}
	bi.size = size
	return nil
}

// Contents returns the initialized bytes. Bytes past InitializedSize up to
// Size are zero-filled at load time.
func (bi *ByteInterval) Contents() []byte { return bi.contents }

func (bi *ByteInterval) InitializedSize() uint64 { return uint64(len(bi.contents)) }

func (bi *ByteInterval) SetContents(data []byte) error {
	if uint64(len(data)) > bi.size {
		return invariantf("%d initialized bytes exceed byte interval size %d", len(data), bi.size)
	}
	bi.contents = slices.Clone(data)
	return nil
}

// Contains reports whether a falls inside the interval.
func (bi *ByteInterval) Contains(a Addr) bool {
	return bi.hasAddress && span(bi.address, bi.size, a)
}

// AddCodeBlock creates a code block at offset inside the interval.
func (bi *ByteInterval) AddCodeBlock(c *Context, offset, size uint64) (*CodeBlock, error) {
	if err := bi.checkBounds(offset, size); err != nil {
		return nil, err
	}
	b := NewCodeBlock(c, size)
	bi.place(b, &b.placement, offset)
	return b, nil
}

// AddDataBlock creates a data block at offset inside the interval.
func (bi *ByteInterval) AddDataBlock(c *Context, offset, size uint64) (*DataBlock, error) {
	if err := bi.checkBounds(offset, size); err != nil {
		return nil, err
	}
	b := NewDataBlock(c, size)
	bi.place(b, &b.placement, offset)
	return b, nil
}

func (bi *ByteInterval) checkBounds(offset, size uint64) error {
	if offset > bi.size || size > bi.size-offset {
		return invariantf("block [%d,+%d) outside byte interval of size %d", offset, size, bi.size)
	}
	return nil
}

func (bi *ByteInterval) place(b Block, p *placement, offset uint64) {
	p.interval = bi
	p.offset = offset
	bi.blocks = append(bi.blocks, b)
	bi.ctx.touch()
}

func (bi *ByteInterval) NumBlocks() int { return len(bi.blocks) }

// Blocks yields code and data blocks in insertion order.
func (bi *ByteInterval) Blocks() iter.Seq[Block] {
	return slices.Values(bi.blocks)
}

func (bi *ByteInterval) CodeBlocks() iter.Seq[*CodeBlock] {
	return blocksOf[*CodeBlock](bi.blocks)
}

func (bi *ByteInterval) DataBlocks() iter.Seq[*DataBlock] {
	return blocksOf[*DataBlock](bi.blocks)
}

// BlocksAt returns the blocks that start exactly at a.
func (bi *ByteInterval) BlocksAt(a Addr) []Block {
	var out []Block
	for _, b := range bi.blocks {
		if start, ok := b.Address(); ok && start == a {
			out = append(out, b)
		}
	}
	return out
}

// BlocksOn returns the blocks whose extent covers a.
func (bi *ByteInterval) BlocksOn(a Addr) []Block {
	var out []Block
	for _, b := range bi.blocks {
		if start, ok := b.Address(); ok && span(start, b.Size(), a) {
			out = append(out, b)
		}
	}
	return out
}

func blocksOf[T Block](blocks []Block) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, b := range blocks {
			if t, ok := b.(T); ok && !yield(t) {
				return
			}
		}
	}
}
