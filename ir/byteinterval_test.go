package ir

import (
	"errors"
	"testing"
)

func TestByteIntervalBlockPlacement(t *testing.T) {
	c := NewContext()
	s := NewSection(c, ".text")
	bi := s.AddByteInterval(c, 0x400000, 10)
	d, err := bi.AddDataBlock(c, 0, 1)
	if err != nil {
		t.Fatalf("AddDataBlock: %v", err)
	}
	code, err := bi.AddCodeBlock(c, 1, 2)
	if err != nil {
		t.Fatalf("AddCodeBlock: %v", err)
	}
	if a, ok := code.Address(); !ok || a != 0x400001 {
		t.Fatalf("code block address = %v, %v", a, ok)
	}
	if code.Interval() != bi || d.Interval() != bi || bi.Section() != s {
		t.Fatalf("ownership links not set")
	}
	if bi.NumBlocks() != 2 {
		t.Fatalf("expected 2 blocks, got %d", bi.NumBlocks())
	}
	var codes int
	for range bi.CodeBlocks() {
		codes++
	}
	if codes != 1 {
		t.Fatalf("expected 1 code block, got %d", codes)
	}

	if at := bi.BlocksAt(0x400001); len(at) != 1 || at[0] != Block(code) {
		t.Fatalf("BlocksAt = %v", at)
	}
	if on := bi.BlocksOn(0x400002); len(on) != 1 || on[0] != Block(code) {
		t.Fatalf("BlocksOn = %v", on)
	}
	if on := bi.BlocksOn(0x400003); len(on) != 0 {
		t.Fatalf("BlocksOn past the end = %v", on)
	}
}

func TestByteIntervalRejectsOutOfBounds(t *testing.T) {
	c := NewContext()
	bi := NewByteInterval(c, 0, 4)
	if _, err := bi.AddCodeBlock(c, 3, 2); err == nil {
		t.Fatalf("expected bounds error")
	}
	var iv *InvariantViolation
	if _, err := bi.AddDataBlock(c, 5, 0); !errors.As(err, &iv) {
		t.Fatalf("expected *InvariantViolation, got %v", err)
	}
	if _, err := bi.AddDataBlock(c, 4, 0); err != nil {
		t.Fatalf("empty block at the end should fit: %v", err)
	}
}

func TestByteIntervalContents(t *testing.T) {
	c := NewContext()
	bi := NewByteInterval(c, 0x10, 8)
	if err := bi.SetContents([]byte{1, 2, 3}); err != nil {
		t.Fatalf("SetContents: %v", err)
	}
	if bi.InitializedSize() != 3 || bi.Size() != 8 {
		t.Fatalf("sizes = %d/%d", bi.InitializedSize(), bi.Size())
	}
	if err := bi.SetSize(2); err == nil {
		t.Fatalf("shrinking below initialized bytes should fail")
	}
	if err := bi.SetContents(make([]byte, 9)); err == nil {
		t.Fatalf("contents larger than the interval should fail")
	}
	if !bi.Contains(0x17) || bi.Contains(0x18) {
		t.Fatalf("Contains is off by one")
	}
}

func TestBlockAddressFollowsInterval(t *testing.T) {
	c := NewContext()
	bi := NewByteInterval(c, 0x1000, 16)
	b, err := bi.AddCodeBlock(c, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	bi.SetAddress(0x2000)
	if a, _ := b.Address(); a != 0x2004 {
		t.Fatalf("expected 0x2004, got %s", a)
	}
	bi.ClearAddress()
	if _, ok := b.Address(); ok {
		t.Fatalf("block in unaddressed interval has an address")
	}
	if _, ok := NewCodeBlock(c, 1).Address(); ok {
		t.Fatalf("detached block has an address")
	}
}

func TestSectionExtent(t *testing.T) {
	c := NewContext()
	s := NewSection(c, ".data")
	if _, ok := s.Address(); ok {
		t.Fatalf("empty section has an address")
	}
	s.AddByteInterval(c, 0x3000, 0x10)
	s.AddByteInterval(c, 0x2000, 0x08)
	a, _ := s.Address()
	size, _ := s.Size()
	if a != 0x2000 || size != 0x1010 {
		t.Fatalf("extent = %s+%#x", a, size)
	}
	free := NewByteInterval(c, 0x4000, 1)
	if err := s.AttachByteIntervals(free); err != nil {
		t.Fatalf("AttachByteIntervals: %v", err)
	}
	if err := NewSection(c, ".bss").AttachByteIntervals(free); err == nil {
		t.Fatalf("interval attached to two sections")
	}
	if got := (SectionReadable | SectionWritable).String(); got != "r,w" {
		t.Fatalf("flags string = %q", got)
	}
}
