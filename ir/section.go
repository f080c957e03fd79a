package ir

import (
	"iter"
	"slices"
	"strings"
)

// SectionFlags describe loader-visible attributes of a section.
type SectionFlags uint32

const (
	SectionReadable SectionFlags = 1 << iota
	SectionWritable
	SectionExecutable
	SectionLoaded
	SectionInitialized
	SectionThreadLocal
)

func (f SectionFlags) String() string {
	if f == 0 {
		return "-"
	}
	labels := make([]string, 0, 6)
	for _, e := range []struct {
		bit  SectionFlags
		name string
	}{
		{SectionReadable, "r"},
		{SectionWritable, "w"},
		{SectionExecutable, "x"},
		{SectionLoaded, "loaded"},
		{SectionInitialized, "init"},
		{SectionThreadLocal, "tls"},
	} {
		if f&e.bit != 0 {
			labels = append(labels, e.name)
		}
	}
	return strings.Join(labels, ",")
}

// Section is a named group of byte intervals.
type Section struct {
	nodeBase
	name      string
	flags     SectionFlags
	intervals []*ByteInterval
}

func NewSection(c *Context, name string) *Section {
	return register(c, &Section{name: name})
}

func (s *Section) Name() string { return s.name }

func (s *Section) SetName(name string) { s.name = name }

func (s *Section) Flags() SectionFlags { return s.flags }

func (s *Section) SetFlags(f SectionFlags) { s.flags = f }

// AddByteInterval creates an interval of size bytes at addr in the section.
func (s *Section) AddByteInterval(c *Context, addr Addr, size uint64) *ByteInterval {
	bi := NewByteInterval(c, addr, size)
	bi.section = s
	s.intervals = append(s.intervals, bi)
	return bi
}

// AttachByteIntervals moves existing free-standing intervals into the section.
func (s *Section) AttachByteIntervals(bis ...*ByteInterval) error {
	for _, bi := range bis {
		if bi.section != nil {
			return invariantf("byte interval %s already belongs to section %q", bi.uuid, bi.section.name)
		}
	}
	for _, bi := range bis {
		bi.section = s
		s.intervals = append(s.intervals, bi)
	}
	return nil
}

func (s *Section) ByteIntervals() iter.Seq[*ByteInterval] {
	return slices.Values(s.intervals)
}

func (s *Section) NumByteIntervals() int { return len(s.intervals) }

// Address is the lowest interval address. It is absent when the section is
// empty or any interval has no address.
func (s *Section) Address() (Addr, bool) {
	lo, _, ok := s.extent()
	return lo, ok
}

// Size spans from Address to the end of the highest interval.
func (s *Section) Size() (uint64, bool) {
	lo, hi, ok := s.extent()
	return hi - uint64(lo), ok
}

func (s *Section) extent() (Addr, uint64, bool) {
	if len(s.intervals) == 0 {
		return 0, 0, false
	}
	var lo Addr
	var hi uint64
	for i, bi := range s.intervals {
		a, ok := bi.Address()
		if !ok {
			return 0, 0, false
		}
		end := uint64(a) + bi.size
		if i == 0 || a < lo {
			lo = a
		}
		if end > hi {
			hi = end
		}
	}
	return lo, hi, true
}
