package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// ImageByteMap holds the raw loaded bytes of a module and the address span
// they cover. Every Module owns exactly one.
type ImageByteMap struct {
	nodeBase
	module     *Module // nil while detached
	fileName   string
	baseAddr   Addr
	entryPoint Addr
	relocated  bool
	minAddr    Addr
	maxAddr    Addr // exclusive
	data       []byte
}

// NewImageByteMap creates a detached map. Install it with
// Module.SetImageByteMap.
func NewImageByteMap(c *Context) *ImageByteMap {
	return register(c, &ImageByteMap{})
}

// Module returns the owning module, or nil for a detached map.
func (m *ImageByteMap) Module() *Module { return m.module }

func (m *ImageByteMap) FileName() string { return m.fileName }

func (m *ImageByteMap) SetFileName(name string) { m.fileName = name }

func (m *ImageByteMap) BaseAddress() Addr { return m.baseAddr }

func (m *ImageByteMap) SetBaseAddress(a Addr) { m.baseAddr = a }

func (m *ImageByteMap) EntryPointAddress() Addr { return m.entryPoint }

func (m *ImageByteMap) SetEntryPointAddress(a Addr) { m.entryPoint = a }

func (m *ImageByteMap) IsRelocated() bool { return m.relocated }

func (m *ImageByteMap) SetRelocated(v bool) { m.relocated = v }

// AddrMinMax returns the covered span [lo, hi).
func (m *ImageByteMap) AddrMinMax() (lo, hi Addr) { return m.minAddr, m.maxAddr }

// SetAddrMinMax changes the covered span. Bytes inside both the old and the
// new span are kept; newly covered bytes read as zero.
func (m *ImageByteMap) SetAddrMinMax(lo, hi Addr) error {
	if lo > hi {
		return invariantf("image span %s..%s is inverted", lo, hi)
	}
	n, err := safecast.Conv[int](uint64(hi - lo))
	if err != nil {
		return invariantf("image span %s..%s too large: %v", lo, hi, err)
	}
	data := make([]byte, n)
	if olo, ohi := max(lo, m.minAddr), min(hi, m.maxAddr); olo < ohi {
		copy(data[olo-lo:ohi-lo], m.data[olo-m.minAddr:ohi-m.minAddr])
	}
	m.minAddr, m.maxAddr, m.data = lo, hi, data
	return nil
}

// Contains reports whether a lies inside the covered span.
func (m *ImageByteMap) Contains(a Addr) bool {
	return a >= m.minAddr && a < m.maxAddr
}

// SetData copies b into the image starting at a. The whole write must fit in
// the covered span.
func (m *ImageByteMap) SetData(a Addr, b []byte) error {
	if !m.fits(a, uint64(len(b))) {
		return invariantf("write of %d bytes at %s outside image span %s..%s", len(b), a, m.minAddr, m.maxAddr)
	}
	copy(m.data[a-m.minAddr:], b)
	return nil
}

// Data returns a copy of n bytes starting at a.
func (m *ImageByteMap) Data(a Addr, n uint64) ([]byte, error) {
	if !m.fits(a, n) {
		return nil, &LookupError{What: "image bytes", Key: fmt.Sprintf("%s+%d", a, n)}
	}
	start := uint64(a - m.minAddr)
	out := make([]byte, n)
	copy(out, m.data[start:start+n])
	return out, nil
}

func (m *ImageByteMap) fits(a Addr, n uint64) bool {
	if n == 0 {
		return a >= m.minAddr && a <= m.maxAddr
	}
	return m.Contains(a) && n <= uint64(m.maxAddr-a)
}
