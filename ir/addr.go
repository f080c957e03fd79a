package ir

import "fmt"

// Addr is a virtual address within a loaded image.
type Addr uint64

func (a Addr) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Add offsets the address by a signed delta, wrapping like the hardware would.
func (a Addr) Add(delta int64) Addr {
	return Addr(uint64(a) + uint64(delta))
}

// span reports whether x lies in [start, start+size).
func span(start Addr, size uint64, x Addr) bool {
	return x >= start && uint64(x-start) < size
}
