// Package bus is the host side of the processor's bus contract: a 64 KiB
// memory with an optional size limit and write-protected image, an I/O port
// space with attached devices, and the Machine that joins them.
package bus

import "fmt"

// Size is the Z80 address space.
const Size = 0x10000

// FaultKind classifies a rejected memory access.
type FaultKind uint8

const (
	Unmapped  FaultKind = iota // at or above the memory limit
	Protected                  // inside the write-protected image
)

func (k FaultKind) String() string {
	if k == Protected {
		return "protected"
	}
	return "unmapped"
}

// RangeError reports a write the memory dropped.
type RangeError struct {
	Addr  uint16
	Value uint8
	Kind  FaultKind
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("write 0x%02X at 0x%04X: %s", e.Value, e.Addr, e.Kind)
}

// Memory is flat RAM. Reads at or above the limit return 0xFF.
type Memory struct {
	data  [Size]uint8
	limit int

	protLo, protHi int // [protLo, protHi) rejects writes
}

// NewMemory returns a zeroed memory with no limit and no protection.
func NewMemory() *Memory {
	return &Memory{limit: Size}
}

// SetLimit makes addresses at or above n unmapped. n is clamped to [0, Size].
func (m *Memory) SetLimit(n int) {
	m.limit = min(max(n, 0), Size)
}

// Limit returns the current memory limit.
func (m *Memory) Limit() int { return m.limit }

// Protect rejects writes to [lo, lo+n).
func (m *Memory) Protect(lo uint16, n int) {
	m.protLo = int(lo)
	m.protHi = min(int(lo)+n, Size)
}

// Load copies image to origin and returns the number of bytes loaded.
// An image that does not fit below the top of memory is truncated and
// reported as an error.
func (m *Memory) Load(origin uint16, image []byte) (int, error) {
	n := copy(m.data[origin:], image)
	if n < len(image) {
		return n, fmt.Errorf("image of %d bytes at 0x%04X overruns memory by %d bytes", len(image), origin, len(image)-n)
	}
	return n, nil
}

func (m *Memory) Read(addr uint16) uint8 {
	if int(addr) >= m.limit {
		return 0xFF
	}
	return m.data[addr]
}

// Write stores v unless addr is unmapped or protected.
func (m *Memory) Write(addr uint16, v uint8) error {
	a := int(addr)
	switch {
	case a >= m.limit:
		return &RangeError{Addr: addr, Value: v, Kind: Unmapped}
	case a >= m.protLo && a < m.protHi:
		return &RangeError{Addr: addr, Value: v, Kind: Protected}
	}
	m.data[addr] = v
	return nil
}

// Bytes returns the backing store. Writes through it bypass limit and protection.
func (m *Memory) Bytes() []byte { return m.data[:] }
