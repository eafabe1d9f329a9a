package cpu

// Bus is the host side of the processor: memory over a 16-bit address
// space, ports over an independent 8-bit space, and the cycle clock.
//
// Every call is synchronous. The processor never validates an address or a
// port before calling; range and write-protection policy belongs to the
// implementation.
type Bus interface {
	Fetch(addr uint16) uint8 // opcode and displacement fetch
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	Input(port uint8) uint8
	Output(port uint8, value uint8)
	Tick(cycles int)
}

// Fixed T-state costs charged per bus operation.
const (
	FetchCycles        = 4 // opcode fetch (M1)
	ReadCycles         = 3 // ordinary operand read
	LongReadCycles     = 4 // operand read stretched by one internal cycle
	WriteCycles        = 3
	DisplacementCycles = 5 // address calculation after (IX+d)/(IY+d)
	PortCycles         = 4 // IN / OUT port cycle
)
