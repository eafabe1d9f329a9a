package cpu

import "math/bits"

// Z80 flag bit positions in the F register.
const (
	FlagC uint8 = 0x01  // Carry
	FlagN uint8 = 0x02  // Subtract
	FlagP uint8 = 0x04  // Parity/Overflow
	FlagV       = FlagP // Overflow (same bit as Parity)
	FlagX uint8 = 0x08  // Undocumented, copy of result bit 3
	FlagH uint8 = 0x10  // Half-carry
	FlagY uint8 = 0x20  // Undocumented, copy of result bit 5
	FlagZ uint8 = 0x40  // Zero
	FlagS uint8 = 0x80  // Sign
)

// Precomputed flag tables.
var (
	// Sz53Table: S, Z, Y, X flags for each byte value
	Sz53Table [256]uint8
	// Sz53pTable: Sz53Table with the parity flag included
	Sz53pTable [256]uint8
	// ParityTable: P set when the byte has an even number of 1 bits
	ParityTable [256]uint8

	// Half-carry and overflow lookups for 8-bit add/sub, indexed by
	// bit 3 (low three bits of the index) or bit 7 (high bits) of
	// {operand A, operand N, result}.
	HalfcarryAddTable = [8]uint8{0, FlagH, FlagH, FlagH, 0, 0, 0, FlagH}
	HalfcarrySubTable = [8]uint8{0, 0, FlagH, 0, FlagH, 0, FlagH, FlagH}
	OverflowAddTable  = [8]uint8{0, 0, 0, FlagV, FlagV, 0, 0, 0}
	OverflowSubTable  = [8]uint8{0, FlagV, 0, 0, 0, 0, FlagV, 0}
)

func init() {
	for i := 0; i < 256; i++ {
		n := uint8(i)
		Sz53Table[i] = n & (FlagS | FlagY | FlagX)
		if bits.OnesCount8(n)%2 == 0 {
			ParityTable[i] = FlagP
		}
		Sz53pTable[i] = Sz53Table[i] | ParityTable[i]
	}
	Sz53Table[0] |= FlagZ
	Sz53pTable[0] |= FlagZ
}

// bsel returns a if cond is true, else b.
func bsel(cond bool, a, b uint8) uint8 {
	if cond {
		return a
	}
	return b
}
