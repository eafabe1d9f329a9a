package cpu

import "github.com/oisee/z80core/pkg/inst"

// alu computes accumulator operation k on a and n with the carry-in taken
// from f. It returns the new accumulator and a fully recomputed flag byte;
// no flag bit survives from f except through the carry input of ADC/SBC.
//
// XOR and OR clear H, N and C. AND clears N and C but sets H, as the
// silicon does, so it is not flag-identical to the other two logical ops.
func alu(k inst.ALU, a, f, n uint8) (uint8, uint8) {
	switch k {
	case inst.ADD:
		return aluAdd(a, n, 0)
	case inst.ADC:
		return aluAdd(a, n, f&FlagC)
	case inst.SUB:
		return aluSub(a, n, 0)
	case inst.SBC:
		return aluSub(a, n, f&FlagC)
	case inst.AND:
		a &= n
		return a, FlagH | Sz53pTable[a]
	case inst.XOR:
		a ^= n
		return a, Sz53pTable[a]
	case inst.OR:
		a |= n
		return a, Sz53pTable[a]
	default:
		return a, aluCp(a, n)
	}
}

func aluAdd(a, n, carry uint8) (uint8, uint8) {
	sum := uint16(a) + uint16(n) + uint16(carry)
	lookup := ((a & 0x88) >> 3) | ((n & 0x88) >> 2) | uint8((sum&0x88)>>1)
	r := uint8(sum)
	return r, bsel(sum&0x100 != 0, FlagC, 0) |
		HalfcarryAddTable[lookup&0x07] |
		OverflowAddTable[lookup>>4] |
		Sz53Table[r]
}

func aluSub(a, n, carry uint8) (uint8, uint8) {
	diff := uint16(a) - uint16(n) - uint16(carry)
	lookup := ((a & 0x88) >> 3) | ((n & 0x88) >> 2) | uint8((diff&0x88)>>1)
	r := uint8(diff)
	return r, bsel(diff&0x100 != 0, FlagC, 0) | FlagN |
		HalfcarrySubTable[lookup&0x07] |
		OverflowSubTable[lookup>>4] |
		Sz53Table[r]
}

// aluCp is SUB without the store; Y and X come from the operand, not the result.
func aluCp(a, n uint8) uint8 {
	diff := uint16(a) - uint16(n)
	lookup := ((a & 0x88) >> 3) | ((n & 0x88) >> 2) | uint8((diff&0x88)>>1)
	return bsel(diff&0x100 != 0, FlagC, bsel(diff&0xFF != 0, 0, FlagZ)) |
		FlagN |
		HalfcarrySubTable[lookup&0x07] |
		OverflowSubTable[lookup>>4] |
		(n & (FlagX | FlagY)) |
		uint8(diff&uint16(FlagS))
}
