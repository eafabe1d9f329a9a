package inst

// Info holds static metadata for an operation class.
type Info struct {
	Mnemonic string // pattern, e.g. "LD r, n"
	Bytes    int    // encoding length without prefix or displacement
	TStates  int    // register form
	HLStates int    // (HL) form, 0 if the class has no memory operand
	IXStates int    // (IX+d)/(IY+d) form, excluding the prefix step
}

// Catalog maps each OpCode to its Info.
var Catalog [OpCodeCount]Info

func init() {
	Catalog[NOP] = Info{"NOP", 1, 4, 0, 0}
	Catalog[HALT] = Info{"HALT", 1, 4, 0, 0}
	Catalog[DI] = Info{"DI", 1, 4, 0, 0}
	Catalog[EI] = Info{"EI", 1, 4, 0, 0}
	Catalog[PREFIX] = Info{"PREFIX", 1, 4, 0, 0}

	// alu (i+d): f(4) d(4) e(5) r(3)
	Catalog[ALU_R] = Info{"ALU r", 1, 4, 7, 16}
	Catalog[ALU_N] = Info{"ALU n", 2, 7, 0, 0}

	// ld (i+d),r: f(4) d(4) e(5) w(3)
	Catalog[LD_R_R] = Info{"LD r, r'", 1, 4, 7, 16}
	// ld (i+d),n: f(4) d(4) e(5) r(3) w(3)
	Catalog[LD_R_N] = Info{"LD r, n", 2, 7, 10, 19}

	Catalog[JP_NN] = Info{"JP nn", 3, 10, 0, 0}
	// call: f(4) r(3) r(4) w(3) w(3)
	Catalog[CALL_NN] = Info{"CALL nn", 3, 17, 0, 0}
	Catalog[RET] = Info{"RET", 1, 10, 0, 0}
	Catalog[OUT_N_A] = Info{"OUT (n), A", 2, 11, 0, 0}
	Catalog[IN_A_N] = Info{"IN A, (n)", 2, 11, 0, 0}
}

// AllOps returns all valid OpCode values (for enumeration).
func AllOps() []OpCode {
	ops := make([]OpCode, 0, OpCodeCount)
	for i := OpCode(0); i < OpCodeCount; i++ {
		ops = append(ops, i)
	}
	return ops
}

// HasImmediate returns true if this opcode uses an immediate operand (8 or 16-bit).
func HasImmediate(op OpCode) bool {
	switch op {
	case ALU_N, LD_R_N, OUT_N_A, IN_A_N:
		return true
	}
	return HasImm16(op)
}

// HasImm16 returns true if this opcode uses a 16-bit immediate operand.
func HasImm16(op OpCode) bool {
	return op == JP_NN || op == CALL_NN
}

// TStates returns the T-state cost of a decoded instruction.
func TStates(d Descriptor) int {
	info := &Catalog[d.Op]
	switch {
	case d.Indexed():
		return info.IXStates
	case d.MemoryOperand():
		return info.HLStates
	}
	return info.TStates
}

// ByteSize returns the byte size of a decoded instruction, counting the
// displacement but not a preceding prefix.
func ByteSize(d Descriptor) int {
	n := Catalog[d.Op].Bytes
	if d.Indexed() {
		n++
	}
	return n
}

// Encode returns the machine code for d, including the index prefix when
// d.Index selects IX or IY.
func Encode(d Descriptor) []byte {
	var out []byte
	if d.Op != PREFIX && d.Index != HL {
		out = append(out, prefixByte(d.Index))
	}

	switch d.Op {
	case NOP:
		out = append(out, 0x00)
	case HALT:
		out = append(out, 0x76)
	case DI:
		out = append(out, 0xF3)
	case EI:
		out = append(out, 0xFB)
	case PREFIX:
		out = append(out, prefixByte(d.Index))
	case ALU_R:
		out = append(out, 0x80|uint8(d.ALU&7)<<3|uint8(d.Src&7))
	case ALU_N:
		out = append(out, 0xC6|uint8(d.ALU&7)<<3, uint8(d.Imm))
		return out
	case LD_R_R:
		out = append(out, 0x40|uint8(d.Dst&7)<<3|uint8(d.Src&7))
	case LD_R_N:
		out = append(out, 0x06|uint8(d.Dst&7)<<3)
		if d.Indexed() {
			out = append(out, uint8(d.Disp))
		}
		return append(out, uint8(d.Imm))
	case JP_NN:
		return append(out, 0xC3, uint8(d.Imm), uint8(d.Imm>>8))
	case CALL_NN:
		return append(out, 0xCD, uint8(d.Imm), uint8(d.Imm>>8))
	case RET:
		out = append(out, 0xC9)
	case OUT_N_A:
		return append(out, 0xD3, uint8(d.Imm))
	case IN_A_N:
		return append(out, 0xDB, uint8(d.Imm))
	}

	if d.Indexed() {
		out = append(out, uint8(d.Disp))
	}
	return out
}

func prefixByte(i Index) byte {
	if i == IY {
		return 0xFD
	}
	return 0xDD
}
