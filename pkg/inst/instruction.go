package inst

// Reg selects an 8-bit operand through the r[] slot of an opcode.
// The numbering matches the Z80 encoding, so a 3-bit field converts directly.
type Reg uint8

const (
	B Reg = iota
	C
	D
	E
	H
	L
	AtHL // (HL), or (IX+d)/(IY+d) under an index prefix
	A
)

var regNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

func (r Reg) String() string {
	return regNames[r&7]
}

// Index selects the 16-bit register that backs logical H, L and (HL)
// for the duration of one instruction.
type Index uint8

const (
	HL Index = iota // direct
	IX              // after a DD prefix
	IY              // after an FD prefix
)

var indexNames = [3]string{"HL", "IX", "IY"}

func (i Index) String() string {
	if int(i) < len(indexNames) {
		return indexNames[i]
	}
	return "?"
}

// ALU selects one of the eight accumulator operations through the alu[] slot.
type ALU uint8

const (
	ADD ALU = iota
	ADC
	SUB
	SBC
	AND
	XOR
	OR
	CP
)

var aluNames = [8]string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}

func (k ALU) String() string {
	return aluNames[k&7]
}

// Logical reports whether k is one of AND, XOR, OR.
func (k ALU) Logical() bool {
	return k == AND || k == XOR || k == OR
}

// OpCode is the operation class of a decoded instruction (not the raw byte).
// Several raw opcodes share a class and differ only in their register and
// ALU selectors.
type OpCode uint8

const (
	NOP OpCode = iota
	HALT
	DI
	EI
	PREFIX  // DD / FD index prefix
	ALU_R   // alu[y] r[z]
	ALU_N   // alu[y] n
	LD_R_R  // LD r[y], r[z]
	LD_R_N  // LD r[y], n
	JP_NN   // JP nn
	CALL_NN // CALL nn
	RET     // RET
	OUT_N_A // OUT (n), A
	IN_A_N  // IN A, (n)

	OpCodeCount
)

// Descriptor is the decoded form of one instruction. Lookup fills the fields
// that follow from the opcode bits alone; the decoder adds the displacement,
// the immediate and the index mode as it consumes the instruction stream.
type Descriptor struct {
	Op     OpCode
	Opcode uint8  // raw opcode byte
	Addr   uint16 // address the opcode was fetched from

	ALU ALU
	Dst Reg // destination of LD_R_R / LD_R_N
	Src Reg // operand of ALU_R, source of LD_R_R

	Index   Index // index mode in force; for PREFIX, the mode being selected
	Disp    int8
	HasDisp bool
	Imm     uint16
}

// Fields splits an opcode into its x (bits 6-7), y (bits 3-5) and z (bits 0-2) fields.
func Fields(op uint8) (x, y, z uint8) {
	return op >> 6, (op >> 3) & 7, op & 7
}

// Lookup maps an opcode byte to its descriptor. The second result is false
// when the opcode has no table entry.
func Lookup(op uint8) (Descriptor, bool) {
	x, y, z := Fields(op)
	d := Descriptor{Opcode: op}

	switch x {
	case 0:
		switch {
		case op == 0x00:
			d.Op = NOP
			return d, true
		case z == 6:
			d.Op = LD_R_N
			d.Dst = Reg(y)
			return d, true
		}
	case 1:
		if op == 0x76 {
			d.Op = HALT
			return d, true
		}
		d.Op = LD_R_R
		d.Dst = Reg(y)
		d.Src = Reg(z)
		return d, true
	case 2:
		d.Op = ALU_R
		d.ALU = ALU(y)
		d.Src = Reg(z)
		return d, true
	case 3:
		switch op {
		case 0xC3:
			d.Op = JP_NN
			return d, true
		case 0xC9:
			d.Op = RET
			return d, true
		case 0xCD:
			d.Op = CALL_NN
			return d, true
		case 0xD3:
			d.Op = OUT_N_A
			return d, true
		case 0xDB:
			d.Op = IN_A_N
			return d, true
		case 0xF3:
			d.Op = DI
			return d, true
		case 0xFB:
			d.Op = EI
			return d, true
		case 0xDD:
			d.Op = PREFIX
			d.Index = IX
			return d, true
		case 0xFD:
			d.Op = PREFIX
			d.Index = IY
			return d, true
		}
		if z == 6 {
			d.Op = ALU_N
			d.ALU = ALU(y)
			return d, true
		}
	}
	return d, false
}

// MemoryOperand reports whether the instruction addresses memory through the (HL) slot.
func (d Descriptor) MemoryOperand() bool {
	switch d.Op {
	case ALU_R:
		return d.Src == AtHL
	case LD_R_R:
		return d.Src == AtHL || d.Dst == AtHL
	case LD_R_N:
		return d.Dst == AtHL
	}
	return false
}

// Indexed reports whether the memory operand is (IX+d) or (IY+d).
func (d Descriptor) Indexed() bool {
	return d.Index != HL && d.MemoryOperand()
}
