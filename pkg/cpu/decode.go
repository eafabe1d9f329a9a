package cpu

import "github.com/oisee/z80core/pkg/inst"

// Hooks is what the decoder needs from a backend. The cycle hooks supply
// instruction bytes and charge their cost; the action hooks receive one
// call per decoded instruction.
//
// The execution backend in this package and the disassembler in pkg/disasm
// both implement Hooks and share Decode unchanged.
type Hooks interface {
	// FetchCycle reads the byte at PC as an opcode fetch and advances PC.
	FetchCycle() uint8
	// ImmCycle reads the byte at PC as an operand and advances PC.
	ImmCycle(long bool) uint8
	// Exec5Cycle is the internal step that computes (IX+d)/(IY+d).
	Exec5Cycle(addr uint16)
	IndexMode() inst.Index
	LastFetchAddr() uint16

	OnNop()
	OnHalt()
	OnDI()
	OnEI()
	OnPrefix(idx inst.Index)
	OnALU(k inst.ALU, r inst.Reg, d int8)
	OnALUImm(k inst.ALU, n uint8)
	OnLoad(dst, src inst.Reg, d int8)
	OnLoadImm(dst inst.Reg, d int8, n uint8)
	OnJump(nn uint16)
	OnCall(nn uint16)
	OnReturn()
	OnOut(n uint8)
	OnIn(n uint8)
}

// Decode fetches and decodes one instruction through h and dispatches it to
// the matching action hook. The index mode is read from h once, before the
// opcode is examined.
func Decode[H Hooks](h H) (inst.Descriptor, error) {
	idx := h.IndexMode()
	op := h.FetchCycle()
	addr := h.LastFetchAddr()

	d, ok := inst.Lookup(op)
	if !ok {
		return d, &DecodeError{Opcode: op, Addr: addr}
	}
	d.Addr = addr
	if d.Op != inst.PREFIX {
		d.Index = idx
	}

	switch d.Op {
	case inst.NOP:
		h.OnNop()
	case inst.HALT:
		h.OnHalt()
	case inst.DI:
		h.OnDI()
	case inst.EI:
		h.OnEI()
	case inst.PREFIX:
		h.OnPrefix(d.Index)

	case inst.ALU_R:
		// alu r            f(4)
		// alu (HL)         f(4)           r(3)
		// alu (i+d)        f(4) d(4) e(5) r(3)
		fetchDisp(h, &d)
		h.OnALU(d.ALU, d.Src, d.Disp)
	case inst.ALU_N:
		n := h.ImmCycle(false)
		d.Imm = uint16(n)
		h.OnALUImm(d.ALU, n)

	case inst.LD_R_R:
		fetchDisp(h, &d)
		h.OnLoad(d.Dst, d.Src, d.Disp)
	case inst.LD_R_N:
		fetchDisp(h, &d)
		n := h.ImmCycle(false)
		d.Imm = uint16(n)
		h.OnLoadImm(d.Dst, d.Disp, n)

	case inst.JP_NN:
		lo := h.ImmCycle(false)
		hi := h.ImmCycle(false)
		d.Imm = Make16(hi, lo)
		h.OnJump(d.Imm)
	case inst.CALL_NN:
		lo := h.ImmCycle(false)
		hi := h.ImmCycle(true)
		d.Imm = Make16(hi, lo)
		h.OnCall(d.Imm)
	case inst.RET:
		h.OnReturn()

	case inst.OUT_N_A:
		n := h.ImmCycle(false)
		d.Imm = uint16(n)
		h.OnOut(n)
	case inst.IN_A_N:
		n := h.ImmCycle(false)
		d.Imm = uint16(n)
		h.OnIn(n)
	}
	return d, nil
}

// fetchDisp consumes the displacement byte when the memory operand is
// (IX+d) or (IY+d). Register operands and plain (HL) take no displacement.
func fetchDisp[H Hooks](h H, d *inst.Descriptor) {
	if !d.Indexed() {
		return
	}
	d.Disp = int8(h.FetchCycle())
	d.HasDisp = true
	h.Exec5Cycle(h.LastFetchAddr())
}
