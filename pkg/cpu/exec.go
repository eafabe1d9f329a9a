package cpu

import "github.com/oisee/z80core/pkg/inst"

// executor is the execution backend: the Hooks implementation that mutates
// the processor. It shares the Processor's memory layout so Step can hand
// the decoder a converted pointer.
type executor Processor

func (e *executor) tick(cycles int) {
	e.cycles += uint64(cycles)
	e.bus.Tick(cycles)
}

func (e *executor) FetchCycle() uint8 {
	pc := e.regs.PC
	e.tick(FetchCycles)
	op := e.bus.Fetch(pc)
	e.regs.LastFetchAddr = pc
	e.regs.PC = pc + 1
	return op
}

func (e *executor) ImmCycle(long bool) uint8 {
	pc := e.regs.PC
	var n uint8
	if long {
		n = e.read4(pc)
	} else {
		n = e.read3(pc)
	}
	e.regs.PC = pc + 1
	return n
}

func (e *executor) Exec5Cycle(addr uint16) {
	e.tick(DisplacementCycles)
}

func (e *executor) IndexMode() inst.Index { return e.index }

func (e *executor) LastFetchAddr() uint16 { return e.regs.LastFetchAddr }

func (e *executor) read3(addr uint16) uint8 {
	e.tick(ReadCycles)
	return e.bus.Read(addr)
}

func (e *executor) read4(addr uint16) uint8 {
	e.tick(LongReadCycles)
	return e.bus.Read(addr)
}

func (e *executor) write3(addr uint16, n uint8) {
	e.tick(WriteCycles)
	e.bus.Write(addr, n)
}

// dispTarget is HL, or IX/IY plus the signed displacement, modulo 64K.
func (e *executor) dispTarget(d int8) uint16 {
	return e.regs.Index(e.index) + uint16(int16(d))
}

// readAtDisp reads the (HL) operand. Only the indexed forms update memptr.
func (e *executor) readAtDisp(d int8) uint8 {
	addr := e.dispTarget(d)
	n := e.read3(addr)
	if e.index != inst.HL {
		e.regs.MemPtr = addr
	}
	return n
}

func (e *executor) writeAtDisp(d int8, n uint8) {
	addr := e.dispTarget(d)
	e.write3(addr, n)
	if e.index != inst.HL {
		e.regs.MemPtr = addr
	}
}

func (e *executor) getR(r inst.Reg, d int8) uint8 {
	if r == inst.AtHL {
		return e.readAtDisp(d)
	}
	return e.regs.Reg8(r, e.index)
}

func (e *executor) doALU(k inst.ALU, n uint8) {
	af := e.regs.Pair(AF)
	a, f := alu(k, High8(af), Low8(af), n)
	e.regs.SetPair(AF, Make16(a, f))
}

func (e *executor) OnNop() {}

func (e *executor) OnHalt() { e.halted = true }

func (e *executor) OnDI() {
	e.regs.IFF1 = false
	e.regs.IFF2 = false
}

func (e *executor) OnEI() {
	e.regs.IFF1 = true
	e.regs.IFF2 = true
}

func (e *executor) OnPrefix(idx inst.Index) { e.prefix = idx }

func (e *executor) OnALU(k inst.ALU, r inst.Reg, d int8) {
	e.doALU(k, e.getR(r, d))
}

func (e *executor) OnALUImm(k inst.ALU, n uint8) {
	e.doALU(k, n)
}

// OnLoad copies between registers or memory. When one side is (IX+d) or
// (IY+d) the register side is plain H or L, not the index halves.
func (e *executor) OnLoad(dst, src inst.Reg, d int8) {
	switch {
	case src == inst.AtHL:
		e.regs.SetReg8(dst, inst.HL, e.readAtDisp(d))
	case dst == inst.AtHL:
		e.writeAtDisp(d, e.regs.Reg8(src, inst.HL))
	default:
		e.regs.SetReg8(dst, e.index, e.regs.Reg8(src, e.index))
	}
}

func (e *executor) OnLoadImm(dst inst.Reg, d int8, n uint8) {
	if dst == inst.AtHL {
		e.writeAtDisp(d, n)
		return
	}
	e.regs.SetReg8(dst, e.index, n)
}

func (e *executor) OnJump(nn uint16) {
	e.regs.PC = nn
	e.regs.MemPtr = nn
}

func (e *executor) OnCall(nn uint16) {
	from := e.regs.LastFetchAddr
	ret := e.regs.PC
	e.push(ret)
	e.regs.PC = nn
	e.regs.MemPtr = nn
	if e.observer != nil {
		e.observer.OnCall(from, nn, ret)
	}
}

func (e *executor) OnReturn() {
	from := e.regs.LastFetchAddr
	addr := e.pop()
	e.regs.PC = addr
	e.regs.MemPtr = addr
	if e.observer != nil {
		e.observer.OnReturn(from, addr)
	}
}

// push stores the high byte first, at SP-1.
func (e *executor) push(nn uint16) {
	e.regs.SP--
	e.write3(e.regs.SP, High8(nn))
	e.regs.SP--
	e.write3(e.regs.SP, Low8(nn))
}

func (e *executor) pop() uint16 {
	lo := e.read3(e.regs.SP)
	e.regs.SP++
	hi := e.read3(e.regs.SP)
	e.regs.SP++
	return Make16(hi, lo)
}

func (e *executor) OnOut(n uint8) {
	a := e.regs.A()
	e.tick(PortCycles)
	e.bus.Output(n, a)
	e.regs.MemPtr = Make16(a, n+1)
}

func (e *executor) OnIn(n uint8) {
	a := e.regs.A()
	e.tick(PortCycles)
	v := e.bus.Input(n)
	e.regs.MemPtr = Make16(a, n) + 1
	e.regs.SetA(v)
}
