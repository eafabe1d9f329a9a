package cpu

import (
	"errors"
	"reflect"
	"testing"

	"github.com/oisee/z80core/pkg/inst"
)

func TestNopCycles(t *testing.T) {
	b := newTestBus(0, 0x00)
	p := newTestProcessor(b)
	before := p.Registers()

	mustStep(t, p, 1)

	if p.Cycles() != 4 {
		t.Errorf("NOP: got %d cycles, want 4", p.Cycles())
	}
	if b.ticked != 4 {
		t.Errorf("NOP: bus ticked %d, want 4", b.ticked)
	}
	after := p.Registers()
	before.PC, before.LastFetchAddr = 1, 0
	if !after.Equal(before) {
		t.Errorf("NOP changed state: %+v", after)
	}
}

// TestXorANop runs XOR A then NOP from a zeroed machine.
func TestXorANop(t *testing.T) {
	b := newTestBus(0, 0xAF, 0x00)
	p := newTestProcessor(b)
	r := p.Registers()
	r.SetA(0x5A)
	r.SetF(FlagC | FlagN | FlagH)
	p.SetRegisters(r)

	mustStep(t, p, 1)
	r = p.Registers()
	if r.A() != 0 {
		t.Errorf("XOR A: A=%02X, want 00", r.A())
	}
	if r.F()&FlagZ == 0 {
		t.Error("XOR A should set Z")
	}
	if r.F()&FlagP == 0 {
		t.Error("XOR A should set P (0 has even parity)")
	}
	if r.F() != FlagZ|FlagP {
		t.Errorf("XOR A: F=%02X, want %02X", r.F(), FlagZ|FlagP)
	}
	if p.Cycles() != 4 {
		t.Errorf("XOR A: cycles=%d, want 4", p.Cycles())
	}

	flags := r.F()
	mustStep(t, p, 1)
	r = p.Registers()
	if r.PC != 2 {
		t.Errorf("PC=%04X, want 0002", r.PC)
	}
	if p.Cycles() != 8 {
		t.Errorf("cycles=%d, want 8", p.Cycles())
	}
	if r.F() != flags {
		t.Errorf("NOP changed flags %02X -> %02X", flags, r.F())
	}
}

func TestIndexedALU(t *testing.T) {
	tests := []struct {
		name     string
		code     []uint8
		ix, iy   uint16
		addr     uint16
		wantA    uint8
		wantCall []string
	}{
		{
			name: "XOR (IX+5)", code: []uint8{0xDD, 0xAE, 0x05}, ix: 0x2000, addr: 0x2005, wantA: 0xF0,
			wantCall: []string{"fetch 0000", "fetch 0001", "fetch 0002", "read 2005"},
		},
		{
			name: "XOR (IY-2)", code: []uint8{0xFD, 0xAE, 0xFE}, iy: 0x2000, addr: 0x1FFE, wantA: 0xF0,
			wantCall: []string{"fetch 0000", "fetch 0001", "fetch 0002", "read 1FFE"},
		},
		{
			name: "OR (IX+127) wraps", code: []uint8{0xDD, 0xB6, 0x7F}, ix: 0xFFF0, addr: 0x006F, wantA: 0xFF,
			wantCall: []string{"fetch 0000", "fetch 0001", "fetch 0002", "read 006F"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBus(0, tc.code...)
			b.mem[tc.addr] = 0x0F
			p := newTestProcessor(b)
			r := p.Registers()
			r.IX, r.IY = tc.ix, tc.iy
			r.HL = 0x4444
			r.SetA(0xFF)
			p.SetRegisters(r)

			mustStep(t, p, 1)
			if p.Cycles() != 4 {
				t.Fatalf("prefix: cycles=%d, want 4", p.Cycles())
			}
			mustStep(t, p, 1)
			if got := p.Cycles() - 4; got != 16 {
				t.Errorf("indexed op: cycles=%d, want 16", got)
			}

			r = p.Registers()
			if r.A() != tc.wantA {
				t.Errorf("A=%02X, want %02X", r.A(), tc.wantA)
			}
			if r.MemPtr != tc.addr {
				t.Errorf("memptr=%04X, want %04X", r.MemPtr, tc.addr)
			}
			if r.PC != 3 {
				t.Errorf("PC=%04X, want 0003", r.PC)
			}
			if !reflect.DeepEqual(b.calls, tc.wantCall) {
				t.Errorf("bus calls %v, want %v", b.calls, tc.wantCall)
			}
		})
	}
}

// TestDirectHLLeavesMemPtr: plain (HL) does not record the address.
func TestDirectHLLeavesMemPtr(t *testing.T) {
	b := newTestBus(0, 0xAE)
	b.mem[0x3000] = 0x55
	p := newTestProcessor(b)
	r := p.Registers()
	r.HL = 0x3000
	r.MemPtr = 0x1234
	p.SetRegisters(r)

	mustStep(t, p, 1)
	r = p.Registers()
	if p.Cycles() != 7 {
		t.Errorf("XOR (HL): cycles=%d, want 7", p.Cycles())
	}
	if r.A() != 0x55 {
		t.Errorf("A=%02X, want 55", r.A())
	}
	if r.MemPtr != 0x1234 {
		t.Errorf("memptr=%04X, want unchanged 1234", r.MemPtr)
	}
}

// TestPrefixScope: the index mode lasts one instruction.
func TestPrefixScope(t *testing.T) {
	// DD A4 (AND IXH), A4 (AND H)
	b := newTestBus(0, 0xDD, 0xA4, 0xA4)
	p := newTestProcessor(b)
	r := p.Registers()
	r.IX = 0x0F00
	r.HL = 0xF000
	r.SetA(0xFF)
	p.SetRegisters(r)

	mustStep(t, p, 2)
	if a := p.Registers().A(); a != 0x0F {
		t.Fatalf("AND IXH: A=%02X, want 0F", a)
	}
	mustStep(t, p, 1)
	if a := p.Registers().A(); a != 0x00 {
		t.Errorf("AND H after prefixed op: A=%02X, want 00", a)
	}
}

func TestDI(t *testing.T) {
	for _, tc := range []struct{ iff1, iff2 bool }{
		{true, true}, {true, false}, {false, true}, {false, false},
	} {
		b := newTestBus(0, 0xF3)
		p := newTestProcessor(b)
		r := p.Registers()
		r.IFF1, r.IFF2 = tc.iff1, tc.iff2
		p.SetRegisters(r)

		mustStep(t, p, 1)
		r = p.Registers()
		if r.IFF1 || r.IFF2 {
			t.Errorf("DI from (%v,%v): got (%v,%v)", tc.iff1, tc.iff2, r.IFF1, r.IFF2)
		}
		if p.Cycles() != 4 {
			t.Errorf("DI: cycles=%d, want 4", p.Cycles())
		}
	}
}

func TestEI(t *testing.T) {
	b := newTestBus(0, 0xFB)
	p := newTestProcessor(b)
	mustStep(t, p, 1)
	if r := p.Registers(); !r.IFF1 || !r.IFF2 {
		t.Errorf("EI: got (%v,%v)", r.IFF1, r.IFF2)
	}
}

func TestUnknownOpcode(t *testing.T) {
	b := newTestBus(0, 0x00, 0xED)
	p := newTestProcessor(b)
	mustStep(t, p, 1)

	err := p.Step()
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want *DecodeError", err)
	}
	if de.Opcode != 0xED || de.Addr != 0x0001 {
		t.Errorf("got %+v, want {Opcode:ED Addr:0001}", *de)
	}
	if p.Cycles() != 8 {
		t.Errorf("cycles=%d, want 8 (failed fetch is charged)", p.Cycles())
	}
}

func TestUnknownOpcodePanics(t *testing.T) {
	b := newTestBus(0, 0xED)
	p := newTestProcessor(b, WithDecodePolicy(DecodePanic))

	defer func() {
		r := recover()
		err, ok := r.(error)
		var de *DecodeError
		if !ok || !errors.As(err, &de) {
			t.Fatalf("recovered %v, want *DecodeError", r)
		}
	}()
	_ = p.Step()
	t.Fatal("Step did not panic")
}

func TestHalt(t *testing.T) {
	b := newTestBus(0, 0x76, 0x00)
	p := newTestProcessor(b)
	mustStep(t, p, 1)
	if !p.Halted() {
		t.Fatal("HALT did not halt")
	}
	calls := len(b.calls)
	mustStep(t, p, 3)
	if p.Cycles() != 4 || len(b.calls) != calls {
		t.Errorf("halted Step touched the bus: cycles=%d calls=%v", p.Cycles(), b.calls)
	}
	if p.PC() != 1 {
		t.Errorf("PC=%04X, want 0001", p.PC())
	}
}

type callLog struct {
	calls, rets [][]uint16
}

func (c *callLog) OnCall(from, target, ret uint16) {
	c.calls = append(c.calls, []uint16{from, target, ret})
}

func (c *callLog) OnReturn(from, target uint16) {
	c.rets = append(c.rets, []uint16{from, target})
}

func TestCallReturn(t *testing.T) {
	b := newTestBus(0, 0xCD, 0x10, 0x00)
	b.mem[0x10] = 0xC9
	log := &callLog{}
	p := newTestProcessor(b, WithObserver(log))
	r := p.Registers()
	r.SP = 0x8000
	p.SetRegisters(r)

	mustStep(t, p, 1)
	r = p.Registers()
	if r.PC != 0x0010 || r.SP != 0x7FFE || r.MemPtr != 0x0010 {
		t.Errorf("CALL: PC=%04X SP=%04X memptr=%04X", r.PC, r.SP, r.MemPtr)
	}
	if b.mem[0x7FFF] != 0x00 || b.mem[0x7FFE] != 0x03 {
		t.Errorf("CALL pushed %02X%02X, want 0003", b.mem[0x7FFF], b.mem[0x7FFE])
	}
	if p.Cycles() != 17 {
		t.Errorf("CALL: cycles=%d, want 17", p.Cycles())
	}

	mustStep(t, p, 1)
	r = p.Registers()
	if r.PC != 0x0003 || r.SP != 0x8000 {
		t.Errorf("RET: PC=%04X SP=%04X", r.PC, r.SP)
	}
	if p.Cycles() != 27 {
		t.Errorf("RET: cycles=%d, want 27", p.Cycles())
	}

	wantCalls := [][]uint16{{0x0000, 0x0010, 0x0003}}
	wantRets := [][]uint16{{0x0010, 0x0003}}
	if !reflect.DeepEqual(log.calls, wantCalls) || !reflect.DeepEqual(log.rets, wantRets) {
		t.Errorf("observer saw calls=%v rets=%v", log.calls, log.rets)
	}

	// high byte is written first
	want := []string{"fetch 0000", "read 0001", "read 0002", "write 7FFF 00", "write 7FFE 03"}
	if !reflect.DeepEqual(b.calls[:5], want) {
		t.Errorf("CALL bus order %v, want %v", b.calls[:5], want)
	}
}

func TestPorts(t *testing.T) {
	// LD A,41h; OUT (02h),A; IN A,(03h)
	b := newTestBus(0, 0x3E, 0x41, 0xD3, 0x02, 0xDB, 0x03)
	b.in[3] = 0x99
	p := newTestProcessor(b)
	r := p.Registers()
	r.SetF(0xA5)
	p.SetRegisters(r)

	mustStep(t, p, 2)
	if !reflect.DeepEqual(b.out, []string{"02=41"}) {
		t.Errorf("OUT: got %v", b.out)
	}
	if m := p.Registers().MemPtr; m != 0x4103 {
		t.Errorf("OUT memptr=%04X, want 4103", m)
	}

	mustStep(t, p, 1)
	r = p.Registers()
	if r.A() != 0x99 {
		t.Errorf("IN: A=%02X, want 99", r.A())
	}
	if r.MemPtr != 0x4104 {
		t.Errorf("IN memptr=%04X, want 4104", r.MemPtr)
	}
	if r.F() != 0xA5 {
		t.Errorf("IN changed flags: %02X", r.F())
	}
	if p.Cycles() != 7+11+11 {
		t.Errorf("cycles=%d, want 29", p.Cycles())
	}
}

func TestLoads(t *testing.T) {
	// LD IXH,12h; LD H,(IX+1); LD (IY+2),A; LD B,L; LD (HL),7Eh
	code := []uint8{
		0xDD, 0x26, 0x12,
		0xDD, 0x66, 0x01,
		0xFD, 0x77, 0x02,
		0x45,
		0x36, 0x7E,
	}
	b := newTestBus(0, code...)
	b.mem[0x1235] = 0xC3
	p := newTestProcessor(b)
	r := p.Registers()
	r.IX = 0x0034
	r.IY = 0x5000
	r.HL = 0x6000
	r.SetA(0xAA)
	p.SetRegisters(r)

	mustStep(t, p, 2)
	r = p.Registers()
	if r.IX != 0x1234 || r.HL != 0x6000 {
		t.Fatalf("LD IXH,n: IX=%04X HL=%04X", r.IX, r.HL)
	}

	mustStep(t, p, 2)
	r = p.Registers()
	if r.HL != 0xC300 || r.IX != 0x1234 {
		t.Fatalf("LD H,(IX+1): HL=%04X IX=%04X", r.HL, r.IX)
	}

	mustStep(t, p, 2)
	if b.mem[0x5002] != 0xAA {
		t.Fatalf("LD (IY+2),A: mem=%02X", b.mem[0x5002])
	}

	mustStep(t, p, 1)
	if got := p.Registers().B(); got != 0x00 {
		t.Errorf("LD B,L: B=%02X, want 00", got)
	}

	mustStep(t, p, 1)
	if b.mem[0xC300] != 0x7E {
		t.Errorf("LD (HL),n: mem=%02X", b.mem[0xC300])
	}
}

func TestJump(t *testing.T) {
	b := newTestBus(0, 0xC3, 0x34, 0x12)
	p := newTestProcessor(b)
	mustStep(t, p, 1)
	if r := p.Registers(); r.PC != 0x1234 || r.MemPtr != 0x1234 {
		t.Errorf("JP: PC=%04X memptr=%04X", r.PC, r.MemPtr)
	}
	if p.Cycles() != 10 {
		t.Errorf("JP: cycles=%d, want 10", p.Cycles())
	}
}

// TestCatalogTiming runs every decodable opcode in every addressing mode and
// compares the measured cost with the catalog.
func TestCatalogTiming(t *testing.T) {
	for _, idx := range []inst.Index{inst.HL, inst.IX, inst.IY} {
		for op := 0; op < 256; op++ {
			d, ok := inst.Lookup(uint8(op))
			if !ok {
				continue
			}
			if d.Op != inst.PREFIX {
				d.Index = idx
			}

			var code []uint8
			if idx != inst.HL {
				code = append(code, []uint8{0xDD, 0xDD, 0xFD}[idx])
			}
			code = append(code, uint8(op), 0x01, 0x02, 0x03)

			b := newTestBus(0x100, code...)
			p := newTestProcessor(b)
			r := p.Registers()
			r.PC, r.SP = 0x100, 0x8000
			p.SetRegisters(r)

			if idx != inst.HL {
				mustStep(t, p, 1)
			}
			start := p.Cycles()
			mustStep(t, p, 1)

			if got, want := int(p.Cycles()-start), inst.TStates(d); got != want {
				t.Errorf("%02X under %s: got %d T-states, catalog says %d", op, idx, got, want)
			}
			if got := b.ticked; uint64(got) != p.Cycles() {
				t.Errorf("%02X under %s: bus ticked %d, counter %d", op, idx, got, p.Cycles())
			}
		}
	}
}

type stepLog struct {
	ops    []inst.OpCode
	cycles []int
}

func (s *stepLog) OnStep(d inst.Descriptor, cycles int, _ Registers) {
	s.ops = append(s.ops, d.Op)
	s.cycles = append(s.cycles, cycles)
}

func TestTracer(t *testing.T) {
	b := newTestBus(0, 0xAF, 0xDD, 0xAE, 0x00, 0x76)
	log, second := &stepLog{}, &stepLog{}
	p := newTestProcessor(b, WithTracer(log), WithTracer(second))
	mustStep(t, p, 4)

	wantOps := []inst.OpCode{inst.ALU_R, inst.PREFIX, inst.ALU_R, inst.HALT}
	wantCycles := []int{4, 4, 16, 4}
	if !reflect.DeepEqual(log.ops, wantOps) || !reflect.DeepEqual(log.cycles, wantCycles) {
		t.Errorf("trace ops=%v cycles=%v", log.ops, log.cycles)
	}
	if !reflect.DeepEqual(second, log) {
		t.Errorf("second tracer saw ops=%v cycles=%v", second.ops, second.cycles)
	}
}

func TestSnapshotRestore(t *testing.T) {
	code := []uint8{0x3E, 0x0F, 0xDD, 0xAE, 0x01, 0xEE, 0xFF, 0x76}
	b1 := newTestBus(0, code...)
	b1.mem[0x2001] = 0x33

	straight := newTestProcessor(b1)
	r := straight.Registers()
	r.IX = 0x2000
	straight.SetRegisters(r)
	mustStep(t, straight, 2) // stop between prefix and its instruction

	snap := straight.Snapshot()
	if snap.Prefix != inst.IX {
		t.Fatalf("snapshot prefix=%s, want IX", snap.Prefix)
	}
	mustStep(t, straight, 3)

	b2 := newTestBus(0, code...)
	b2.mem[0x2001] = 0x33
	resumed := newTestProcessor(b2)
	resumed.Restore(snap)
	mustStep(t, resumed, 3)

	if straight.Registers() != resumed.Registers() || straight.Cycles() != resumed.Cycles() {
		t.Errorf("resumed run diverged:\n%+v %d\n%+v %d",
			straight.Registers(), straight.Cycles(), resumed.Registers(), resumed.Cycles())
	}
	if !resumed.Halted() {
		t.Error("resumed run did not reach HALT")
	}
}

// TestDeterministic runs the same program twice and expects identical results.
func TestDeterministic(t *testing.T) {
	code := []uint8{
		0x3E, 0x5A,       // LD A,5Ah
		0x06, 0x33,       // LD B,33h
		0xA8,             // XOR B
		0xDD, 0xB6, 0x03, // OR (IX+3)
		0xE6, 0xF0,       // AND F0h
		0xCD, 0x20, 0x00, // CALL 0020h
		0x76,
	}
	run := func() (Registers, uint64) {
		b := newTestBus(0, code...)
		b.mem[0x20] = 0xC9
		b.mem[0x1003] = 0x81
		p := newTestProcessor(b)
		r := p.Registers()
		r.IX, r.SP = 0x1000, 0xFF00
		p.SetRegisters(r)
		for !p.Halted() {
			mustStep(t, p, 1)
		}
		return p.Registers(), p.Cycles()
	}

	r1, c1 := run()
	r2, c2 := run()
	if r1 != r2 || c1 != c2 {
		t.Errorf("runs differ: %+v/%d vs %+v/%d", r1, c1, r2, c2)
	}
}

func BenchmarkStep(b *testing.B) {
	bus := newTestBus(0)
	for i := range bus.mem {
		bus.mem[i] = 0xA8 // XOR B
	}
	p := newTestProcessor(bus)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Step()
	}
}
