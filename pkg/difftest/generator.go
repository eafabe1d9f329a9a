// Package difftest runs random programs through the processor and checks
// properties that must hold for any input: repeat runs agree, a run split
// by a checkpoint agrees with a straight run, and the disassembler walks the
// code the way the processor does.
package difftest

import (
	"math/rand/v2"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/inst"
)

// Origin is where generated programs are loaded.
const Origin uint16 = 0x0000

// Program is a generated straight-line instruction sequence ending in HALT,
// with the register file it starts from.
type Program struct {
	Seq  []inst.Descriptor
	Init cpu.Registers
}

// Code encodes the program, HALT included.
func (p *Program) Code() []byte {
	var code []byte
	for _, d := range p.Seq {
		code = append(code, inst.Encode(d)...)
	}
	return append(code, 0x76)
}

// Generator produces random programs from the straight-line part of the
// instruction table.
type Generator struct {
	rng    *rand.Rand
	ops    []inst.Descriptor
	maxLen int
}

// NewGenerator creates a Generator. maxLen bounds the instruction count
// before the final HALT.
func NewGenerator(rng *rand.Rand, maxLen int) *Generator {
	return &Generator{rng: rng, ops: straightLine(), maxLen: max(maxLen, 1)}
}

// straightLine lists every decodable opcode that neither transfers control
// nor stops the processor.
func straightLine() []inst.Descriptor {
	var ops []inst.Descriptor
	for op := 0; op < 256; op++ {
		d, ok := inst.Lookup(uint8(op))
		if !ok {
			continue
		}
		switch d.Op {
		case inst.PREFIX, inst.HALT, inst.JP_NN, inst.CALL_NN, inst.RET:
			continue
		}
		ops = append(ops, d)
	}
	return ops
}

// Program returns a random program of 1..maxLen instructions.
func (g *Generator) Program() *Program {
	n := 1 + g.rng.IntN(g.maxLen)
	p := &Program{Seq: make([]inst.Descriptor, n), Init: g.registers()}
	for i := range p.Seq {
		p.Seq[i] = g.randomInstruction()
	}
	return p
}

// registers returns a random register file with PC at Origin. The memory
// pointers HL, IX and IY stay above the code.
func (g *Generator) registers() cpu.Registers {
	r := cpu.Registers{
		BC:   uint16(g.rng.IntN(65536)),
		DE:   uint16(g.rng.IntN(65536)),
		AF:   uint16(g.rng.IntN(65536)),
		HL:   0x4000 + uint16(g.rng.IntN(0xB000)),
		IX:   0x4000 + uint16(g.rng.IntN(0xB000)),
		IY:   0x4000 + uint16(g.rng.IntN(0xB000)),
		SP:   uint16(g.rng.IntN(65536)),
		PC:   Origin,
		IFF1: g.rng.IntN(2) == 1,
	}
	r.IFF2 = r.IFF1
	return r
}

// randomInstruction returns a random instruction in a random index mode,
// with random displacement and immediate.
func (g *Generator) randomInstruction() inst.Descriptor {
	d := g.ops[g.rng.IntN(len(g.ops))]
	d.Index = inst.Index(g.rng.IntN(3))
	if d.Indexed() {
		d.Disp = int8(g.rng.IntN(256))
		d.HasDisp = true
	}
	if inst.HasImmediate(d.Op) {
		d.Imm = uint16(g.rng.IntN(256))
	}
	return d
}

// Mutate applies one random edit to p and returns the new program.
// p is not modified.
func (g *Generator) Mutate(p *Program) *Program {
	// 40% replace, 20% swap, 20% delete, 10% insert, 10% change-imm
	r := g.rng.IntN(100)
	switch {
	case r < 40:
		return g.replace(p)
	case r < 60:
		return g.swap(p)
	case r < 80:
		return g.delete(p)
	case r < 90:
		return g.insert(p)
	default:
		return g.changeImmediate(p)
	}
}

func (g *Generator) replace(p *Program) *Program {
	out := p.clone()
	out.Seq[g.rng.IntN(len(out.Seq))] = g.randomInstruction()
	return out
}

func (g *Generator) swap(p *Program) *Program {
	out := p.clone()
	if len(out.Seq) < 2 {
		return out
	}
	pos := g.rng.IntN(len(out.Seq) - 1)
	out.Seq[pos], out.Seq[pos+1] = out.Seq[pos+1], out.Seq[pos]
	return out
}

func (g *Generator) delete(p *Program) *Program {
	if len(p.Seq) <= 1 {
		return p.clone()
	}
	out := p.clone()
	pos := g.rng.IntN(len(out.Seq))
	out.Seq = append(out.Seq[:pos], out.Seq[pos+1:]...)
	return out
}

func (g *Generator) insert(p *Program) *Program {
	if len(p.Seq) >= g.maxLen {
		return g.replace(p)
	}
	out := p.clone()
	pos := g.rng.IntN(len(out.Seq) + 1)
	out.Seq = append(out.Seq[:pos], append([]inst.Descriptor{g.randomInstruction()}, out.Seq[pos:]...)...)
	return out
}

// changeImmediate randomizes one immediate operand, or the displacement of
// an indexed access. Falls back to replace when there is neither.
func (g *Generator) changeImmediate(p *Program) *Program {
	var pos []int
	for i, d := range p.Seq {
		if inst.HasImmediate(d.Op) || d.Indexed() {
			pos = append(pos, i)
		}
	}
	if len(pos) == 0 {
		return g.replace(p)
	}
	out := p.clone()
	d := &out.Seq[pos[g.rng.IntN(len(pos))]]
	if inst.HasImmediate(d.Op) {
		d.Imm = uint16(g.rng.IntN(256))
	} else {
		d.Disp = int8(g.rng.IntN(256))
	}
	return out
}

func (p *Program) clone() *Program {
	out := &Program{Seq: make([]inst.Descriptor, len(p.Seq)), Init: p.Init}
	copy(out.Seq, p.Seq)
	return out
}
