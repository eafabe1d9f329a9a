// Package disasm renders machine code as Zilog assembly text. It drives the
// same decoder as the processor, with cycle hooks that read from a byte
// slice and action hooks that print instead of executing.
package disasm

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/inst"
)

// ErrTruncated is returned when an instruction runs past the end of the image.
var ErrTruncated = errors.New("instruction truncated by end of image")

// Line is one disassembled instruction. Prefix bytes are folded into the
// instruction they apply to.
type Line struct {
	Addr    uint16
	Bytes   []byte
	Text    string
	TStates int
	Desc    inst.Descriptor
}

func (l Line) String() string {
	var hex strings.Builder
	for i, b := range l.Bytes {
		if i > 0 {
			hex.WriteByte(' ')
		}
		fmt.Fprintf(&hex, "%02X", b)
	}
	return fmt.Sprintf("%04X  %-12s %s", l.Addr, hex.String(), l.Text)
}

// Disassembler walks an image loaded at origin.
type Disassembler struct {
	mem    []byte
	origin uint16

	pos    int // offset of the next byte in mem; never wraps
	last   uint16
	index  inst.Index
	prefix inst.Index
	short  bool

	bytes []byte
	text  []byte
}

// New returns a disassembler positioned at origin. Bytes that would lie
// beyond 0xFFFF are not part of the image.
func New(mem []byte, origin uint16) *Disassembler {
	if limit := 0x10000 - int(origin); len(mem) > limit {
		mem = mem[:limit]
	}
	return &Disassembler{mem: mem, origin: origin}
}

// PC returns the address of the next instruction.
func (d *Disassembler) PC() uint16 { return d.origin + uint16(d.pos) }

// Seek moves to addr. An address below origin is treated as the end of
// the image.
func (d *Disassembler) Seek(addr uint16) {
	d.pos = int(addr) - int(d.origin)
	if d.pos < 0 {
		d.pos = len(d.mem)
	}
	d.prefix = inst.HL
}

func (d *Disassembler) atEnd() bool {
	return d.pos >= len(d.mem)
}

// Next decodes the instruction at PC. It returns io.EOF at the end of the
// image. On an unknown opcode it returns a *cpu.DecodeError together with a
// Line that renders the consumed bytes as a DB directive, so a listing can
// continue past it.
func (d *Disassembler) Next() (Line, error) {
	if d.atEnd() {
		return Line{}, io.EOF
	}
	line := Line{Addr: d.PC()}
	d.bytes = d.bytes[:0]

	for {
		d.index, d.prefix = d.prefix, inst.HL
		d.short = false
		d.text = d.text[:0]

		desc, err := cpu.Decode(d)
		line.Bytes = append([]byte(nil), d.bytes...)
		if d.short {
			line.Text = string(appendDB(nil, line.Bytes))
			return line, fmt.Errorf("%04X: %w", line.Addr, ErrTruncated)
		}
		if err != nil {
			line.Text = string(appendDB(nil, line.Bytes))
			return line, err
		}
		line.TStates += inst.TStates(desc)
		if desc.Op != inst.PREFIX {
			line.Desc = desc
			line.Text = string(d.text)
			return line, nil
		}
		if d.atEnd() {
			line.Text = string(appendDB(nil, line.Bytes))
			return line, fmt.Errorf("%04X: %w", line.Addr, ErrTruncated)
		}
	}
}

// Listing writes up to n lines to w, or the whole image when n <= 0.
// Unknown opcodes are listed as DB and skipped.
func (d *Disassembler) Listing(w io.Writer, n int) error {
	for i := 0; n <= 0 || i < n; i++ {
		line, err := d.Next()
		if err == io.EOF {
			return nil
		}
		var de *cpu.DecodeError
		if err != nil && !errors.As(err, &de) && !errors.Is(err, ErrTruncated) {
			return err
		}
		if _, werr := fmt.Fprintln(w, line); werr != nil {
			return werr
		}
		if errors.Is(err, ErrTruncated) {
			return nil
		}
	}
	return nil
}

// cycle hooks

func (d *Disassembler) read() uint8 {
	if d.atEnd() {
		d.short = true
		return 0
	}
	b := d.mem[d.pos]
	d.pos++
	d.bytes = append(d.bytes, b)
	return b
}

func (d *Disassembler) FetchCycle() uint8 {
	d.last = d.PC()
	return d.read()
}

func (d *Disassembler) ImmCycle(bool) uint8 { return d.read() }

func (d *Disassembler) Exec5Cycle(uint16) {}

func (d *Disassembler) IndexMode() inst.Index { return d.index }

func (d *Disassembler) LastFetchAddr() uint16 { return d.last }

func (d *Disassembler) OnPrefix(idx inst.Index) { d.prefix = idx }

// action hooks

func (d *Disassembler) emit(s string) { d.text = append(d.text, s...) }

func (d *Disassembler) OnNop() { d.emit("NOP") }

func (d *Disassembler) OnHalt() { d.emit("HALT") }

func (d *Disassembler) OnDI() { d.emit("DI") }

func (d *Disassembler) OnEI() { d.emit("EI") }

// operand appends r. H and L follow the index mode unless plain is set;
// (HL) becomes (IX+d) or (IY+d) under a prefix.
func (d *Disassembler) operand(r inst.Reg, disp int8, plain bool) {
	idx := d.index
	switch {
	case r == inst.AtHL && idx != inst.HL:
		d.text = append(d.text, '(')
		d.emit(idx.String())
		d.text = appendDisp(d.text, disp)
		d.text = append(d.text, ')')
	case (r == inst.H || r == inst.L) && idx != inst.HL && !plain:
		d.emit(idx.String())
		d.emit(r.String())
	default:
		d.emit(r.String())
	}
}

func (d *Disassembler) aluPrefix(k inst.ALU) {
	d.emit(k.String())
	switch k {
	case inst.ADD, inst.ADC, inst.SBC:
		d.emit(" A, ")
	default:
		d.emit(" ")
	}
}

func (d *Disassembler) OnALU(k inst.ALU, r inst.Reg, disp int8) {
	d.aluPrefix(k)
	d.operand(r, disp, false)
}

func (d *Disassembler) OnALUImm(k inst.ALU, n uint8) {
	d.aluPrefix(k)
	d.text = appendHex8(d.text, n)
}

func (d *Disassembler) OnLoad(dst, src inst.Reg, disp int8) {
	plain := dst == inst.AtHL || src == inst.AtHL
	d.emit("LD ")
	d.operand(dst, disp, plain)
	d.emit(", ")
	d.operand(src, disp, plain)
}

func (d *Disassembler) OnLoadImm(dst inst.Reg, disp int8, n uint8) {
	d.emit("LD ")
	d.operand(dst, disp, false)
	d.emit(", ")
	d.text = appendHex8(d.text, n)
}

func (d *Disassembler) OnJump(nn uint16) {
	d.emit("JP ")
	d.text = appendHex16(d.text, nn)
}

func (d *Disassembler) OnCall(nn uint16) {
	d.emit("CALL ")
	d.text = appendHex16(d.text, nn)
}

func (d *Disassembler) OnReturn() { d.emit("RET") }

func (d *Disassembler) OnOut(n uint8) {
	d.emit("OUT (")
	d.text = appendHex8(d.text, n)
	d.emit("), A")
}

func (d *Disassembler) OnIn(n uint8) {
	d.emit("IN A, (")
	d.text = appendHex8(d.text, n)
	d.emit(")")
}
