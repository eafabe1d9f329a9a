package cpu

import "github.com/oisee/z80core/pkg/inst"

// Pair names a 16-bit register pair.
type Pair uint8

const (
	BC Pair = iota
	DE
	HL
	AF
	IX
	IY
	SP
)

// Registers is the processor state. HL, IX and IY are independent fields;
// aliasing of logical H and L onto IX or IY happens in the accessors.
// The struct is plain data so it copies by value and encodes with gob.
type Registers struct {
	BC, DE, HL, AF uint16
	IX, IY         uint16
	SP             uint16
	PC             uint16
	MemPtr         uint16 // internal WZ register

	IFF1, IFF2 bool

	LastFetchAddr uint16
}

// Equal returns true if two register files are identical.
func (r Registers) Equal(o Registers) bool {
	return r == o
}

// High8 returns the high byte of n.
func High8(n uint16) uint8 { return uint8(n >> 8) }

// Low8 returns the low byte of n.
func Low8(n uint16) uint8 { return uint8(n) }

// Make16 joins a high and a low byte.
func Make16(hi, lo uint8) uint16 { return uint16(hi)<<8 | uint16(lo) }

func (r Registers) B() uint8 { return High8(r.BC) }
func (r Registers) C() uint8 { return Low8(r.BC) }
func (r Registers) D() uint8 { return High8(r.DE) }
func (r Registers) E() uint8 { return Low8(r.DE) }
func (r Registers) A() uint8 { return High8(r.AF) }
func (r Registers) F() uint8 { return Low8(r.AF) }

func (r *Registers) SetB(n uint8) { r.BC = Make16(n, r.C()) }
func (r *Registers) SetC(n uint8) { r.BC = Make16(r.B(), n) }
func (r *Registers) SetD(n uint8) { r.DE = Make16(n, r.E()) }
func (r *Registers) SetE(n uint8) { r.DE = Make16(r.D(), n) }
func (r *Registers) SetA(n uint8) { r.AF = Make16(n, r.F()) }
func (r *Registers) SetF(n uint8) { r.AF = Make16(r.A(), n) }

// index returns the storage that backs logical H and L under idx.
func (r *Registers) index(idx inst.Index) *uint16 {
	switch idx {
	case inst.IX:
		return &r.IX
	case inst.IY:
		return &r.IY
	}
	return &r.HL
}

// H returns logical H: H, IXH or IYH.
func (r *Registers) H(idx inst.Index) uint8 { return High8(*r.index(idx)) }

// L returns logical L: L, IXL or IYL.
func (r *Registers) L(idx inst.Index) uint8 { return Low8(*r.index(idx)) }

// SetH writes logical H. The other two index registers are untouched.
func (r *Registers) SetH(idx inst.Index, n uint8) {
	p := r.index(idx)
	*p = Make16(n, Low8(*p))
}

// SetL writes logical L. The other two index registers are untouched.
func (r *Registers) SetL(idx inst.Index, n uint8) {
	p := r.index(idx)
	*p = Make16(High8(*p), n)
}

// Index returns HL, IX or IY.
func (r *Registers) Index(idx inst.Index) uint16 {
	l := r.L(idx)
	h := r.H(idx)
	return Make16(h, l)
}

// SetIndex writes HL, IX or IY.
func (r *Registers) SetIndex(idx inst.Index, nn uint16) {
	r.SetL(idx, Low8(nn))
	r.SetH(idx, High8(nn))
}

// Reg8 reads one of B, C, D, E, H, L, A with H and L aliased by idx.
// AtHL is not a register and reads as zero.
func (r *Registers) Reg8(reg inst.Reg, idx inst.Index) uint8 {
	switch reg {
	case inst.B:
		return r.B()
	case inst.C:
		return r.C()
	case inst.D:
		return r.D()
	case inst.E:
		return r.E()
	case inst.H:
		return r.H(idx)
	case inst.L:
		return r.L(idx)
	case inst.A:
		return r.A()
	}
	return 0
}

// SetReg8 writes one of B, C, D, E, H, L, A with H and L aliased by idx.
func (r *Registers) SetReg8(reg inst.Reg, idx inst.Index, n uint8) {
	switch reg {
	case inst.B:
		r.SetB(n)
	case inst.C:
		r.SetC(n)
	case inst.D:
		r.SetD(n)
	case inst.E:
		r.SetE(n)
	case inst.H:
		r.SetH(idx, n)
	case inst.L:
		r.SetL(idx, n)
	case inst.A:
		r.SetA(n)
	}
}

// Pair reads a register pair, low byte first.
func (r *Registers) Pair(p Pair) uint16 {
	switch p {
	case BC:
		lo := r.C()
		return Make16(r.B(), lo)
	case DE:
		lo := r.E()
		return Make16(r.D(), lo)
	case HL:
		return r.Index(inst.HL)
	case AF:
		lo := r.F()
		return Make16(r.A(), lo)
	case IX:
		return r.Index(inst.IX)
	case IY:
		return r.Index(inst.IY)
	}
	return r.SP
}

// SetPair writes a register pair, low byte first.
func (r *Registers) SetPair(p Pair, nn uint16) {
	lo, hi := Low8(nn), High8(nn)
	switch p {
	case BC:
		r.SetC(lo)
		r.SetB(hi)
	case DE:
		r.SetE(lo)
		r.SetD(hi)
	case HL:
		r.SetIndex(inst.HL, nn)
	case AF:
		r.SetF(lo)
		r.SetA(hi)
	case IX:
		r.SetIndex(inst.IX, nn)
	case IY:
		r.SetIndex(inst.IY, nn)
	default:
		r.SP = nn
	}
}
