package monitor

import (
	"fmt"
	"io"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/inst"
)

// writerPairs are the pairs whose last writer is tracked, in dump order.
var writerPairs = [...]struct {
	name string
	pair cpu.Pair
}{
	{"BC", cpu.BC},
	{"DE", cpu.DE},
	{"HL", cpu.HL},
	{"IX", cpu.IX},
	{"IY", cpu.IY},
}

// Writers remembers, for each register pair, the address of the last
// instruction that changed it. It implements cpu.Tracer.
type Writers struct {
	prev    cpu.Registers
	at      [len(writerPairs)]uint16
	written [len(writerPairs)]bool
}

func NewWriters() *Writers {
	return &Writers{}
}

// Reset forgets every writer and takes r as the state before the next step.
// Call it after setting the entry registers or restoring a checkpoint.
func (w *Writers) Reset(r cpu.Registers) {
	*w = Writers{prev: r}
}

func (w *Writers) OnStep(d inst.Descriptor, _ int, regs cpu.Registers) {
	for i, wp := range writerPairs {
		if regs.Pair(wp.pair) != w.prev.Pair(wp.pair) {
			w.at[i] = d.Addr
			w.written[i] = true
		}
	}
	w.prev = regs
}

// WrittenAt returns the address of the last instruction that changed p.
// ok is false when nothing has changed it since the last Reset, or when p
// is not tracked.
func (w *Writers) WrittenAt(p cpu.Pair) (addr uint16, ok bool) {
	for i, wp := range writerPairs {
		if wp.pair == p {
			return w.at[i], w.written[i]
		}
	}
	return 0, false
}

// DumpWriters prints each tracked pair with the instruction that last wrote it.
func DumpWriters(out io.Writer, r cpu.Registers, w *Writers) {
	fmt.Fprintln(out, "Regs:")
	for _, wp := range writerPairs {
		v := r.Pair(wp.pair)
		if at, ok := w.WrittenAt(wp.pair); ok {
			fmt.Fprintf(out, "    %s=0x%04x written at PC=0x%04x\n", wp.name, v, at)
		} else {
			fmt.Fprintf(out, "    %s=0x%04x not written\n", wp.name, v)
		}
	}
}
