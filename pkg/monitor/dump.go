package monitor

import (
	"fmt"
	"io"

	"github.com/oisee/z80core/pkg/cpu"
)

// DumpStack prints the words around sp in increasing address order,
// marking the one sp points at. read is the memory read function.
func DumpStack(w io.Writer, sp uint16, read func(uint16) uint8) {
	start := max(int(sp)-32, 0)
	end := min(int(sp)+11, 0xFFFE)

	fmt.Fprintln(w, "stack (increasing address):")
	for addr := start; addr <= end; addr += 2 {
		mark := "    "
		if uint16(addr) == sp {
			mark = "sp->"
		}
		a := uint16(addr)
		fmt.Fprintf(w, "%s%02X%02X\n", mark, read(a+1), read(a))
	}
}

// DumpRegisters prints the register file in one block.
func DumpRegisters(w io.Writer, r cpu.Registers) {
	fmt.Fprintf(w, "AF=%04X BC=%04X DE=%04X HL=%04X\n", r.AF, r.BC, r.DE, r.HL)
	fmt.Fprintf(w, "IX=%04X IY=%04X SP=%04X PC=%04X WZ=%04X\n", r.IX, r.IY, r.SP, r.PC, r.MemPtr)
	fmt.Fprintf(w, "IFF1=%d IFF2=%d\n", b2i(r.IFF1), b2i(r.IFF2))
}

// DumpCode prints the bytes from pc-10 through pc.
func DumpCode(w io.Writer, pc uint16, read func(uint16) uint8) {
	start := max(int(pc)-10, 0)
	for a := start; a <= int(pc); a++ {
		fmt.Fprintf(w, "%02X ", read(uint16(a)))
	}
	fmt.Fprintln(w)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
