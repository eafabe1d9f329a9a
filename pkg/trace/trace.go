// Package trace records executed steps and saves resumable checkpoints.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/disasm"
	"github.com/oisee/z80core/pkg/inst"
)

// Entry is one completed step.
type Entry struct {
	PC     uint16 `json:"pc"`
	Next   uint16 `json:"next"` // PC after the step
	Opcode uint8  `json:"opcode"`
	Op     string `json:"op"`
	Index  string `json:"index,omitempty"`
	Text   string `json:"text,omitempty"`
	Cycles int    `json:"cycles"`
	Total  uint64 `json:"total"`
}

// Recorder collects entries. It implements cpu.Tracer.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	total   uint64

	// Text adds disassembly to each entry.
	Text bool
	// Max bounds the number of entries kept; older ones are dropped. 0 keeps all.
	Max int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnStep(d inst.Descriptor, cycles int, regs cpu.Registers) {
	e := Entry{
		PC:     d.Addr,
		Next:   regs.PC,
		Opcode: d.Opcode,
		Op:     inst.Catalog[d.Op].Mnemonic,
		Cycles: cycles,
	}
	if d.Index != inst.HL && d.Op != inst.PREFIX {
		e.Index = d.Index.String()
	}
	if r.Text && d.Op != inst.PREFIX {
		e.Text = format(d)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.total += uint64(cycles)
	e.Total = r.total
	r.entries = append(r.entries, e)
	if r.Max > 0 && len(r.entries) > r.Max {
		r.entries = r.entries[len(r.entries)-r.Max:]
	}
}

// format renders d by re-encoding it and disassembling the bytes. A
// prefixed instruction's image starts one byte before its opcode.
func format(d inst.Descriptor) string {
	code := inst.Encode(d)
	line, err := disasm.New(code, d.Addr-uint16(len(code)-inst.ByteSize(d))).Next()
	if err != nil {
		return ""
	}
	return line.Text
}

// Entries returns a copy of the recorded entries, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries kept.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// WriteJSON writes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// ReadJSON reads entries written by WriteJSON.
func ReadJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return entries, nil
}

// WritePCList writes, in decimal and one per line, the PC reached after
// each instruction. Prefix steps are folded into the instruction they
// select, so they add no line of their own.
func WritePCList(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if e.Op == inst.Catalog[inst.PREFIX].Mnemonic {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\n", e.Next); err != nil {
			return err
		}
	}
	return nil
}
