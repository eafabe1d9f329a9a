package difftest

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/oisee/z80core/pkg/bus"
	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/disasm"
	"github.com/oisee/z80core/pkg/inst"
	"github.com/oisee/z80core/pkg/trace"
	"github.com/sirupsen/logrus"
)

// FingerprintLen is the size of a final-state fingerprint.
const FingerprintLen = sha256.Size

// Fingerprint hashes everything a run can change: registers, cycle count,
// halt state and memory.
func Fingerprint(s cpu.Snapshot, mem []byte) [FingerprintLen]byte {
	h := sha256.New()
	binary.Write(h, binary.LittleEndian, s.Registers)
	binary.Write(h, binary.LittleEndian, s.Cycles)
	binary.Write(h, binary.LittleEndian, s.Halted)
	binary.Write(h, binary.LittleEndian, s.Prefix)
	h.Write(mem)
	var fp [FingerprintLen]byte
	copy(fp[:], h.Sum(nil))
	return fp
}

// machine loads p into a fresh machine with the code write-protected, so
// stray stores through HL, IX or IY cannot rewrite it.
func (p *Program) machine(log logrus.FieldLogger) (*bus.Machine, error) {
	m := bus.New(bus.Config{Protect: true}, log)
	if err := m.Load(Origin, p.Code()); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Program) processor(m *bus.Machine, log *logrus.Entry, opts ...cpu.Option) *cpu.Processor {
	proc := cpu.New(m, append([]cpu.Option{cpu.WithLogger(log)}, opts...)...)
	proc.SetRegisters(p.Init)
	return proc
}

// runSteps steps proc until it halts or maxSteps steps have run.
func runSteps(proc *cpu.Processor, maxSteps int) error {
	for i := 0; i < maxSteps && !proc.Halted(); i++ {
		if err := proc.Step(); err != nil {
			return err
		}
	}
	return nil
}

// run executes p from its initial state and returns the final fingerprint.
func (p *Program) run(log *logrus.Entry, maxSteps int) ([FingerprintLen]byte, error) {
	m, err := p.machine(log)
	if err != nil {
		return [FingerprintLen]byte{}, err
	}
	proc := p.processor(m, log)
	if err := runSteps(proc, maxSteps); err != nil {
		return [FingerprintLen]byte{}, err
	}
	return Fingerprint(proc.Snapshot(), m.Mem.Bytes()), nil
}

// checkRepeat runs p twice on fresh machines.
func checkRepeat(p *Program, log *logrus.Entry, maxSteps int) error {
	a, err := p.run(log, maxSteps)
	if err != nil {
		return err
	}
	b, err := p.run(log, maxSteps)
	if err != nil {
		return err
	}
	if a != b {
		return fmt.Errorf("repeat run diverged: %x vs %x", a[:8], b[:8])
	}
	return nil
}

// checkCheckpoint stops a run after split steps, round-trips the state
// through a gob checkpoint, resumes on a new machine and compares the
// result with an uninterrupted run.
func checkCheckpoint(p *Program, log *logrus.Entry, maxSteps, split int) error {
	want, err := p.run(log, maxSteps)
	if err != nil {
		return err
	}

	m, err := p.machine(log)
	if err != nil {
		return err
	}
	proc := p.processor(m, log)
	if err := runSteps(proc, min(split, maxSteps)); err != nil {
		return err
	}

	var buf bytes.Buffer
	ckpt := &trace.Checkpoint{CPU: proc.Snapshot(), Memory: m.Mem.Bytes()}
	if err := ckpt.Encode(&buf); err != nil {
		return err
	}
	loaded, err := trace.DecodeCheckpoint(&buf)
	if err != nil {
		return err
	}

	m2, err := p.machine(log)
	if err != nil {
		return err
	}
	copy(m2.Mem.Bytes(), loaded.Memory)
	resumed := cpu.New(m2, cpu.WithLogger(log))
	resumed.Restore(loaded.CPU)
	if err := runSteps(resumed, maxSteps-min(split, maxSteps)); err != nil {
		return err
	}

	if got := Fingerprint(resumed.Snapshot(), m2.Mem.Bytes()); got != want {
		return fmt.Errorf("run resumed after %d steps diverged: %x vs %x", split, got[:8], want[:8])
	}
	return nil
}

// stepCounter counts completed non-prefix steps and their cost.
type stepCounter struct {
	ops    int
	cycles int
}

func (s *stepCounter) OnStep(d inst.Descriptor, cycles int, _ cpu.Registers) {
	s.cycles += cycles
	if d.Op != inst.PREFIX {
		s.ops++
	}
}

// checkDisasm walks p with the disassembler and the processor side by
// side. Each listed instruction must advance PC by its length and cost
// its listed T-states.
func checkDisasm(p *Program, log *logrus.Entry, maxSteps int) error {
	code := p.Code()
	m, err := p.machine(log)
	if err != nil {
		return err
	}
	counter := &stepCounter{}
	proc := p.processor(m, log, cpu.WithTracer(counter))
	dis := disasm.New(code, Origin)

	for steps := 0; steps < maxSteps && !proc.Halted(); {
		line, err := dis.Next()
		if err != nil {
			return fmt.Errorf("disassembly at %04X: %w", dis.PC(), err)
		}
		if proc.PC() != line.Addr {
			return fmt.Errorf("processor at %04X, listing at %04X", proc.PC(), line.Addr)
		}
		ops, cycles := counter.ops, counter.cycles
		for counter.ops == ops && steps < maxSteps {
			if err := proc.Step(); err != nil {
				return err
			}
			steps++
		}
		if counter.ops == ops {
			return nil // step limit inside an instruction
		}
		if want := line.Addr + uint16(len(line.Bytes)); proc.PC() != want {
			return fmt.Errorf("%04X %s: PC advanced to %04X, listing says %04X", line.Addr, line.Text, proc.PC(), want)
		}
		if spent := counter.cycles - cycles; spent != line.TStates {
			return fmt.Errorf("%04X %s: took %d T-states, listing says %d", line.Addr, line.Text, spent, line.TStates)
		}
	}
	return nil
}
