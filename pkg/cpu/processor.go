package cpu

import (
	"errors"
	"fmt"

	"github.com/oisee/z80core/pkg/inst"
	"github.com/sirupsen/logrus"
)

// Processor is the step driver. It owns the register file and the cycle
// counter and drives one fetch-decode-dispatch sequence per Step.
//
// A Processor is not safe for concurrent use.
type Processor struct {
	regs   Registers
	cycles uint64
	halted bool

	index  inst.Index // mode of the instruction being decoded
	prefix inst.Index // latched by DD/FD for the next instruction

	bus      Bus
	policy   DecodePolicy
	log      *logrus.Entry
	observer Observer
	tracers  []Tracer
}

// Option configures a Processor.
type Option func(*Processor)

// WithDecodePolicy sets what Step does on an unknown opcode.
func WithDecodePolicy(policy DecodePolicy) Option {
	return func(p *Processor) { p.policy = policy }
}

// WithLogger replaces the default logger (the logrus standard logger).
func WithLogger(log *logrus.Entry) Option {
	return func(p *Processor) { p.log = log }
}

// WithObserver attaches an observer of calls and returns.
func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// WithTracer attaches a tracer of completed steps. Tracers are called in
// the order they were attached.
func WithTracer(t Tracer) Option {
	return func(p *Processor) { p.tracers = append(p.tracers, t) }
}

// New creates a processor in the Running state with all registers zero.
func New(bus Bus, opts ...Option) *Processor {
	p := &Processor{
		bus: bus,
		log: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Step executes one instruction. In the Halted state it returns nil and
// does nothing. A DecodeError is returned (or raised, under DecodePanic)
// after the opcode fetch has been charged.
func (p *Processor) Step() error {
	if p.halted {
		return nil
	}

	p.index, p.prefix = p.prefix, inst.HL
	start := p.cycles

	d, err := Decode((*executor)(p))
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			p.log.WithFields(logrus.Fields{
				"opcode": fmt.Sprintf("%02X", de.Opcode),
				"addr":   fmt.Sprintf("%04X", de.Addr),
				"cycles": p.cycles,
			}).Error("unknown opcode")
		}
		if p.policy == DecodePanic {
			panic(err)
		}
		return err
	}

	spent := int(p.cycles - start)
	for _, t := range p.tracers {
		t.OnStep(d, spent, p.regs)
	}
	if p.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		p.log.WithFields(logrus.Fields{
			"pc":     fmt.Sprintf("%04X", d.Addr),
			"op":     inst.Catalog[d.Op].Mnemonic,
			"t":      spent,
			"cycles": p.cycles,
		}).Debug("step")
	}
	return nil
}

// Halted reports whether a HALT has been executed.
func (p *Processor) Halted() bool { return p.halted }

// Cycles returns the number of T-states charged so far.
func (p *Processor) Cycles() uint64 { return p.cycles }

// PC returns the program counter.
func (p *Processor) PC() uint16 { return p.regs.PC }

// Registers returns a copy of the register file.
func (p *Processor) Registers() Registers { return p.regs }

// SetRegisters replaces the register file. Hosts use it to set the entry
// point and stack before the first Step.
func (p *Processor) SetRegisters(r Registers) { p.regs = r }

// Snapshot is everything needed to resume a processor exactly.
type Snapshot struct {
	Registers Registers
	Cycles    uint64
	Halted    bool
	Prefix    inst.Index
}

// Snapshot captures the processor state between steps.
func (p *Processor) Snapshot() Snapshot {
	return Snapshot{
		Registers: p.regs,
		Cycles:    p.cycles,
		Halted:    p.halted,
		Prefix:    p.prefix,
	}
}

// Restore resumes from a snapshot. The bus is not part of the snapshot.
func (p *Processor) Restore(s Snapshot) {
	p.regs = s.Registers
	p.cycles = s.Cycles
	p.halted = s.Halted
	p.prefix = s.Prefix
	p.index = inst.HL
}
