package bus

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Config controls the memory map.
type Config struct {
	Limit   int  // first unmapped address; 0 means the full 64 KiB
	Protect bool // write-protect the loaded image
}

// Machine implements the processor's bus over a Memory and Ports.
type Machine struct {
	Mem   *Memory
	Ports *Ports

	cfg    Config
	cycles uint64
	faults []error
	log    logrus.FieldLogger
}

// New returns a machine with empty memory and no devices.
func New(cfg Config, log logrus.FieldLogger) *Machine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Machine{
		Mem:   NewMemory(),
		Ports: &Ports{},
		cfg:   cfg,
		log:   log,
	}
	if cfg.Limit > 0 {
		m.Mem.SetLimit(cfg.Limit)
	}
	return m
}

// Load places image at origin, protecting it when the config asks for that.
func (m *Machine) Load(origin uint16, image []byte) error {
	n, err := m.Mem.Load(origin, image)
	if m.cfg.Protect {
		m.Mem.Protect(origin, n)
	}
	if err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{
		"origin": fmt.Sprintf("%04X", origin),
		"bytes":  n,
	}).Info("image loaded")
	return nil
}

func (m *Machine) Fetch(addr uint16) uint8 { return m.Mem.Read(addr) }

func (m *Machine) Read(addr uint16) uint8 { return m.Mem.Read(addr) }

func (m *Machine) Write(addr uint16, v uint8) {
	err := m.Mem.Write(addr, v)
	if err == nil {
		return
	}
	m.faults = append(m.faults, err)
	m.log.WithFields(logrus.Fields{
		"addr":   fmt.Sprintf("%04X", addr),
		"cycles": m.cycles,
	}).Warn(err)
}

func (m *Machine) Input(port uint8) uint8 { return m.Ports.Input(port) }

func (m *Machine) Output(port, v uint8) { m.Ports.Output(port, v) }

func (m *Machine) Tick(cycles int) { m.cycles += uint64(cycles) }

// Cycles returns the T-states ticked on the bus.
func (m *Machine) Cycles() uint64 { return m.cycles }

// Faults returns every dropped write so far.
func (m *Machine) Faults() []error { return m.faults }

// ProtectionFault returns the first write into the protected image, or nil.
// Hosts stop on it; unmapped writes are only logged.
func (m *Machine) ProtectionFault() error {
	for _, err := range m.faults {
		var re *RangeError
		if errors.As(err, &re) && re.Kind == Protected {
			return err
		}
	}
	return nil
}
