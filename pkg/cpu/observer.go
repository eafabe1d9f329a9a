package cpu

import "github.com/oisee/z80core/pkg/inst"

// Observer is notified of control transfers through the call stack.
// Observers see the transfer after it has happened and cannot change it.
type Observer interface {
	// OnCall: the CALL at from jumped to target and pushed ret.
	OnCall(from, target, ret uint16)
	// OnReturn: the RET at from popped target.
	OnReturn(from, target uint16)
}

// Tracer receives every completed step.
type Tracer interface {
	OnStep(d inst.Descriptor, cycles int, regs Registers)
}
