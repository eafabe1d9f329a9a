package cpu

import "fmt"

// DecodeError reports an opcode with no entry in the decode table.
type DecodeError struct {
	Opcode uint8
	Addr   uint16 // address the opcode was fetched from
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X at 0x%04X", e.Opcode, e.Addr)
}

// DecodePolicy selects what Step does with a DecodeError.
type DecodePolicy int

const (
	// DecodeReturn returns the *DecodeError from Step. The failed opcode
	// fetch has already advanced PC and the cycle counter.
	DecodeReturn DecodePolicy = iota

	// DecodePanic panics with the *DecodeError.
	DecodePanic
)
