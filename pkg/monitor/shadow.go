// Package monitor holds host-side checks that watch the processor without
// changing what it does.
package monitor

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ConsistencyError is a RET that did not go where the matching CALL said it would.
type ConsistencyError struct {
	From  uint16 // address of the RET
	Want  uint16 // return address pushed by the last CALL
	Got   uint16 // address actually returned to
	Empty bool   // RET with no CALL outstanding
}

func (e *ConsistencyError) Error() string {
	if e.Empty {
		return fmt.Sprintf("return at 0x%04X to 0x%04X with empty shadow call stack", e.From, e.Got)
	}
	return fmt.Sprintf("return at 0x%04X: expected 0x%04X but got 0x%04X", e.From, e.Want, e.Got)
}

// ShadowStack mirrors the call stack from CALL and RET events and reports
// returns that do not match. It implements cpu.Observer.
type ShadowStack struct {
	frames []uint16
	errs   []error
	log    logrus.FieldLogger

	// OnError, if set, is called with each ConsistencyError.
	OnError func(error)
}

func NewShadowStack(log logrus.FieldLogger) *ShadowStack {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ShadowStack{log: log}
}

func (s *ShadowStack) OnCall(from, target, ret uint16) {
	s.frames = append(s.frames, ret)
}

func (s *ShadowStack) OnReturn(from, target uint16) {
	if len(s.frames) == 0 {
		s.report(&ConsistencyError{From: from, Got: target, Empty: true})
		return
	}
	want := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	if want != target {
		s.report(&ConsistencyError{From: from, Want: want, Got: target})
	}
}

func (s *ShadowStack) report(err *ConsistencyError) {
	s.errs = append(s.errs, err)
	s.log.WithField("depth", len(s.frames)).Warn(err)
	if s.OnError != nil {
		s.OnError(err)
	}
}

// Depth returns the number of outstanding calls.
func (s *ShadowStack) Depth() int { return len(s.frames) }

// Frames returns the outstanding return addresses, innermost last.
func (s *ShadowStack) Frames() []uint16 {
	return append([]uint16(nil), s.frames...)
}

// Mismatches returns the number of inconsistent returns seen.
func (s *ShadowStack) Mismatches() int { return len(s.errs) }

// Errors returns every ConsistencyError in order.
func (s *ShadowStack) Errors() []error { return s.errs }
