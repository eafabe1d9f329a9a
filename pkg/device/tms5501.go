package device

import "io"

// TMS5501 status bits.
const (
	TxEmpty uint8 = 0x80
	RxFull  uint8 = 0x40
)

// TMS5501 is the serial channel of a TI TMS5501: status at base, data at base+1.
type TMS5501 struct {
	base uint8
	out  io.Writer
	rx   rxLatch
}

func NewTMS5501(base uint8, out io.Writer, in Source) *TMS5501 {
	return &TMS5501{base: base, out: out, rx: rxLatch{src: in}}
}

func (s *TMS5501) Ports() []uint8 { return []uint8{s.base, s.base + 1} }

func (s *TMS5501) Output(port, v uint8) {
	if port == s.base+1 && s.out != nil {
		s.out.Write([]byte{v})
	}
}

func (s *TMS5501) Input(port uint8) uint8 {
	switch port {
	case s.base:
		status := TxEmpty
		if s.rx.ready() {
			status |= RxFull
		}
		return status
	case s.base + 1:
		return s.rx.take()
	}
	return 0
}
