package device

import "io"

// 8251 status bits.
const (
	TxReady uint8 = 0x01
	RxReady uint8 = 0x02
)

// UART8251 is an Intel 8251 USART with the data register at an even base
// port and the control/status register at base+1.
type UART8251 struct {
	base uint8
	out  io.Writer
	rx   rxLatch
}

// NewUART8251 returns a UART at base. The low bit of base is ignored.
func NewUART8251(base uint8, out io.Writer, in Source) *UART8251 {
	return &UART8251{base: base &^ 1, out: out, rx: rxLatch{src: in}}
}

func (u *UART8251) Ports() []uint8 { return []uint8{u.base, u.base + 1} }

func (u *UART8251) Output(port, v uint8) {
	// mode and command words written to base+1 are accepted and ignored
	if port == u.base && u.out != nil {
		u.out.Write([]byte{v})
	}
}

func (u *UART8251) Input(port uint8) uint8 {
	switch port {
	case u.base:
		return u.rx.take()
	case u.base + 1:
		status := TxReady
		if u.rx.ready() {
			status |= RxReady
		}
		return status
	}
	return 0
}
