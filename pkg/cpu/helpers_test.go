package cpu

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// testBus is a flat 64K memory with recorded port traffic and a log of
// every bus call in order.
type testBus struct {
	mem    [0x10000]uint8
	in     [256]uint8
	out    []string
	calls  []string
	ticked int
}

func newTestBus(origin uint16, code ...uint8) *testBus {
	b := &testBus{}
	copy(b.mem[origin:], code)
	return b
}

func (b *testBus) Fetch(addr uint16) uint8 {
	b.calls = append(b.calls, fmt.Sprintf("fetch %04X", addr))
	return b.mem[addr]
}

func (b *testBus) Read(addr uint16) uint8 {
	b.calls = append(b.calls, fmt.Sprintf("read %04X", addr))
	return b.mem[addr]
}

func (b *testBus) Write(addr uint16, v uint8) {
	b.calls = append(b.calls, fmt.Sprintf("write %04X %02X", addr, v))
	b.mem[addr] = v
}

func (b *testBus) Input(port uint8) uint8 {
	b.calls = append(b.calls, fmt.Sprintf("in %02X", port))
	return b.in[port]
}

func (b *testBus) Output(port uint8, v uint8) {
	b.calls = append(b.calls, fmt.Sprintf("out %02X %02X", port, v))
	b.out = append(b.out, fmt.Sprintf("%02X=%02X", port, v))
}

func (b *testBus) Tick(cycles int) {
	b.ticked += cycles
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestProcessor(b *testBus, opts ...Option) *Processor {
	return New(b, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

// mustStep steps p n times and fails on the first error.
func mustStep(t interface {
	Helper()
	Fatalf(string, ...any)
}, p *Processor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := p.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}
