// Package device models the serial boards and front panel of an IMSAI-style
// host. Each device implements bus.PortDevice.
package device

// Source supplies received bytes without blocking.
type Source interface {
	Poll() (byte, bool)
}

// rxLatch holds at most one received byte, like a receive holding register.
type rxLatch struct {
	src  Source
	data byte
	full bool
}

// ready reports whether a byte is waiting, pulling one from the source if
// the latch is empty.
func (l *rxLatch) ready() bool {
	if !l.full && l.src != nil {
		l.data, l.full = l.src.Poll()
	}
	return l.full
}

// take empties the latch. An empty latch reads 0x00.
func (l *rxLatch) take() byte {
	if !l.ready() {
		return 0
	}
	l.full = false
	return l.data
}
