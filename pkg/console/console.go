// Package console connects serial devices to the user's terminal. On a tty
// the input side runs in cbreak mode so single keystrokes reach the guest
// without waiting for a newline.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/term"
	xterm "golang.org/x/term"
)

// ttyPollInterval is how often a blocked Read checks the tty.
const ttyPollInterval = 10 * time.Millisecond

// Console is a byte stream: Write sends guest output to the terminal and
// Poll returns pending keyboard input without blocking. Read blocks for
// input, so line-oriented readers can share the same keyboard.
type Console struct {
	out io.Writer
	tty *term.Term

	mu      sync.Mutex
	pending []byte
	eof     bool          // no more input will arrive
	ready   chan struct{} // signalled when pending grows or input ends
	closed  chan struct{}
}

// Open attaches to stdin and stdout. When stdin is a terminal it is put in
// cbreak mode until Restore is called.
func Open() (*Console, error) {
	if !xterm.IsTerminal(int(os.Stdin.Fd())) {
		return New(os.Stdin, os.Stdout), nil
	}
	tty, err := term.Open("/dev/tty", term.CBreakMode)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return &Console{out: os.Stdout, tty: tty, ready: make(chan struct{}, 1), closed: make(chan struct{})}, nil
}

// New returns a console over plain streams. Input is read in the
// background and buffered for Poll.
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, ready: make(chan struct{}, 1), closed: make(chan struct{})}
	if in == nil {
		c.eof = true
		return c
	}
	go c.pump(in)
	return c
}

func (c *Console) pump(in io.Reader) {
	buf := make([]byte, 64)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.pending = append(c.pending, buf[:n]...)
			c.mu.Unlock()
			c.signal()
		}
		if err != nil {
			c.mu.Lock()
			c.eof = true
			c.mu.Unlock()
			c.signal()
			return
		}
		select {
		case <-c.closed:
			return
		default:
		}
	}
}

// Poll returns the next input byte if one is waiting.
func (c *Console) Poll() (byte, bool) {
	if c.tty != nil {
		c.fill()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return 0, false
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, true
}

func (c *Console) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Read blocks until input is pending and returns as much of it as fits in
// p. It returns io.EOF once the input has ended and been drained, or after
// Restore.
func (c *Console) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if c.tty != nil {
			c.fill()
		}
		c.mu.Lock()
		if len(c.pending) > 0 {
			n := copy(p, c.pending)
			c.pending = c.pending[n:]
			c.mu.Unlock()
			return n, nil
		}
		eof := c.eof
		c.mu.Unlock()
		if eof {
			return 0, io.EOF
		}

		var tick <-chan time.Time
		if c.tty != nil {
			tick = time.After(ttyPollInterval)
		}
		select {
		case <-c.ready:
		case <-tick:
		case <-c.closed:
			return 0, io.EOF
		}
	}
}

// fill moves whatever the tty has buffered into pending.
func (c *Console) fill() {
	n, err := c.tty.Available()
	if err != nil || n == 0 {
		return
	}
	buf := make([]byte, n)
	n, _ = c.tty.Read(buf)
	c.mu.Lock()
	c.pending = append(c.pending, buf[:n]...)
	c.mu.Unlock()
}

func (c *Console) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// Restore returns the terminal to the mode it was opened in.
func (c *Console) Restore() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	if c.tty == nil {
		return nil
	}
	if err := c.tty.Restore(); err != nil {
		return err
	}
	return c.tty.Close()
}
