package console

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/oisee/z80core/pkg/device"
	"github.com/sirupsen/logrus/hooks/test"
)

func pollWithin(c *Console, d time.Duration) (byte, bool) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if b, ok := c.Poll(); ok {
			return b, true
		}
		time.Sleep(time.Millisecond)
	}
	return 0, false
}

func TestPoll(t *testing.T) {
	c := New(strings.NewReader("hi"), &bytes.Buffer{})
	defer c.Restore()

	for _, want := range []byte("hi") {
		got, ok := pollWithin(c, time.Second)
		if !ok || got != want {
			t.Fatalf("got %q, %v; want %q", got, ok, want)
		}
	}
	if b, ok := c.Poll(); ok {
		t.Errorf("drained console returned %q", b)
	}
}

func TestWrite(t *testing.T) {
	var out bytes.Buffer
	c := New(nil, &out)
	if _, err := c.Write([]byte("OK\r\n")); err != nil {
		t.Fatal(err)
	}
	if out.String() != "OK\r\n" {
		t.Errorf("got %q", out.String())
	}
	if err := c.Restore(); err != nil {
		t.Error(err)
	}
	if err := c.Restore(); err != nil {
		t.Errorf("second Restore: %v", err)
	}
}

func TestRead(t *testing.T) {
	c := New(strings.NewReader("abc"), &bytes.Buffer{})
	defer c.Restore()

	got, err := io.ReadAll(c)
	if err != nil || string(got) != "abc" {
		t.Errorf("ReadAll = %q, %v", got, err)
	}
	if n, err := c.Read(make([]byte, 4)); n != 0 || err != io.EOF {
		t.Errorf("after EOF: %d, %v", n, err)
	}

	if _, err := New(nil, &bytes.Buffer{}).Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("console without input: %v", err)
	}
}

func TestReadUnblocksOnRestore(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := New(r, &bytes.Buffer{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Read(make([]byte, 1))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	c.Restore()

	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("got %v, want EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read still blocked after Restore")
	}
}

// TestPanelSharesInput reads the switches through the console so the bytes
// after the number are still there for Poll.
func TestPanelSharesInput(t *testing.T) {
	c := New(strings.NewReader("12 x"), &bytes.Buffer{})
	defer c.Restore()
	log, _ := test.NewNullLogger()
	panel := device.NewPanel(c, nil, log)

	if v := panel.Input(device.PanelPort); v != 12 {
		t.Errorf("switches = %d, want 12", v)
	}
	if b, ok := pollWithin(c, time.Second); !ok || b != 'x' {
		t.Errorf("Poll = %q, %v; want 'x'", b, ok)
	}
}
