package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// hexValue is a 16-bit flag that accepts 0x100, 100h or decimal.
type hexValue uint16

var _ pflag.Value = (*hexValue)(nil)

func newHexValue(v uint16, p *uint16) *hexValue {
	*p = v
	return (*hexValue)(p)
}

func (h *hexValue) String() string { return fmt.Sprintf("0x%04X", uint16(*h)) }

func (h *hexValue) Type() string { return "hex" }

func (h *hexValue) Set(s string) error {
	v, err := parseImmediate(s)
	if err != nil {
		return err
	}
	if v < 0 || v > 0xFFFF {
		return fmt.Errorf("%s out of range", s)
	}
	*h = hexValue(v)
	return nil
}

// portValue is an optional port number; unset means the device is absent.
type portValue struct {
	port uint8
	set  bool
}

var _ pflag.Value = (*portValue)(nil)

func (p *portValue) String() string {
	if !p.set {
		return ""
	}
	return fmt.Sprintf("0x%02X", p.port)
}

func (p *portValue) Type() string { return "port" }

func (p *portValue) Set(s string) error {
	v, err := parseImmediate(s)
	if err != nil {
		return err
	}
	if v < 0 || v > 0xFF {
		return fmt.Errorf("port %s out of range", s)
	}
	p.port, p.set = uint8(v), true
	return nil
}

// parseImmediate reads 0xFF, FFh or decimal.
func parseImmediate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}

	var v int
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		_, err = fmt.Sscanf(s[2:], "%x", &v)
	case strings.HasSuffix(strings.ToUpper(s), "H"):
		_, err = fmt.Sscanf(s[:len(s)-1], "%x", &v)
	default:
		_, err = fmt.Sscanf(s, "%d", &v)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
