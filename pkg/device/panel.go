package device

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// PanelPort is the front panel's LED/switch port.
const PanelPort uint8 = 0xFF

// Panel is the front panel: writes light the LEDs (active low), reads
// return the switch setting, which is asked for on a line-oriented reader.
type Panel struct {
	switches io.Reader
	prompt   io.Writer
	log      logrus.FieldLogger

	LED uint8 // last value written
}

func NewPanel(switches io.Reader, prompt io.Writer, log logrus.FieldLogger) *Panel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Panel{switches: switches, prompt: prompt, log: log}
}

func (p *Panel) Ports() []uint8 { return []uint8{PanelPort} }

func (p *Panel) Output(_, v uint8) {
	p.LED = v
	p.log.WithFields(logrus.Fields{
		"value": fmt.Sprintf("0x%02x", v),
		"lit":   fmt.Sprintf("0x%02x", ^v),
		"dec":   ^v,
	}).Info("output LED")
}

// Input reads one integer from the switch reader. Anything that does not
// parse reads as 0x00.
func (p *Panel) Input(uint8) uint8 {
	if p.switches == nil {
		return 0
	}
	if p.prompt != nil {
		fmt.Fprint(p.prompt, "Reading from SWITCH: ")
	}
	var value int
	if _, err := fmt.Fscan(p.switches, &value); err != nil {
		p.log.WithError(err).Warn("switch input")
		return 0
	}
	v := uint8(value)
	p.log.WithFields(logrus.Fields{
		"hex":      fmt.Sprintf("0x%02x", v),
		"signed":   int8(v),
		"unsigned": v,
	}).Info("parsed switches")
	return v
}
