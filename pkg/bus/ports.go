package bus

// Device is an I/O peripheral. Output and Input see every access to a port
// the device is bound to.
type Device interface {
	Output(port, v uint8)
	Input(port uint8) uint8
}

// PortDevice is a device that knows its own port range.
type PortDevice interface {
	Device
	Ports() []uint8
}

// Ports is the 256-port I/O space.
type Ports struct {
	bound [256][]Device
}

// Bind attaches dev to port. Several devices may share a port.
func (p *Ports) Bind(port uint8, dev Device) {
	p.bound[port] = append(p.bound[port], dev)
}

// Attach binds dev to each of its ports.
func (p *Ports) Attach(dev PortDevice) {
	for _, port := range dev.Ports() {
		p.Bind(port, dev)
	}
}

// Output delivers v to every device on port.
func (p *Ports) Output(port, v uint8) {
	for _, dev := range p.bound[port] {
		dev.Output(port, v)
	}
}

// Input ORs the responses of every device on port. A port with no
// devices reads 0x00.
func (p *Ports) Input(port uint8) uint8 {
	var v uint8
	for _, dev := range p.bound[port] {
		v |= dev.Input(port)
	}
	return v
}
