package cpu

// IOPorts implements PortIO using the CPU's IN and OUT instructions.
type IOPorts struct{}

// PortReadByte reads a uint8 value from the requested port.
func (IOPorts) PortReadByte(port uint16) uint8 {
	return PortReadByte(port)
}

// PortWriteByte writes a uint8 value to the requested port.
func (IOPorts) PortWriteByte(port uint16, val uint8) {
	PortWriteByte(port, val)
}
