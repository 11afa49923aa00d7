package cpu

// PostCodePort is the BIOS POST diagnostic port. Writing to it has no effect
// other than taking roughly one microsecond to complete, which makes it a
// convenient delay between consecutive commands to slow legacy devices.
const PostCodePort = uint16(0x80)

// PortIO is implemented by objects that can perform single-byte port I/O.
// Drivers talk to their hardware exclusively through this interface so they
// can be exercised against software device models.
type PortIO interface {
	// PortReadByte reads a uint8 value from the requested port.
	PortReadByte(port uint16) uint8

	// PortWriteByte writes a uint8 value to the requested port.
	PortWriteByte(port uint16, val uint8)
}

// IOWait gives the device behind the last port write time to settle.
func IOWait(p PortIO) {
	p.PortWriteByte(PostCodePort, 0)
}
