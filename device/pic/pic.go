// Package pic drives the legacy pair of cascaded 8259A programmable interrupt
// controllers found on every PC-compatible machine.
package pic

import (
	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/cpu"
)

// I/O ports of the master and slave controllers.
const (
	MasterCommandPort = uint16(0x20)
	MasterDataPort    = uint16(0x21)
	SlaveCommandPort  = uint16(0xa0)
	SlaveDataPort     = uint16(0xa1)
)

const (
	// NumLines is the number of IRQ lines served by the cascade.
	NumLines = 16

	// CascadeLine is the master line the slave controller is wired to.
	CascadeLine = 2

	linesPerChip = 8

	icw1Init     = 0x10
	icw1NeedICW4 = 0x01
	icw4Mode8086 = 0x01

	// cmdEOI is a non-specific end-of-interrupt (OCW2).
	cmdEOI = 0x20
)

var errInvalidLine = &kernel.Error{Module: "pic", Message: "IRQ line out of range"}

// Controller programs the master/slave 8259A cascade through a set of I/O
// ports. IRQ line N is delivered as vector masterOffset+N for N < 8 and
// slaveOffset+N-8 otherwise once Remap has run.
type Controller struct {
	ports cpu.PortIO

	masterOffset uint8
	slaveOffset  uint8
}

// New returns a controller that talks to the hardware through ports and
// remaps the master and slave lines to the given vector offsets. Offsets
// must be multiples of 8.
func New(ports cpu.PortIO, masterOffset, slaveOffset uint8) *Controller {
	c := new(Controller)
	c.Init(ports, masterOffset, slaveOffset)
	return c
}

// Init sets up c in place with the same arguments as New. It lets the
// kernel keep its controller in a package variable before a heap exists.
func (c *Controller) Init(ports cpu.PortIO, masterOffset, slaveOffset uint8) {
	c.ports = ports
	c.masterOffset = masterOffset
	c.slaveOffset = slaveOffset
}

// Offsets returns the vector offsets programmed by Remap.
func (c *Controller) Offsets() (master, slave uint8) {
	return c.masterOffset, c.slaveOffset
}

// Remap runs the 8259A initialization sequence so that IRQs no longer
// collide with the vectors reserved for CPU exceptions. Initialization clobbers
// the mask registers, so the masks in effect before the call are saved and
// restored afterwards.
func (c *Controller) Remap() {
	masterMask := c.ports.PortReadByte(MasterDataPort)
	slaveMask := c.ports.PortReadByte(SlaveDataPort)

	// ICW1: start initialization in cascade mode, ICW4 follows.
	c.write(MasterCommandPort, icw1Init|icw1NeedICW4)
	c.write(SlaveCommandPort, icw1Init|icw1NeedICW4)

	// ICW2: vector offsets.
	c.write(MasterDataPort, c.masterOffset)
	c.write(SlaveDataPort, c.slaveOffset)

	// ICW3: the master gets a bitmask of lines with a slave attached; the
	// slave gets its cascade identity.
	c.write(MasterDataPort, 1<<CascadeLine)
	c.write(SlaveDataPort, CascadeLine)

	// ICW4: 8086 mode, manual EOI.
	c.write(MasterDataPort, icw4Mode8086)
	c.write(SlaveDataPort, icw4Mode8086)

	c.ports.PortWriteByte(MasterDataPort, masterMask)
	c.ports.PortWriteByte(SlaveDataPort, slaveMask)
}

// write sends val to port and waits for the controller to settle.
func (c *Controller) write(port uint16, val uint8) {
	c.ports.PortWriteByte(port, val)
	cpu.IOWait(c.ports)
}

// Unmask enables delivery of line. Unmasking a slave line also unmasks the
// cascade line at the master.
func (c *Controller) Unmask(line uint8) *kernel.Error {
	if line >= NumLines {
		return errInvalidLine
	}

	port, bit := maskBit(line)
	c.ports.PortWriteByte(port, c.ports.PortReadByte(port)&^bit)

	if line >= linesPerChip {
		port, bit = maskBit(CascadeLine)
		c.ports.PortWriteByte(port, c.ports.PortReadByte(port)&^bit)
	}
	return nil
}

// Mask disables delivery of line.
func (c *Controller) Mask(line uint8) *kernel.Error {
	if line >= NumLines {
		return errInvalidLine
	}

	port, bit := maskBit(line)
	c.ports.PortWriteByte(port, c.ports.PortReadByte(port)|bit)
	return nil
}

func maskBit(line uint8) (uint16, uint8) {
	if line < linesPerChip {
		return MasterDataPort, 1 << line
	}
	return SlaveDataPort, 1 << (line - linesPerChip)
}

// Acknowledge signals end-of-interrupt for line. Lines served by the slave
// must be acknowledged at the slave first and then at the master (which saw
// the event on the cascade line); skipping the slave leaves its in-service
// bit set and blocks every later slave interrupt.
func (c *Controller) Acknowledge(line uint8) *kernel.Error {
	if line >= NumLines {
		return errInvalidLine
	}

	if line >= linesPerChip {
		c.ports.PortWriteByte(SlaveCommandPort, cmdEOI)
	}
	c.ports.PortWriteByte(MasterCommandPort, cmdEOI)
	return nil
}

// MaskState returns the contents of both mask registers. The slave mask
// occupies the upper 8 bits.
func (c *Controller) MaskState() uint16 {
	return uint16(c.ports.PortReadByte(SlaveDataPort))<<8 | uint16(c.ports.PortReadByte(MasterDataPort))
}

// SetMaskState overwrites both mask registers. Bit N masks line N.
func (c *Controller) SetMaskState(mask uint16) {
	c.ports.PortWriteByte(MasterDataPort, uint8(mask))
	c.ports.PortWriteByte(SlaveDataPort, uint8(mask>>8))
}

// Disable masks every line on both controllers.
func (c *Controller) Disable() {
	c.SetMaskState(0xffff)
}

// Vector returns the vector that line is delivered on.
func (c *Controller) Vector(line uint8) uint8 {
	if line < linesPerChip {
		return c.masterOffset + line
	}
	return c.slaveOffset + line - linesPerChip
}

// Line maps vector back to the IRQ line it belongs to. The second return
// value is false if vector is not served by the controllers.
func (c *Controller) Line(vector uint8) (uint8, bool) {
	switch {
	case vector >= c.masterOffset && vector < c.masterOffset+linesPerChip:
		return vector - c.masterOffset, true
	case vector >= c.slaveOffset && vector < c.slaveOffset+linesPerChip:
		return vector - c.slaveOffset + linesPerChip, true
	}
	return 0, false
}
