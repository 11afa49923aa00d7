// Package keyboard implements a minimal driver for a PS/2 keyboard attached
// to the 8042 controller.
package keyboard

import (
	"io"
	"sync/atomic"

	"github.com/BigBoySanchez/rotOS/device"
	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/cpu"
	"github.com/BigBoySanchez/rotOS/kernel/gate"
	"github.com/BigBoySanchez/rotOS/kernel/irq"
	"github.com/BigBoySanchez/rotOS/kernel/kfmt"
)

const (
	// Line is the IRQ line the keyboard controller raises.
	Line = 1

	dataPort   = uint16(0x60)
	statusPort = uint16(0x64)

	statusOutputFull = 0x01
	releaseBit       = 0x80
)

// Registrar is implemented by the IRQ router the keyboard attaches to.
type Registrar interface {
	RegisterHandler(line uint8, h irq.Handler) *kernel.Error
}

// PS2 decodes key presses into characters. Only the most recent character
// is kept; it is overwritten by every new printable key press until it is
// consumed with ReadChar.
type PS2 struct {
	ports     cpu.PortIO
	registrar Registrar

	lastChar atomic.Uint32
}

// New returns a keyboard driver that reads scan codes through ports and
// attaches its handler via registrar.
func New(ports cpu.PortIO, registrar Registrar) *PS2 {
	k := new(PS2)
	k.Init(ports, registrar)
	return k
}

// Init sets up k in place with the same arguments as New and discards any
// pending character.
func (k *PS2) Init(ports cpu.PortIO, registrar Registrar) {
	k.ports = ports
	k.registrar = registrar
	k.lastChar.Store(0)
}

// DriverName implements device.Driver.
func (*PS2) DriverName() string {
	return "ps2_kbd"
}

// DriverVersion implements device.Driver.
func (*PS2) DriverVersion() (uint16, uint16, uint16) {
	return 1, 0, 0
}

// DriverInit implements device.Driver. It attaches the handler to the
// keyboard line and discards any scan codes queued before the kernel took
// over.
func (k *PS2) DriverInit(w io.Writer) *kernel.Error {
	if err := k.registrar.RegisterHandler(Line, k); err != nil {
		return err
	}

	var drained int
	for k.ports.PortReadByte(statusPort)&statusOutputFull != 0 {
		k.ports.PortReadByte(dataPort)
		drained++
	}

	if drained != 0 {
		kfmt.Fprintf(w, "discarded %d stale scan codes\n", drained)
	}
	return nil
}

// HandleIRQ implements irq.Handler. It consumes one scan code from the
// controller.
func (k *PS2) HandleIRQ(_ *gate.Registers) {
	scancode := k.ports.PortReadByte(dataPort)
	cpu.IOWait(k.ports)

	if scancode&releaseBit != 0 {
		return
	}

	if ch := usLayout[scancode]; ch != 0 {
		k.lastChar.Store(uint32(ch))
	}
}

// ReadChar returns the last character typed and clears it. The second return
// value is false if no key was pressed since the previous call.
func (k *PS2) ReadChar() (byte, bool) {
	ch := k.lastChar.Swap(0)
	return byte(ch), ch != 0
}

var (
	_ device.Driver = (*PS2)(nil)
	_ irq.Handler   = (*PS2)(nil)
)
