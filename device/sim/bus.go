// Package sim provides software models of the legacy PC devices the kernel
// drives: the cascaded 8259A interrupt controllers, the 8042 keyboard
// controller output buffer and the 8254 interval timer. A Bus wires them to a
// port space that satisfies cpu.PortIO so that drivers and the interrupt
// core can run unmodified on a development host.
package sim

import "github.com/BigBoySanchez/rotOS/kernel/cpu"

// Port numbers decoded by the Bus.
const (
	picMasterCommand = 0x20
	picMasterData    = 0x21
	picSlaveCommand  = 0xa0
	picSlaveData     = 0xa1
	pitChannel0      = 0x40
	pitCommand       = 0x43
	kbdData          = 0x60
	kbdStatus        = 0x64
)

// Access describes a single port access observed by the Bus.
type Access struct {
	Write bool
	Port  uint16
	Val   uint8
}

// Bus implements cpu.PortIO on top of the device models.
type Bus struct {
	PIC      DualPIC
	Keyboard PS2
	Timer    PIT

	// Waits counts writes to the POST port used as an I/O delay.
	Waits int

	// If Tracing is set, every port access is appended to Trace.
	Tracing bool
	Trace   []Access
}

var _ cpu.PortIO = (*Bus)(nil)

// NewBus returns a bus whose controllers start with all lines masked, the
// state firmware leaves them in before handing over to the kernel.
func NewBus() *Bus {
	b := &Bus{}
	b.PIC.master.imr = 0xff
	b.PIC.slave.imr = 0xff
	return b
}

// PortReadByte implements cpu.PortIO.
func (b *Bus) PortReadByte(port uint16) uint8 {
	var val uint8
	switch port {
	case picMasterData:
		val = b.PIC.master.imr
	case picSlaveData:
		val = b.PIC.slave.imr
	case kbdData:
		val = b.Keyboard.read()
	case kbdStatus:
		val = b.Keyboard.status()
	default:
		val = 0xff
	}

	b.trace(false, port, val)
	return val
}

// PortWriteByte implements cpu.PortIO.
func (b *Bus) PortWriteByte(port uint16, val uint8) {
	b.trace(true, port, val)

	switch port {
	case picMasterCommand:
		b.PIC.master.writeCommand(val)
	case picMasterData:
		b.PIC.master.writeData(val)
	case picSlaveCommand:
		b.PIC.slave.writeCommand(val)
	case picSlaveData:
		b.PIC.slave.writeData(val)
	case pitCommand:
		b.Timer.writeCommand(val)
	case pitChannel0:
		b.Timer.writeData(val)
	case cpu.PostCodePort:
		b.Waits++
	}
}

func (b *Bus) trace(write bool, port uint16, val uint8) {
	if b.Tracing {
		b.Trace = append(b.Trace, Access{Write: write, Port: port, Val: val})
	}
}

// ResetTrace discards the recorded port accesses.
func (b *Bus) ResetTrace() {
	b.Trace = b.Trace[:0]
}

// Tick raises the timer line.
func (b *Bus) Tick() {
	b.PIC.Raise(0)
}

// Key queues scancode in the keyboard controller and raises the keyboard
// line.
func (b *Bus) Key(scancode uint8) {
	b.Keyboard.Push(scancode)
	b.PIC.Raise(1)
}

// Service delivers pending interrupts to deliver, one vector at a time, for
// as long as the cascade has something deliverable. A handler that does not
// acknowledge its interrupt blocks further delivery at or below its
// priority. Service returns the number of delivered interrupts.
func (b *Bus) Service(deliver func(vector uint8)) int {
	var delivered int
	for {
		vector, ok := b.PIC.InterruptAck()
		if !ok {
			return delivered
		}
		delivered++
		deliver(vector)
	}
}
