// Package timer drives channel 0 of the 8253/8254 programmable interval
// timer as the kernel's periodic tick source.
package timer

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
	// Line is the IRQ line the PIT raises.
	Line = 0

	// BaseFrequency is the PIT input clock in Hz.
	BaseFrequency = 1193182

	// DefaultFrequency is the tick rate programmed by Probe.
	DefaultFrequency = 100

	commandPort  = uint16(0x43)
	channel0Port = uint16(0x40)

	// Channel 0, lobyte/hibyte access, mode 3 (square wave), binary.
	cmdChannel0SquareWave = 0x36
)

var errInvalidFrequency = &kernel.Error{Module: "timer", Message: "tick frequency must be non-zero"}

// Registrar is implemented by the IRQ router the PIT attaches to.
type Registrar interface {
	RegisterHandler(line uint8, h irq.Handler) *kernel.Error
}

// PIT counts the ticks raised by PIT channel 0.
type PIT struct {
	ports     cpu.PortIO
	registrar Registrar
	hz        uint32

	ticks atomic.Uint64
}

// New returns a PIT driver that programs the timer through ports to tick
// hz times per second and attaches its handler via registrar.
func New(ports cpu.PortIO, registrar Registrar, hz uint32) *PIT {
	p := new(PIT)
	p.Init(ports, registrar, hz)
	return p
}

// Init sets up p in place with the same arguments as New and clears the
// tick counter.
func (p *PIT) Init(ports cpu.PortIO, registrar Registrar, hz uint32) {
	p.ports = ports
	p.registrar = registrar
	p.hz = hz
	p.ticks.Store(0)
}

// Divisor returns the reload value that makes the PIT tick closest to hz
// times per second, clamped to the 16-bit counter range.
func Divisor(hz uint32) uint16 {
	if hz == 0 {
		return 0xffff
	}

	divisor := BaseFrequency / hz
	if BaseFrequency%hz > hz/2 {
		divisor++
	}

	switch {
	case divisor > 0xffff:
		return 0xffff
	case divisor < 1:
		return 1
	}
	return uint16(divisor)
}

// DriverName implements device.Driver.
func (*PIT) DriverName() string {
	return "pit"
}

// DriverVersion implements device.Driver.
func (*PIT) DriverVersion() (uint16, uint16, uint16) {
	return 1, 0, 0
}

// DriverInit implements device.Driver. It attaches the tick handler to the
// timer line and then programs channel 0.
func (p *PIT) DriverInit(w io.Writer) *kernel.Error {
	if p.hz == 0 {
		return errInvalidFrequency
	}

	if err := p.registrar.RegisterHandler(Line, p); err != nil {
		return err
	}

	divisor := Divisor(p.hz)
	p.ports.PortWriteByte(commandPort, cmdChannel0SquareWave)
	p.ports.PortWriteByte(channel0Port, uint8(divisor))
	cpu.IOWait(p.ports)
	p.ports.PortWriteByte(channel0Port, uint8(divisor>>8))
	cpu.IOWait(p.ports)

	kfmt.Fprintf(w, "%d Hz (divisor %d)\n", p.hz, divisor)
	return nil
}

// HandleIRQ implements irq.Handler.
func (p *PIT) HandleIRQ(_ *gate.Registers) {
	p.ticks.Add(1)
}

// Ticks returns the number of ticks since the driver was initialized.
func (p *PIT) Ticks() uint64 {
	return p.ticks.Load()
}

// Frequency returns the configured tick rate in Hz.
func (p *PIT) Frequency() uint32 {
	return p.hz
}

var (
	_ device.Driver = (*PIT)(nil)
	_ irq.Handler   = (*PIT)(nil)
)
