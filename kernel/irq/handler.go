package irq

import (
	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/gate"
)

// Handler services interrupts raised on an IRQ line. HandleIRQ runs with
// interrupts disabled and must return without blocking. The frame must not
// be retained after HandleIRQ returns.
type Handler interface {
	HandleIRQ(frame *gate.Registers)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(frame *gate.Registers)

// HandleIRQ calls f(frame).
func (f HandlerFunc) HandleIRQ(frame *gate.Registers) {
	f(frame)
}

// ExceptionHandler services a CPU exception. If HandleException returns,
// any modifications to the frame are propagated back to the code that
// raised the exception.
type ExceptionHandler interface {
	HandleException(frame *gate.Registers)
}

// ExceptionHandlerFunc adapts a plain function to the ExceptionHandler
// interface.
type ExceptionHandlerFunc func(frame *gate.Registers)

// HandleException calls f(frame).
func (f ExceptionHandlerFunc) HandleException(frame *gate.Registers) {
	f(frame)
}

// LineController is implemented by interrupt controller drivers that the
// Router delivers IRQs through.
type LineController interface {
	// Remap programs the controller to deliver its lines on the vectors
	// configured for it.
	Remap()

	// Unmask enables delivery of line.
	Unmask(line uint8) *kernel.Error

	// Mask disables delivery of line.
	Mask(line uint8) *kernel.Error

	// Acknowledge signals end-of-interrupt for line.
	Acknowledge(line uint8) *kernel.Error
}
