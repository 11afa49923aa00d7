// Package irq routes the traps taken by the CPU to the kernel code that
// services them. Vectors 0-31 form the exception tier and the vectors the
// interrupt controller is remapped to form the IRQ tier. Both tiers share the
// same shape: look up the handler registered for the slot, invoke it, or fall
// back to a diagnostic when nothing is registered.
package irq

import (
	"io"
	"sync/atomic"

	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/gate"
	"github.com/BigBoySanchez/rotOS/kernel/kfmt"
)

var (
	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	diagPrefix = []byte("[irq] ")

	errInvalidConfig          = &kernel.Error{Module: "irq", Message: "vector base must be a multiple of 8 in the range 32-240"}
	errNoEntryStub            = &kernel.Error{Module: "irq", Message: "no entry stub for vector"}
	errInvalidLine            = &kernel.Error{Module: "irq", Message: "IRQ line out of range"}
	errLineInUse              = &kernel.Error{Module: "irq", Message: "IRQ line already has a handler"}
	errNilHandler             = &kernel.Error{Module: "irq", Message: "nil handler"}
	errInvalidIRQVector       = &kernel.Error{Module: "irq", Message: "vector does not map to an IRQ line"}
	errInvalidExceptionVector = &kernel.Error{Module: "irq", Message: "vector is not a CPU exception"}
	errUnhandledException     = &kernel.Error{Module: "irq", Message: "unhandled CPU exception"}
)

// LineStats holds the delivery counters of an IRQ line.
type LineStats struct {
	// Delivered counts events passed to the registered handler.
	Delivered uint64

	// Unhandled counts events that arrived while no handler was
	// registered.
	Unhandled uint64
}

type lineCounters struct {
	delivered atomic.Uint64
	unhandled atomic.Uint64
}

// Router owns the handler registry for both dispatch tiers and the
// interrupt controller that IRQs are acknowledged through.
//
// Registration happens during initialization while interrupts are disabled;
// afterwards the registry is only read by the dispatch path.
type Router struct {
	cfg  Config
	ctrl LineController
	diag kfmt.PrefixWriter

	irqHandlers       [NumLines]Handler
	exceptionHandlers [gate.NumExceptions]ExceptionHandler

	counters   [NumLines]lineCounters
	unexpected atomic.Uint64
}

// NewRouter returns a Router that delivers IRQs through ctrl using the
// vector layout in cfg. Diagnostics are written to diag; a nil diag selects
// the kernel console.
func NewRouter(cfg Config, ctrl LineController, diag io.Writer) *Router {
	r := new(Router)
	r.Init(cfg, ctrl, diag)
	return r
}

// Init sets up r in place with the same arguments as NewRouter. Handlers and
// counters are cleared. The kernel uses it on a package-level Router since
// it runs before a heap is available.
func (r *Router) Init(cfg Config, ctrl LineController, diag io.Writer) {
	if diag == nil {
		diag = kfmt.Console
	}

	r.cfg = cfg
	r.ctrl = ctrl
	r.diag = kfmt.PrefixWriter{Sink: diag, Prefix: diagPrefix}
	r.irqHandlers = [NumLines]Handler{}
	r.exceptionHandlers = [gate.NumExceptions]ExceptionHandler{}
	for line := range r.counters {
		r.counters[line].delivered.Store(0)
		r.counters[line].unhandled.Store(0)
	}
	r.unexpected.Store(0)
}

// Config returns the vector layout used by the router.
func (r *Router) Config() Config {
	return r.cfg
}

// InstallExceptionGates points vectors 0-31 at their entry stubs and clears
// the exception tier. It can be passed to gate.Table.Load.
func (r *Router) InstallExceptionGates(t *gate.Table) *kernel.Error {
	for vector := gate.InterruptNumber(0); vector < gate.NumExceptions; vector++ {
		if err := r.installGate(t, vector); err != nil {
			return err
		}
		r.exceptionHandlers[vector] = nil
	}

	return nil
}

// InstallIRQGates remaps the interrupt controller to the configured vector
// base, points the IRQ vectors at their entry stubs and clears the IRQ tier.
// It can be passed to gate.Table.Load.
func (r *Router) InstallIRQGates(t *gate.Table) *kernel.Error {
	if !r.cfg.valid() {
		return errInvalidConfig
	}

	// The controller and the table must agree on the layout, so nothing is
	// touched unless every IRQ vector has a stub.
	var stubs [NumLines]uintptr
	for line := uint8(0); line < NumLines; line++ {
		if stubs[line] = entryStubFn(gate.InterruptNumber(r.cfg.VectorBase + line)); stubs[line] == 0 {
			return errNoEntryStub
		}
	}

	r.ctrl.Remap()

	for line := uint8(0); line < NumLines; line++ {
		t.InstallGate(gate.InterruptNumber(r.cfg.VectorBase+line), stubs[line], r.cfg.CodeSelector, gate.AttrKernelInterrupt)
		r.irqHandlers[line] = nil
	}

	return nil
}

func (r *Router) installGate(t *gate.Table, vector gate.InterruptNumber) *kernel.Error {
	stub := entryStubFn(vector)
	if stub == 0 {
		return errNoEntryStub
	}

	t.InstallGate(vector, stub, r.cfg.CodeSelector, gate.AttrKernelInterrupt)
	return nil
}

// RegisterHandler attaches h to line and unmasks the line at the
// controller. Each line accepts a single handler.
func (r *Router) RegisterHandler(line uint8, h Handler) *kernel.Error {
	switch {
	case line >= NumLines:
		return errInvalidLine
	case h == nil:
		return errNilHandler
	case r.irqHandlers[line] != nil:
		return errLineInUse
	}

	r.irqHandlers[line] = h
	return r.ctrl.Unmask(line)
}

// UnregisterHandler masks line at the controller and detaches its handler.
func (r *Router) UnregisterHandler(line uint8) *kernel.Error {
	if line >= NumLines {
		return errInvalidLine
	}

	if err := r.ctrl.Mask(line); err != nil {
		return err
	}
	r.irqHandlers[line] = nil
	return nil
}

// RegisterExceptionHandler attaches h to the exception vector. Registering
// a handler replaces any previous one.
func (r *Router) RegisterExceptionHandler(vector gate.InterruptNumber, h ExceptionHandler) *kernel.Error {
	switch {
	case vector >= gate.NumExceptions:
		return errInvalidExceptionVector
	case h == nil:
		return errNilHandler
	}

	r.exceptionHandlers[vector] = h
	return nil
}

// UnregisterExceptionHandler detaches the handler for the exception vector.
func (r *Router) UnregisterExceptionHandler(vector gate.InterruptNumber) *kernel.Error {
	if vector >= gate.NumExceptions {
		return errInvalidExceptionVector
	}

	r.exceptionHandlers[vector] = nil
	return nil
}

// HandleTrap is the entry point for every trap frame built by the entry
// stubs. It should be installed with gate.SetTrapHandler.
func (r *Router) HandleTrap(frame *gate.Registers) {
	switch {
	case frame.Number < gate.NumExceptions:
		r.DispatchException(frame)
	case frame.Number >= uint64(r.cfg.VectorBase) && frame.Number < uint64(r.cfg.VectorBase)+NumLines:
		r.DispatchIRQ(frame)
	default:
		r.unexpected.Add(1)
		kfmt.Fprintf(&r.diag, "unexpected vector %d\n", frame.Number)
	}
}

// DispatchIRQ invokes the handler registered for the line frame was raised
// on, or reports the event if the line has no handler. In both cases the
// line is acknowledged exactly once. A frame whose vector does not map to a
// line is reported and not acknowledged.
func (r *Router) DispatchIRQ(frame *gate.Registers) *kernel.Error {
	if frame.Number < uint64(r.cfg.VectorBase) || frame.Number-uint64(r.cfg.VectorBase) >= NumLines {
		kfmt.Fprintf(&r.diag, "vector %d does not map to an IRQ line\n", frame.Number)
		return errInvalidIRQVector
	}

	line := uint8(frame.Number - uint64(r.cfg.VectorBase))
	if h := r.irqHandlers[line]; h != nil {
		r.counters[line].delivered.Add(1)
		h.HandleIRQ(frame)
	} else {
		r.counters[line].unhandled.Add(1)
		kfmt.Fprintf(&r.diag, "Unhandled IRQ received!\nIRQ number: %d\n", line)
	}

	return r.ctrl.Acknowledge(line)
}

// DispatchException invokes the handler registered for the exception in
// frame. Exceptions without a handler are fatal: the frame is dumped and the
// kernel panics.
func (r *Router) DispatchException(frame *gate.Registers) *kernel.Error {
	if frame.Number >= gate.NumExceptions {
		kfmt.Fprintf(&r.diag, "vector %d is not a CPU exception\n", frame.Number)
		return errInvalidExceptionVector
	}

	if h := r.exceptionHandlers[frame.Number]; h != nil {
		h.HandleException(frame)
		return nil
	}

	kfmt.Fprintf(&r.diag, "unhandled exception: %s\n", ExceptionName(frame.Vector()))
	frame.DumpTo(&r.diag)
	panicFn(errUnhandledException)
	return errUnhandledException
}

// Stats returns the delivery counters of every IRQ line.
func (r *Router) Stats() [NumLines]LineStats {
	var stats [NumLines]LineStats
	for line := range r.counters {
		stats[line].Delivered = r.counters[line].delivered.Load()
		stats[line].Unhandled = r.counters[line].unhandled.Load()
	}
	return stats
}

// Unexpected returns the number of traps whose vector belonged to neither
// tier.
func (r *Router) Unexpected() uint64 {
	return r.unexpected.Load()
}
