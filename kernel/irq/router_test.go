package irq

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BigBoySanchez/rotOS/device/pic"
	"github.com/BigBoySanchez/rotOS/device/sim"
	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/gate"
)

const fakeStubBase = uintptr(0xffff800000100000)

func mockEntryStubs(t *testing.T) {
	t.Helper()

	orig := entryStubFn
	t.Cleanup(func() { entryStubFn = orig })

	entryStubFn = func(vector gate.InterruptNumber) uintptr {
		return fakeStubBase + uintptr(vector)*16
	}
}

// setupRouter returns a router wired to a simulated controller cascade with
// its gates installed.
func setupRouter(t *testing.T) (*Router, *sim.Bus, *bytes.Buffer) {
	t.Helper()
	mockEntryStubs(t)

	var (
		cfg  = DefaultConfig()
		bus  = sim.NewBus()
		diag bytes.Buffer
		tbl  gate.Table
	)

	r := NewRouter(cfg, pic.New(bus, cfg.MasterOffset(), cfg.SlaveOffset()), &diag)
	if err := r.InstallExceptionGates(&tbl); err != nil {
		t.Fatal(err)
	}
	if err := r.InstallIRQGates(&tbl); err != nil {
		t.Fatal(err)
	}

	return r, bus, &diag
}

// deliver raises line on the simulated cascade and services everything that
// becomes deliverable through the router, like the entry stubs would.
func deliver(r *Router, bus *sim.Bus, line uint8) int {
	bus.PIC.Raise(line)
	return bus.Service(func(vector uint8) {
		r.HandleTrap(&gate.Registers{Number: uint64(vector)})
	})
}

func TestInstallGates(t *testing.T) {
	mockEntryStubs(t)

	var (
		cfg = DefaultConfig()
		bus = sim.NewBus()
		tbl gate.Table
		r   = NewRouter(cfg, pic.New(bus, cfg.MasterOffset(), cfg.SlaveOffset()), nil)
	)

	if err := r.InstallExceptionGates(&tbl); err != nil {
		t.Fatal(err)
	}
	if err := r.InstallIRQGates(&tbl); err != nil {
		t.Fatal(err)
	}

	if !bus.PIC.Initialized() {
		t.Fatal("expected InstallIRQGates to remap the controllers")
	}
	if master, slave := bus.PIC.Offsets(); master != 32 || slave != 40 {
		t.Fatalf("expected offsets (32, 40); got (%d, %d)", master, slave)
	}

	for vector := 0; vector < gate.NumEntries; vector++ {
		entry := tbl.Entry(gate.InterruptNumber(vector))
		if vector >= 48 {
			if entry.Present() {
				t.Errorf("expected vector %d to be absent", vector)
			}
			continue
		}

		if exp := fakeStubBase + uintptr(vector)*16; entry.Target() != exp {
			t.Errorf("[vector %d] expected target %x; got %x", vector, exp, entry.Target())
		}
		if entry.Selector() != DefaultCodeSelector {
			t.Errorf("[vector %d] expected selector %x; got %x", vector, DefaultCodeSelector, entry.Selector())
		}
		if entry.Attr() != gate.AttrKernelInterrupt {
			t.Errorf("[vector %d] expected attributes %x; got %x", vector, gate.AttrKernelInterrupt, entry.Attr())
		}
	}
}

func TestInstallGateErrors(t *testing.T) {
	mockEntryStubs(t)

	var tbl gate.Table

	for _, base := range []uint8{0, 16, 36, 248} {
		cfg := Config{VectorBase: base, CodeSelector: DefaultCodeSelector}
		r := NewRouter(cfg, pic.New(sim.NewBus(), cfg.MasterOffset(), cfg.SlaveOffset()), nil)
		if err := r.InstallIRQGates(&tbl); err != errInvalidConfig {
			t.Errorf("[base %d] expected errInvalidConfig; got %v", base, err)
		}
	}

	entryStubFn = func(gate.InterruptNumber) uintptr { return 0 }
	r := NewRouter(DefaultConfig(), pic.New(sim.NewBus(), 32, 40), nil)
	if err := r.InstallExceptionGates(&tbl); err != errNoEntryStub {
		t.Errorf("expected errNoEntryStub; got %v", err)
	}
	if err := r.InstallIRQGates(&tbl); err != errNoEntryStub {
		t.Errorf("expected errNoEntryStub; got %v", err)
	}
}

func TestInstallIRQGatesWithoutStubs(t *testing.T) {
	// Only vectors 0-47 have entry stubs so a base of 40 leaves lines 8-15
	// without one.
	cfg := Config{VectorBase: 40, CodeSelector: DefaultCodeSelector}
	if !cfg.valid() {
		t.Fatal("expected vector base 40 to be a valid layout")
	}

	var (
		bus = sim.NewBus()
		tbl gate.Table
		r   = NewRouter(cfg, pic.New(bus, cfg.MasterOffset(), cfg.SlaveOffset()), &bytes.Buffer{})
	)
	bus.Tracing = true

	if err := r.InstallIRQGates(&tbl); err != errNoEntryStub {
		t.Fatalf("expected errNoEntryStub; got %v", err)
	}

	if bus.PIC.Initialized() {
		t.Fatal("expected the controllers to be left alone when a stub is missing")
	}
	if len(bus.Trace) != 0 {
		t.Fatalf("expected no port accesses; got %v", bus.Trace)
	}
	for vector := 0; vector < gate.NumEntries; vector++ {
		if tbl.Entry(gate.InterruptNumber(vector)).Present() {
			t.Errorf("expected vector %d to be absent", vector)
		}
	}
}

func TestRegisterHandlerUnmasksAndDelivers(t *testing.T) {
	for line := uint8(0); line < NumLines; line++ {
		r, bus, _ := setupRouter(t)

		var (
			calls   int
			gotLine uint64
		)
		err := r.RegisterHandler(line, HandlerFunc(func(frame *gate.Registers) {
			calls++
			gotLine = frame.Number - uint64(r.Config().VectorBase)
		}))
		if err != nil {
			t.Fatalf("[line %d] unexpected error: %v", line, err)
		}

		if mask := bus.PIC.Mask(); mask&(1<<line) != 0 {
			t.Fatalf("[line %d] expected line to be unmasked; mask is %x", line, mask)
		}

		if got := deliver(r, bus, line); got != 1 {
			t.Fatalf("[line %d] expected 1 delivered interrupt; got %d", line, got)
		}
		if calls != 1 {
			t.Fatalf("[line %d] expected handler to be invoked once; got %d", line, calls)
		}
		if gotLine != uint64(line) {
			t.Fatalf("[line %d] expected frame to carry line %d; got %d", line, line, gotLine)
		}
		if bus.PIC.InService(line) || bus.PIC.InService(pic.CascadeLine) {
			t.Fatalf("[line %d] expected the interrupt to be acknowledged", line)
		}

		// A second event is only deliverable if the first one was
		// acknowledged at every controller involved.
		if got := deliver(r, bus, line); got != 1 || calls != 2 {
			t.Fatalf("[line %d] expected a second delivery; got %d deliveries and %d calls", line, got, calls)
		}

		if stats := r.Stats(); stats[line].Delivered != 2 || stats[line].Unhandled != 0 {
			t.Fatalf("[line %d] unexpected stats: %+v", line, stats[line])
		}
	}
}

func TestRegisterHandlerErrors(t *testing.T) {
	r, _, _ := setupRouter(t)
	noop := HandlerFunc(func(*gate.Registers) {})

	specs := []struct {
		line   uint8
		h      Handler
		expErr *kernel.Error
	}{
		{NumLines, noop, errInvalidLine},
		{255, noop, errInvalidLine},
		{3, nil, errNilHandler},
		{3, noop, nil},
		{3, noop, errLineInUse},
	}

	for specIndex, spec := range specs {
		if err := r.RegisterHandler(spec.line, spec.h); err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestUnregisterHandler(t *testing.T) {
	r, bus, _ := setupRouter(t)

	var calls int
	h := HandlerFunc(func(*gate.Registers) { calls++ })
	if err := r.RegisterHandler(4, h); err != nil {
		t.Fatal(err)
	}

	if err := r.UnregisterHandler(4); err != nil {
		t.Fatal(err)
	}
	if bus.PIC.Mask()&(1<<4) == 0 {
		t.Fatal("expected UnregisterHandler to mask the line")
	}
	if got := deliver(r, bus, 4); got != 0 || calls != 0 {
		t.Fatalf("expected no delivery on a masked line; got %d deliveries and %d calls", got, calls)
	}

	if err := r.RegisterHandler(4, h); err != nil {
		t.Fatalf("expected the line to accept a new handler; got %v", err)
	}

	if err := r.UnregisterHandler(NumLines); err != errInvalidLine {
		t.Fatalf("expected errInvalidLine; got %v", err)
	}
}

func TestDispatchIRQFallback(t *testing.T) {
	r, bus, diag := setupRouter(t)

	var other int
	r.RegisterHandler(0, HandlerFunc(func(*gate.Registers) { other++ }))

	for _, spec := range []struct {
		line    uint8
		lineStr string
	}{{5, "5"}, {11, "11"}} {
		line := spec.line
		// Unmask without registering a handler.
		bus.PIC.SetMask(bus.PIC.Mask() &^ (1<<line | 1<<pic.CascadeLine))
		bus.Tracing = true
		bus.ResetTrace()
		diag.Reset()

		if got := deliver(r, bus, line); got != 1 {
			t.Fatalf("[line %d] expected 1 delivery; got %d", line, got)
		}
		if other != 0 {
			t.Fatalf("[line %d] expected no handler to run", line)
		}

		var eois int
		for _, acc := range bus.Trace {
			if acc.Write && acc.Val == 0x20 && acc.Port == pic.MasterCommandPort {
				eois++
			}
		}
		if eois != 1 {
			t.Fatalf("[line %d] expected exactly one acknowledgement; got %d", line, eois)
		}

		exp := "[irq] Unhandled IRQ received!\n[irq] IRQ number: " + spec.lineStr + "\n"
		if got := diag.String(); got != exp {
			t.Fatalf("[line %d] expected diagnostic %q; got %q", line, exp, got)
		}

		if stats := r.Stats(); stats[line].Unhandled != 1 {
			t.Fatalf("[line %d] expected one unhandled event; got %+v", line, stats[line])
		}
	}
}

func TestDispatchIRQAcknowledgeOrdering(t *testing.T) {
	r, bus, _ := setupRouter(t)
	bus.Tracing = true

	for line := uint8(0); line < NumLines; line++ {
		bus.ResetTrace()
		if err := r.DispatchIRQ(&gate.Registers{Number: uint64(DefaultVectorBase + line)}); err != nil {
			t.Fatalf("[line %d] unexpected error: %v", line, err)
		}

		var writes []uint16
		for _, acc := range bus.Trace {
			if acc.Write && acc.Val == 0x20 {
				writes = append(writes, acc.Port)
			}
		}

		exp := []uint16{pic.MasterCommandPort}
		if line >= 8 {
			exp = []uint16{pic.SlaveCommandPort, pic.MasterCommandPort}
		}
		if len(writes) != len(exp) {
			t.Fatalf("[line %d] expected EOI writes to %v; got %v", line, exp, writes)
		}
		for i := range exp {
			if writes[i] != exp[i] {
				t.Fatalf("[line %d] expected EOI writes to %v; got %v", line, exp, writes)
			}
		}
	}
}

func TestDispatchIRQInvalidVector(t *testing.T) {
	r, bus, diag := setupRouter(t)
	bus.Tracing = true

	for _, vector := range []uint64{0, 31, 48, 255, 1 << 40} {
		bus.ResetTrace()
		diag.Reset()

		if err := r.DispatchIRQ(&gate.Registers{Number: vector}); err != errInvalidIRQVector {
			t.Errorf("[vector %d] expected errInvalidIRQVector; got %v", vector, err)
		}
		if len(bus.Trace) != 0 {
			t.Errorf("[vector %d] expected no port access; got %v", vector, bus.Trace)
		}
		if !strings.Contains(diag.String(), "does not map to an IRQ line") {
			t.Errorf("[vector %d] expected a diagnostic; got %q", vector, diag.String())
		}
	}
}

func TestHandleTrapRouting(t *testing.T) {
	r, _, diag := setupRouter(t)

	var irqCalls, excCalls int
	r.RegisterHandler(1, HandlerFunc(func(*gate.Registers) { irqCalls++ }))
	r.RegisterExceptionHandler(gate.Breakpoint, ExceptionHandlerFunc(func(*gate.Registers) { excCalls++ }))

	r.HandleTrap(&gate.Registers{Number: uint64(gate.Breakpoint)})
	r.HandleTrap(&gate.Registers{Number: DefaultVectorBase + 1})
	r.HandleTrap(&gate.Registers{Number: 0x80})

	if excCalls != 1 || irqCalls != 1 {
		t.Fatalf("expected one exception and one IRQ call; got %d and %d", excCalls, irqCalls)
	}
	if r.Unexpected() != 1 {
		t.Fatalf("expected one unexpected trap; got %d", r.Unexpected())
	}
	if exp, got := "[irq] unexpected vector 128\n", diag.String(); got != exp {
		t.Fatalf("expected diagnostic %q; got %q", exp, got)
	}
}

func TestDispatchException(t *testing.T) {
	origPanic := panicFn
	defer func() { panicFn = origPanic }()

	r, bus, diag := setupRouter(t)
	bus.Tracing = true

	var panicked interface{}
	panicFn = func(e interface{}) { panicked = e }

	t.Run("handled", func(t *testing.T) {
		bus.ResetTrace()
		r.RegisterExceptionHandler(gate.PageFaultException, ExceptionHandlerFunc(func(frame *gate.Registers) {
			frame.RIP += 2
		}))

		frame := &gate.Registers{Number: uint64(gate.PageFaultException), ErrorCode: 2, RIP: 0x1000}
		if err := r.DispatchException(frame); err != nil {
			t.Fatal(err)
		}
		if frame.RIP != 0x1002 {
			t.Fatalf("expected handler changes to be visible in the frame; RIP is %x", frame.RIP)
		}
		if panicked != nil {
			t.Fatal("unexpected panic")
		}
		if len(bus.Trace) != 0 {
			t.Fatalf("expected exceptions not to touch the controller; got %v", bus.Trace)
		}
	})

	t.Run("unhandled", func(t *testing.T) {
		diag.Reset()
		if err := r.DispatchException(&gate.Registers{Number: uint64(gate.GPFException)}); err != errUnhandledException {
			t.Fatalf("expected errUnhandledException; got %v", err)
		}
		if panicked != errUnhandledException {
			t.Fatalf("expected the panic hook to receive errUnhandledException; got %v", panicked)
		}
		if !strings.HasPrefix(diag.String(), "[irq] unhandled exception: general protection fault\n[irq] RAX = ") {
			t.Fatalf("unexpected diagnostic output:\n%s", diag.String())
		}
	})

	t.Run("unregistered", func(t *testing.T) {
		panicked = nil
		r.UnregisterExceptionHandler(gate.PageFaultException)
		r.DispatchException(&gate.Registers{Number: uint64(gate.PageFaultException)})
		if panicked == nil {
			t.Fatal("expected the panic hook to be called")
		}
	})

	t.Run("errors", func(t *testing.T) {
		if err := r.DispatchException(&gate.Registers{Number: 32}); err != errInvalidExceptionVector {
			t.Errorf("expected errInvalidExceptionVector; got %v", err)
		}
		if err := r.RegisterExceptionHandler(32, ExceptionHandlerFunc(func(*gate.Registers) {})); err != errInvalidExceptionVector {
			t.Errorf("expected errInvalidExceptionVector; got %v", err)
		}
		if err := r.RegisterExceptionHandler(0, nil); err != errNilHandler {
			t.Errorf("expected errNilHandler; got %v", err)
		}
		if err := r.UnregisterExceptionHandler(40); err != errInvalidExceptionVector {
			t.Errorf("expected errInvalidExceptionVector; got %v", err)
		}
	})
}

func TestRouterInitResetsState(t *testing.T) {
	r, bus, diag := setupRouter(t)

	if err := r.RegisterHandler(3, HandlerFunc(func(*gate.Registers) {})); err != nil {
		t.Fatal(err)
	}
	deliver(r, bus, 3)
	deliver(r, bus, 5)
	r.HandleTrap(&gate.Registers{Number: 200})

	r.Init(DefaultConfig(), pic.New(bus, 32, 40), diag)

	if got := r.Stats(); got != ([NumLines]LineStats{}) {
		t.Fatalf("expected Init to clear the counters; got %v", got)
	}
	if got := r.Unexpected(); got != 0 {
		t.Fatalf("expected Init to clear the unexpected vector count; got %d", got)
	}
	if err := r.RegisterHandler(3, HandlerFunc(func(*gate.Registers) {})); err != nil {
		t.Fatalf("expected Init to clear the registered handlers; got %v", err)
	}

	diag.Reset()
	r.HandleTrap(&gate.Registers{Number: 200})
	if got := diag.String(); !strings.HasPrefix(got, "[irq] ") {
		t.Fatalf("expected diagnostics to be prefixed; got %q", got)
	}
}

func TestExceptionName(t *testing.T) {
	specs := []struct {
		vector gate.InterruptNumber
		exp    string
	}{
		{gate.DivideByZero, "divide error"},
		{gate.DoubleFault, "double fault"},
		{gate.PageFaultException, "page fault"},
		{gate.Security, "security exception"},
		{40, "not an exception"},
	}

	for _, spec := range specs {
		if got := ExceptionName(spec.vector); got != spec.exp {
			t.Errorf("[vector %d] expected %q; got %q", spec.vector, spec.exp, got)
		}
	}
}
