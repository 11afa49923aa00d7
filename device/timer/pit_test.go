package timer

import (
	"bytes"
	"testing"

	"github.com/BigBoySanchez/rotOS/device/pic"
	"github.com/BigBoySanchez/rotOS/device/sim"
	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/gate"
	"github.com/BigBoySanchez/rotOS/kernel/irq"
)

func TestDivisor(t *testing.T) {
	specs := []struct {
		hz  uint32
		exp uint16
	}{
		{100, 11932},
		{1000, 1193},
		// 1193182 % 3 = 1, which does not round up.
		{3, 0xffff},
		{18, 0xffff},
		{19, 62799},
		{60, 19886},
		{1193182, 1},
		{2000000, 1},
		{0, 0xffff},
	}

	for specIndex, spec := range specs {
		if got := Divisor(spec.hz); got != spec.exp {
			t.Errorf("[spec %d] expected divisor for %d Hz to be %d; got %d", specIndex, spec.hz, spec.exp, got)
		}
	}
}

func TestDriverInit(t *testing.T) {
	bus := sim.NewBus()
	router := irq.NewRouter(irq.DefaultConfig(), pic.New(bus, 32, 40), nil)
	drv := New(bus, router, 100)

	var buf bytes.Buffer
	if err := drv.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	if bus.Timer.Command != 0x36 {
		t.Errorf("expected command byte 0x36; got %x", bus.Timer.Command)
	}
	if got := bus.Timer.Divisor(); got != 11932 {
		t.Errorf("expected divisor 11932; got %d", got)
	}
	if bus.Waits != 2 {
		t.Errorf("expected an I/O wait after each divisor byte; got %d waits", bus.Waits)
	}
	if bus.PIC.Mask()&1 != 0 {
		t.Error("expected the timer line to be unmasked")
	}
	if exp, got := "100 Hz (divisor 11932)\n", buf.String(); got != exp {
		t.Errorf("expected output %q; got %q", exp, got)
	}

	if drv.DriverName() != "pit" {
		t.Errorf("unexpected driver name %q", drv.DriverName())
	}
	if major, minor, patch := drv.DriverVersion(); major != 1 || minor != 0 || patch != 0 {
		t.Errorf("unexpected driver version %d.%d.%d", major, minor, patch)
	}
	if drv.Frequency() != 100 {
		t.Errorf("expected frequency 100; got %d", drv.Frequency())
	}
}

type failingRegistrar struct{}

var errRegistrar = &kernel.Error{Module: "test", Message: "line in use"}

func (failingRegistrar) RegisterHandler(uint8, irq.Handler) *kernel.Error {
	return errRegistrar
}

func TestDriverInitErrors(t *testing.T) {
	bus := sim.NewBus()
	bus.Tracing = true

	if err := New(bus, failingRegistrar{}, 0).DriverInit(&bytes.Buffer{}); err != errInvalidFrequency {
		t.Errorf("expected errInvalidFrequency; got %v", err)
	}
	if err := New(bus, failingRegistrar{}, 100).DriverInit(&bytes.Buffer{}); err != errRegistrar {
		t.Errorf("expected registrar error; got %v", err)
	}
	if len(bus.Trace) != 0 {
		t.Errorf("expected the timer not to be programmed; got %v", bus.Trace)
	}
}

func TestTicks(t *testing.T) {
	bus := sim.NewBus()
	ctrl := pic.New(bus, 32, 40)
	ctrl.Remap()
	router := irq.NewRouter(irq.DefaultConfig(), ctrl, nil)

	drv := New(bus, router, 100)
	if err := drv.DriverInit(&bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		bus.Tick()
		bus.Service(func(vector uint8) {
			router.HandleTrap(&gate.Registers{Number: uint64(vector)})
		})
	}

	if got := drv.Ticks(); got != 100 {
		t.Fatalf("expected 100 ticks; got %d", got)
	}
}
