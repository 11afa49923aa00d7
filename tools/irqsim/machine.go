package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unsafe"

	"github.com/BigBoySanchez/rotOS/device"
	"github.com/BigBoySanchez/rotOS/device/keyboard"
	"github.com/BigBoySanchez/rotOS/device/pic"
	"github.com/BigBoySanchez/rotOS/device/sim"
	"github.com/BigBoySanchez/rotOS/device/timer"
	"github.com/BigBoySanchez/rotOS/device/tty"
	"github.com/BigBoySanchez/rotOS/device/video/console"
	"github.com/BigBoySanchez/rotOS/kernel/gate"
	"github.com/BigBoySanchez/rotOS/kernel/irq"
	"github.com/BigBoySanchez/rotOS/kernel/kfmt"
)

// machine runs the interrupt core and its drivers against the simulated
// devices of a sim.Bus. Traps are delivered by calling the router the same
// way the entry stubs do on real hardware.
type machine struct {
	bus   *sim.Bus
	table gate.Table

	router   *irq.Router
	timer    *timer.PIT
	keyboard *keyboard.PS2

	fb   []uint16
	cons *console.Ega
	vt   *tty.Vt

	// typed collects the characters echoed by the idle loop.
	typed bytes.Buffer
}

// newMachine boots a simulated machine whose timer ticks hz times per
// second. Kernel output is written to the simulated text console; log
// receives a copy of everything that reaches the console.
func newMachine(hz uint32, log io.Writer) (*machine, error) {
	m := &machine{
		bus: sim.NewBus(),
		fb:  make([]uint16, console.DefaultWidth*console.DefaultHeight),
	}

	m.cons = console.NewEga(console.DefaultWidth, console.DefaultHeight, uintptr(unsafe.Pointer(&m.fb[0])))
	if err := m.cons.DriverInit(io.Discard); err != nil {
		return nil, err
	}
	m.vt = tty.NewVt(tty.DefaultTabWidth)
	m.vt.AttachTo(m.cons)

	var sink io.Writer = m.vt
	if log != nil {
		sink = io.MultiWriter(m.vt, log)
	}
	kfmt.SetOutputSink(sink)

	cfg := irq.DefaultConfig()
	ctrl := pic.New(m.bus, cfg.MasterOffset(), cfg.SlaveOffset())
	m.router = irq.NewRouter(cfg, ctrl, nil)

	// The host cannot execute LIDT, so the table is only populated.
	if err := m.table.Populate(m.router.InstallExceptionGates, m.router.InstallIRQGates); err != nil {
		return nil, err
	}

	m.timer = timer.New(m.bus, m.router, hz)
	m.keyboard = keyboard.New(m.bus, m.router)
	for _, drv := range []device.Driver{m.timer, m.keyboard} {
		w := &kfmt.PrefixWriter{Sink: kfmt.Console, Prefix: []byte("[hal] " + drv.DriverName() + ": ")}
		if err := drv.DriverInit(w); err != nil {
			return nil, err
		}
	}

	m.vt.SetColors(console.Green, console.Black)
	kfmt.Printf("Welcome to rotOS!\n")
	m.vt.SetColors(console.White, console.Black)

	return m, nil
}

// deliver hands every interrupt the controllers can deliver to the router
// and returns the number of delivered interrupts.
func (m *machine) deliver() int {
	return m.bus.Service(func(vector uint8) {
		frame := gate.Registers{Number: uint64(vector)}
		m.router.HandleTrap(&frame)
	})
}

// tick raises the timer line once.
func (m *machine) tick() {
	m.bus.Tick()
	m.deliver()
}

// press types ch: its make code followed by its release code. It returns
// an error if ch has no key on the layout.
func (m *machine) press(ch byte) error {
	code, ok := keyboard.Scancode(ch)
	if !ok {
		return fmt.Errorf("no key produces %q", ch)
	}

	for _, sc := range []uint8{code, code | 0x80} {
		m.bus.Key(sc)
		m.deliver()
		m.idle()
	}
	return nil
}

// idle runs one round of the kernel's idle loop.
func (m *machine) idle() {
	if ch, ok := m.keyboard.ReadChar(); ok {
		m.typed.WriteByte(ch)
		kfmt.Printf("%c", ch)
	}
}

// screen returns the console contents with trailing blanks removed.
func (m *machine) screen() []string {
	w, h := m.cons.Dimensions()
	rows := make([]string, 0, h)
	for y := uint16(0); y < h; y++ {
		var sb strings.Builder
		for x := uint16(0); x < w; x++ {
			ch, _, _ := m.cons.Cell(x, y)
			sb.WriteByte(ch)
		}
		rows = append(rows, strings.TrimRight(sb.String(), " "))
	}

	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}

// report writes the per-line statistics to w.
func (m *machine) report(w io.Writer) {
	fmt.Fprintf(w, "ticks: %d (%d Hz, divisor %d)\n", m.timer.Ticks(), m.timer.Frequency(), m.bus.Timer.Divisor())
	fmt.Fprintf(w, "typed: %q\n", m.typed.String())

	for line, stats := range m.router.Stats() {
		if stats.Delivered == 0 && stats.Unhandled == 0 {
			continue
		}
		fmt.Fprintf(w, "irq %2d: delivered %d, unhandled %d\n", line, stats.Delivered, stats.Unhandled)
	}
	fmt.Fprintf(w, "port 0x80 waits: %d\n", m.bus.Waits)
}

func (m *machine) close() {
	kfmt.SetOutputSink(nil)
}
