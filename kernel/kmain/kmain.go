// Package kmain contains the kernel entry point that brings up the interrupt
// core and the drivers that depend on it.
package kmain

import (
	"github.com/BigBoySanchez/rotOS/device"
	"github.com/BigBoySanchez/rotOS/device/keyboard"
	"github.com/BigBoySanchez/rotOS/device/pic"
	"github.com/BigBoySanchez/rotOS/device/timer"
	"github.com/BigBoySanchez/rotOS/device/tty"
	"github.com/BigBoySanchez/rotOS/device/video/console"
	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/cpu"
	"github.com/BigBoySanchez/rotOS/kernel/gate"
	"github.com/BigBoySanchez/rotOS/kernel/hal"
	"github.com/BigBoySanchez/rotOS/kernel/irq"
	"github.com/BigBoySanchez/rotOS/kernel/kfmt"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// The interrupt core and the drivers live in package variables: Kmain
	// runs before the kernel has a heap, so nothing on the boot path may
	// allocate. idt must also outlive Kmain.
	idt    gate.Table
	ctrl   pic.Controller
	router irq.Router
	pit    timer.PIT
	kbd    keyboard.PS2
	ega    console.Ega
	vt     tty.Vt
	kern   Kernel

	populators = [...]gate.Populator{installExceptionGates, installIRQGates}

	// Drivers probed by hal.DetectHardware, registered explicitly by Init.
	driverInfo = [...]device.DriverInfo{
		{Order: device.DetectOrderEarly, Probe: probeEga},
		{Order: device.DetectOrderEarly, Probe: probeVt},
		{Order: device.DetectOrderIRQ, Probe: probeTimer},
		{Order: device.DetectOrderIRQ, Probe: probeKeyboard},
	}

	// Mocked by tests.
	ports              cpu.PortIO = cpu.IOPorts{}
	panicFn                       = kfmt.Panic
	setTrapHandlerFn              = gate.SetTrapHandler
	enableInterruptsFn            = cpu.EnableInterrupts
	waitFn                        = cpu.WaitForInterrupt
	detectHardwareFn              = hal.DetectHardware
	loadIDTFn                     = (*gate.Table).Load
	runningFn                     = func() bool { return true }
)

// Kernel holds the interrupt core and the drivers attached to it.
type Kernel struct {
	Router   *irq.Router
	Timer    *timer.PIT
	Keyboard *keyboard.PS2
}

func handleTrap(frame *gate.Registers) { router.HandleTrap(frame) }

func installExceptionGates(t *gate.Table) *kernel.Error { return router.InstallExceptionGates(t) }

func installIRQGates(t *gate.Table) *kernel.Error { return router.InstallIRQGates(t) }

func probeEga() device.Driver      { return &ega }
func probeVt() device.Driver       { return &vt }
func probeTimer() device.Driver    { return &pit }
func probeKeyboard() device.Driver { return &kbd }

// Init builds the interrupt core on top of ports, loads the IDT and
// registers the console, terminal, timer and keyboard drivers with the
// device registry so that they are initialized by the next hardware probe.
// Interrupts must be disabled when Init is called. Init does not allocate;
// the returned Kernel refers to package-level state.
func Init(cfg irq.Config, ports cpu.PortIO) (*Kernel, *kernel.Error) {
	ctrl.Init(ports, cfg.MasterOffset(), cfg.SlaveOffset())
	router.Init(cfg, &ctrl, nil)

	setTrapHandlerFn(handleTrap)
	if err := loadIDTFn(&idt, populators[:]...); err != nil {
		return nil, err
	}

	pit.Init(ports, &router, timer.DefaultFrequency)
	kbd.Init(ports, &router)
	ega.Init(console.DefaultWidth, console.DefaultHeight, console.DefaultFramebufferAddr)
	vt.Init(tty.DefaultTabWidth)

	for i := range driverInfo {
		if err := device.RegisterDriver(&driverInfo[i]); err != nil {
			return nil, err
		}
	}

	kern = Kernel{Router: &router, Timer: &pit, Keyboard: &kbd}
	return &kern, nil
}

// Banner prints the boot banner to the active terminal.
func Banner() {
	if t := hal.ActiveTTY(); t != nil {
		t.SetColors(console.Green, console.Black)
		kfmt.Printf("Welcome to rotOS!\n")
		t.SetColors(console.White, console.Black)
		return
	}

	kfmt.Printf("Welcome to rotOS!\n")
}

// Echo copies the last typed character, if any, to the kernel console.
func (k *Kernel) Echo() bool {
	ch, ok := k.Keyboard.ReadChar()
	if ok {
		kfmt.Printf("%c", ch)
	}
	return ok
}

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and a stack with interrupts disabled. Nothing on
// this path allocates, so no heap or runtime initialization is required.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the
// CPU.
//
//go:noinline
func Kmain() {
	k, err := Init(irq.DefaultConfig(), ports)
	if err != nil {
		panicFn(err)
		return
	}

	detectHardwareFn()
	Banner()
	kfmt.Printf("System initialized successfully.\n")
	kfmt.Printf("Terminal is ready.\n")

	enableInterruptsFn()
	for runningFn() {
		k.Echo()
		waitFn()
	}

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}
