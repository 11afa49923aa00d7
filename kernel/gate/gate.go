// Package gate manages the interrupt descriptor table (IDT) and the low-level
// trap entry points that hand control to the kernel when the CPU takes an
// exception or a hardware interrupt.
package gate

import (
	"unsafe"

	"github.com/BigBoySanchez/rotOS/kernel"
)

// NumEntries is the number of gate descriptors in the IDT.
const NumEntries = 256

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// Debug is raised by the debug and single-step facilities.
	Debug = InterruptNumber(1)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// Breakpoint is raised by the INT3 instruction.
	Breakpoint = InterruptNumber(3)

	// Overflow occurs when the INTO instruction is executed while RFLAGS.OF
	// is set.
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while no FPU is available.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an exception is raised while the CPU is
	// trying to deliver a previous exception.
	DoubleFault = InterruptNumber(8)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when the CPU attempts to load a segment or
	// gate whose present bit is clear.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs on stack segment limit or canonical-address
	// violations.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page table entry is not present or
	// when a privilege and/or RW protection check fails.
	PageFaultException = InterruptNumber(14)

	// FloatingPointException is raised for unmasked x87 FP errors.
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set.
	SIMDFloatingPointException = InterruptNumber(19)

	// ControlProtection is raised by CET control-flow violations.
	ControlProtection = InterruptNumber(21)

	// VMMCommunication and Security are AMD SVM exceptions.
	VMMCommunication = InterruptNumber(29)
	Security         = InterruptNumber(30)

	// NumExceptions is the number of vectors reserved for CPU exceptions.
	NumExceptions = 32
)

// HasErrorCode returns true if the CPU pushes an error code to the stack
// before invoking the handler for vector.
func HasErrorCode(vector InterruptNumber) bool {
	switch vector {
	case DoubleFault, InvalidTSS, SegmentNotPresent, StackSegmentFault,
		GPFException, PageFaultException, AlignmentCheck, ControlProtection,
		VMMCommunication, Security:
		return true
	}
	return false
}

// Attr holds the type and attribute byte of a gate descriptor.
type Attr uint8

const (
	// AttrPresent marks a descriptor as valid. The CPU raises a
	// SegmentNotPresent fault when delivering through a gate without it.
	AttrPresent Attr = 0x80

	// AttrDPL3 allows the gate to be invoked from ring 3 via INT n.
	AttrDPL3 Attr = 0x60

	// AttrInterruptGate clears RFLAGS.IF on entry so the handler runs
	// with maskable interrupts held off.
	AttrInterruptGate Attr = 0x0e

	// AttrTrapGate leaves RFLAGS.IF unchanged on entry.
	AttrTrapGate Attr = 0x0f

	// AttrKernelInterrupt is a present ring-0 interrupt gate.
	AttrKernelInterrupt = AttrPresent | AttrInterruptGate
)

// Descriptor is a 16-byte long-mode gate descriptor. Its layout is fixed by
// the CPU.
type Descriptor struct {
	offsetLow  uint16
	selector   uint16
	ist        uint8
	attr       Attr
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// Target returns the address of the code the gate transfers control to.
func (d Descriptor) Target() uintptr {
	return uintptr(d.offsetLow) | uintptr(d.offsetMid)<<16 | uintptr(d.offsetHigh)<<32
}

// Selector returns the code segment selector used when entering the gate.
func (d Descriptor) Selector() uint16 {
	return d.selector
}

// Attr returns the descriptor's type and attribute byte.
func (d Descriptor) Attr() Attr {
	return d.attr
}

// Present returns true if the descriptor has its present bit set.
func (d Descriptor) Present() bool {
	return d.attr&AttrPresent != 0
}

var (
	errInvalidVector = &kernel.Error{Module: "gate", Message: "vector number out of range"}
	errInterruptsOn  = &kernel.Error{Module: "gate", Message: "refusing to reload the IDT while interrupts are enabled"}
)

// Populator installs a group of gates into a table while it is being loaded.
type Populator func(*Table) *kernel.Error

// Table is an interrupt descriptor table. The zero value is a table where
// every vector is absent.
type Table struct {
	entries [NumEntries]Descriptor

	// pseudoDesc holds the 16-bit limit and 64-bit base consumed by LIDT.
	pseudoDesc [10]byte
}

// InstallGate points vector at target. The present bit is always set,
// regardless of the supplied attributes, so a caller cannot install an inert
// gate by accident.
func (t *Table) InstallGate(vector InterruptNumber, target uintptr, selector uint16, attr Attr) {
	t.entries[vector] = Descriptor{
		offsetLow:  uint16(target),
		selector:   selector,
		attr:       attr | AttrPresent,
		offsetMid:  uint16(target >> 16),
		offsetHigh: uint32(uint64(target) >> 32),
	}
}

// InstallGateAt behaves like InstallGate but accepts an untyped vector
// index, rejecting values outside the table.
func (t *Table) InstallGateAt(vector int, target uintptr, selector uint16, attr Attr) *kernel.Error {
	if vector < 0 || vector >= NumEntries {
		return errInvalidVector
	}

	t.InstallGate(InterruptNumber(vector), target, selector, attr)
	return nil
}

// Entry returns the descriptor installed for vector.
func (t *Table) Entry(vector InterruptNumber) Descriptor {
	return t.entries[vector]
}

// Clear resets every descriptor to the absent state.
func (t *Table) Clear() {
	t.entries = [NumEntries]Descriptor{}
}

// Populate clears the table and runs each populator in order, stopping at the
// first error. It does not touch the IDT register.
func (t *Table) Populate(populators ...Populator) *kernel.Error {
	t.Clear()
	for _, populate := range populators {
		if err := populate(t); err != nil {
			return err
		}
	}

	return nil
}

// Load populates the table and then makes it authoritative by loading it into
// the CPU's IDT register. Load stops at the first populator error without
// touching the IDT register.
//
// Load must run before interrupts are enabled; calling it again before that
// point produces the same table. Calling it with interrupts enabled is
// rejected because a gate could be rewritten while it is being dispatched.
func (t *Table) Load(populators ...Populator) *kernel.Error {
	if interruptsEnabledFn() {
		return errInterruptsOn
	}

	if err := t.Populate(populators...); err != nil {
		return err
	}

	limit := uint16(unsafe.Sizeof(t.entries) - 1)
	base := uint64(uintptr(unsafe.Pointer(&t.entries[0])))
	t.pseudoDesc[0], t.pseudoDesc[1] = byte(limit), byte(limit>>8)
	for i := 0; i < 8; i++ {
		t.pseudoDesc[2+i] = byte(base >> (8 * uint(i)))
	}

	loadIDTFn(uintptr(unsafe.Pointer(&t.pseudoDesc[0])))
	return nil
}
