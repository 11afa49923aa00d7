package gate

import "github.com/BigBoySanchez/rotOS/kernel/cpu"

// NumEntryStubs is the number of vectors backed by an assembly entry stub:
// the 32 CPU exceptions followed by the 16 legacy IRQ lines.
const NumEntryStubs = 48

var (
	loadIDTFn           = cpu.LoadIDT
	interruptsEnabledFn = cpu.InterruptsEnabled

	// trapHandler receives every trap frame built by the entry stubs.
	trapHandler func(*Registers)
)

// EntryStub returns the address of the entry stub for vector or 0 if no stub
// exists for it.
func EntryStub(vector InterruptNumber) uintptr {
	if vector >= NumEntryStubs {
		return 0
	}

	return entryStubAddr(uint64(vector))
}

// SetTrapHandler registers the function that the entry stubs hand each trap
// frame to. It must be set before the IDT is loaded.
func SetTrapHandler(handler func(*Registers)) {
	trapHandler = handler
}

// dispatchTrap is invoked by the entry stubs with a pointer to the frame they
// pushed. Traps arriving before a handler is registered are dropped.
func dispatchTrap(regs *Registers) {
	if trapHandler != nil {
		trapHandler(regs)
	}
}

// entryStubAddr returns the address of the entry stub for vector. It is
// implemented in assembly and vector must be below NumEntryStubs.
func entryStubAddr(vector uint64) uintptr
