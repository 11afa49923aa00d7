package cpu

// flagIF is the RFLAGS interrupt-enable bit.
const flagIF = 1 << 9

var (
	flagsFn = Flags
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt disables interrupts and stops instruction execution.
func Halt()

// WaitForInterrupt stops instruction execution until the next interrupt
// arrives. Interrupts must be enabled or the CPU never wakes up.
func WaitForInterrupt()

// Flags returns the contents of the RFLAGS register.
func Flags() uint64

// InterruptsEnabled returns true if the CPU will currently accept maskable
// interrupts.
func InterruptsEnabled() bool {
	return flagsFn()&flagIF != 0
}

// LoadIDT loads the IDT register from the 10-byte pseudo-descriptor (16-bit
// limit followed by the 64-bit table base) stored at descriptorAddr.
func LoadIDT(descriptorAddr uintptr)

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
