package irq

const (
	// NumLines is the number of legacy IRQ lines.
	NumLines = 16

	// DefaultVectorBase is the vector IRQ line 0 is delivered on. Vectors
	// below it are reserved for CPU exceptions. The slave controller's
	// lines follow at DefaultVectorBase+8.
	DefaultVectorBase = 32

	// DefaultCodeSelector is the kernel code segment selector installed
	// into every gate.
	DefaultCodeSelector = 0x08
)

// Config holds the settings shared by the Router and the interrupt
// controller driver. Both must agree on VectorBase: the controller is
// programmed with it and the Router uses it to map vectors back to lines.
type Config struct {
	// VectorBase is the vector of IRQ line 0. It must be a multiple of 8,
	// at least 32 and at most 240, and every vector it selects needs an
	// entry stub (see gate.NumEntryStubs).
	VectorBase uint8

	// CodeSelector is the code segment selector used by the gates.
	CodeSelector uint16
}

// DefaultConfig returns the standard PC configuration.
func DefaultConfig() Config {
	return Config{
		VectorBase:   DefaultVectorBase,
		CodeSelector: DefaultCodeSelector,
	}
}

// MasterOffset returns the vector offset for the master controller.
func (c Config) MasterOffset() uint8 {
	return c.VectorBase
}

// SlaveOffset returns the vector offset for the slave controller.
func (c Config) SlaveOffset() uint8 {
	return c.VectorBase + 8
}

// valid returns true if VectorBase places all lines above the exception
// vectors, inside the table and on a controller-aligned boundary.
func (c Config) valid() bool {
	return c.VectorBase >= 32 && c.VectorBase <= 256-NumLines && c.VectorBase%8 == 0
}
