package gate

import (
	"io"

	"github.com/BigBoySanchez/rotOS/kernel/kfmt"
)

// Registers is the trap frame built on the stack by the entry stubs when an
// exception or interrupt occurs. Its field order mirrors the push order in
// gate_amd64.s and must not change independently of it.
//
// A Registers value is only valid for the duration of the dispatch that
// received it; it lives on the interrupted code's stack. If the handler
// returns, any modifications are propagated back to the interrupted code.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Number is the vector that triggered the trap.
	Number uint64

	// ErrorCode is the code pushed by the CPU for exceptions that provide
	// one (see HasErrorCode) and 0 otherwise.
	ErrorCode uint64

	// The return frame used by IRETQ
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// Vector returns the interrupt number that triggered the trap.
func (r *Registers) Vector() InterruptNumber {
	return InterruptNumber(r.Number)
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "INT = %16x ERR = %16x\n", r.Number, r.ErrorCode)
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}
