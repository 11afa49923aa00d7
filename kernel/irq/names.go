package irq

import "github.com/BigBoySanchez/rotOS/kernel/gate"

var exceptionNames = [gate.NumExceptions]string{
	"divide error",
	"debug",
	"non-maskable interrupt",
	"breakpoint",
	"overflow",
	"bound range exceeded",
	"invalid opcode",
	"device not available",
	"double fault",
	"coprocessor segment overrun",
	"invalid TSS",
	"segment not present",
	"stack-segment fault",
	"general protection fault",
	"page fault",
	"reserved",
	"x87 floating-point exception",
	"alignment check",
	"machine check",
	"SIMD floating-point exception",
	"virtualization exception",
	"control protection exception",
	"reserved",
	"reserved",
	"reserved",
	"reserved",
	"reserved",
	"reserved",
	"hypervisor injection exception",
	"VMM communication exception",
	"security exception",
	"reserved",
}

// ExceptionName returns a human readable name for a CPU exception vector.
func ExceptionName(vector gate.InterruptNumber) string {
	if vector >= gate.NumExceptions {
		return "not an exception"
	}
	return exceptionNames[vector]
}
