package main

import "github.com/BigBoySanchez/rotOS/kernel/kmain"

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
func main() {
	kmain.Kmain()
}
