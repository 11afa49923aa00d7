// Command irqsim boots the kernel's interrupt core on a development host. It
// wires the IRQ router, the 8259A driver and the timer and keyboard drivers
// to software models of the PC devices, delivers synthetic timer ticks and
// key presses and reports what the kernel observed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BigBoySanchez/rotOS/device/timer"
)

const ctrlD = 0x04

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[irqsim] error: %s\n", err.Error())
	os.Exit(1)
}

type options struct {
	hz          uint
	ticks       uint
	keys        string
	interactive bool
	screenshot  string
	verbose     bool
}

func parseFlags(args []string) (*options, error) {
	var opts options

	fs := flag.NewFlagSet("irqsim", flag.ContinueOnError)
	fs.UintVar(&opts.hz, "hz", timer.DefaultFrequency, "timer tick frequency")
	fs.UintVar(&opts.ticks, "ticks", 100, "number of timer ticks to deliver")
	fs.StringVar(&opts.keys, "keys", "hello, rotos\n", "text to type on the simulated keyboard")
	fs.BoolVar(&opts.interactive, "interactive", false, "forward key presses from the terminal until Ctrl-D")
	fs.StringVar(&opts.screenshot, "screenshot", "", "write the final console contents to this PNG file")
	fs.BoolVar(&opts.verbose, "v", false, "copy kernel console output to stdout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case opts.hz == 0 || opts.hz > timer.BaseFrequency:
		return nil, fmt.Errorf("-hz must be in the range 1-%d", timer.BaseFrequency)
	case opts.interactive && isFlagSet(fs, "keys"):
		return nil, errors.New("-keys and -interactive are mutually exclusive")
	}

	return &opts, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	var found bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// runScripted delivers the configured ticks and key presses.
func runScripted(m *machine, opts *options) error {
	for i := uint(0); i < opts.ticks; i++ {
		m.tick()
	}

	for i := 0; i < len(opts.keys); i++ {
		if err := m.press(opts.keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// runInteractive forwards key presses from in while the timer ticks in real
// time, until in returns EOF or Ctrl-D is typed.
func runInteractive(m *machine, in io.Reader, hz uint) error {
	done := make(chan struct{})
	defer close(done)
	keys := readKeys(in, done)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick()
		case ch, ok := <-keys:
			if !ok || ch == ctrlD {
				return nil
			}
			switch {
			case ch == '\r':
				ch = '\n'
			case ch >= 'A' && ch <= 'Z':
				ch += 'a' - 'A'
			}
			if err := m.press(ch); err != nil {
				fmt.Fprintf(os.Stderr, "[irqsim] %s\n", err)
			}
		case <-sig:
			return nil
		}
	}
}

// readKeys forwards the bytes read from in until in fails or done is closed.
// The returned channel is closed when the reader goroutine exits.
func readKeys(in io.Reader, done <-chan struct{}) <-chan byte {
	keys := make(chan byte, 1)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			if n, err := in.Read(buf); err != nil || n == 0 {
				return
			}
			select {
			case keys <- buf[0]:
			case <-done:
				return
			}
		}
	}()
	return keys
}

func run(opts *options) error {
	var log io.Writer
	if opts.verbose || opts.interactive {
		log = os.Stdout
	}

	m, err := newMachine(uint32(opts.hz), log)
	if err != nil {
		return err
	}
	defer m.close()

	if opts.interactive {
		rm, err := enableRawMode(os.Stdin)
		if err != nil {
			return err
		}
		err = runInteractive(m, os.Stdin, opts.hz)
		if rerr := rm.restore(); err == nil {
			err = rerr
		}
		if err != nil {
			return err
		}
	} else if err := runScripted(m, opts); err != nil {
		return err
	}

	fmt.Println("--- console ---")
	for _, row := range m.screen() {
		fmt.Println(row)
	}
	fmt.Println("---------------")
	m.report(os.Stdout)

	if opts.screenshot != "" {
		if err := renderScreenshot(m.cons, opts.screenshot); err != nil {
			return err
		}
		fmt.Printf("screenshot saved to %s\n", opts.screenshot)
	}

	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		exit(err)
	}

	if err := run(opts); err != nil {
		exit(err)
	}
}
