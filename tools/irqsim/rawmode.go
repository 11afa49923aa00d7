package main

import (
	"errors"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var errNotTerminal = errors.New("stdin is not a terminal")

// rawMode switches stdin to non-canonical mode without echo so that every
// key press reaches the simulator as soon as it is typed.
type rawMode struct {
	fd   uintptr
	orig unix.Termios
}

func enableRawMode(f *os.File) (*rawMode, error) {
	if !term.IsTerminal(int(f.Fd())) {
		return nil, errNotTerminal
	}

	rm := &rawMode{fd: f.Fd()}
	if err := termios.Tcgetattr(rm.fd, &rm.orig); err != nil {
		return nil, err
	}

	raw := rm.orig
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := termios.Tcsetattr(rm.fd, termios.TCSANOW, &raw); err != nil {
		return nil, err
	}

	return rm, nil
}

// restore puts the terminal back into the mode it was in before
// enableRawMode.
func (rm *rawMode) restore() error {
	return termios.Tcsetattr(rm.fd, termios.TCSANOW, &rm.orig)
}
