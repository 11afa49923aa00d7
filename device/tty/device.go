package tty

import (
	"io"

	"github.com/BigBoySanchez/rotOS/device/video/console"
)

// Device is implemented by objects that can be used as a terminal device.
type Device interface {
	io.Writer
	io.ByteWriter

	// AttachTo connects a TTY to a console instance.
	AttachTo(console.Device)

	// SetColors selects the colors used by subsequent writes.
	SetColors(fg, bg console.Attr)

	// Clear blanks the terminal and moves the cursor to the top-left
	// corner.
	Clear()

	// Position returns the current cursor coordinates.
	Position() (uint16, uint16)

	// SetPosition sets the current cursor position to (x,y).
	// Implementations are expected to clip the cursor position to their
	// viewport.
	SetPosition(x, y uint16)
}

var _ Device = (*Vt)(nil)
