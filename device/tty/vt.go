// Package tty implements the terminal that kernel output is written to.
package tty

import (
	"io"

	"github.com/BigBoySanchez/rotOS/device/video/console"
	"github.com/BigBoySanchez/rotOS/kernel"
)

// DefaultTabWidth defines the number of spaces that tabs expand to.
const DefaultTabWidth = 4

// Vt implements a terminal on top of a console device. It keeps no state
// beyond the cursor and the active colors; every write goes straight to the
// console and the console contents scroll up when the cursor moves past the
// last line. The terminal interprets the following special characters:
//   - \r (carriage-return)
//   - \n (line-feed)
//   - \b (backspace)
//   - \t (tab; expanded to tabWidth spaces)
type Vt struct {
	cons console.Device

	width  uint16
	height uint16

	tabWidth uint8
	curX     uint16
	curY     uint16

	defaultFg, curFg console.Attr
	defaultBg, curBg console.Attr
}

// NewVt creates a new terminal that expands tabs to tabWidth spaces.
func NewVt(tabWidth uint8) *Vt {
	t := new(Vt)
	t.Init(tabWidth)
	return t
}

// Init resets t in place to a detached terminal with the given tab width.
func (t *Vt) Init(tabWidth uint8) {
	*t = Vt{tabWidth: tabWidth}
}

// AttachTo connects the terminal to a console instance and moves the cursor
// to the top-left corner.
func (t *Vt) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.defaultFg, t.defaultBg = cons.DefaultColors()
	t.curFg, t.curBg = t.defaultFg, t.defaultBg
	t.curX, t.curY = 0, 0
}

// Dimensions returns the terminal width and height in characters.
func (t *Vt) Dimensions() (uint16, uint16) {
	return t.width, t.height
}

// SetColors selects the colors used by subsequent writes.
func (t *Vt) SetColors(fg, bg console.Attr) {
	t.curFg, t.curBg = fg, bg
}

// Clear blanks the terminal using the current colors and moves the cursor to
// the top-left corner.
func (t *Vt) Clear() {
	if t.cons == nil {
		return
	}

	t.cons.Fill(0, 0, t.width, t.height, t.curFg, t.curBg)
	t.curX, t.curY = 0, 0
}

// Position returns the current cursor position (x, y).
func (t *Vt) Position() (uint16, uint16) {
	return t.curX, t.curY
}

// SetPosition sets the current cursor position to (x,y), clipping it to the
// terminal.
func (t *Vt) SetPosition(x, y uint16) {
	if t.width == 0 || t.height == 0 {
		return
	}

	if x >= t.width {
		x = t.width - 1
	}
	if y >= t.height {
		y = t.height - 1
	}

	t.curX, t.curY = x, y
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	for count, b := range data {
		if err := t.WriteByte(b); err != nil {
			return count, err
		}
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *Vt) WriteByte(b byte) error {
	if t.cons == nil {
		return io.ErrClosedPipe
	}

	switch b {
	case '\r':
		t.curX = 0
	case '\n':
		t.curX = 0
		t.lf()
	case '\b':
		if t.curX > 0 {
			t.curX--
			t.cons.Write(' ', t.curFg, t.curBg, t.curX, t.curY)
		}
	case '\t':
		for i := uint8(0); i < t.tabWidth; i++ {
			t.put(' ')
		}
	default:
		t.put(b)
	}

	return nil
}

// put writes b at the cursor and advances it, wrapping at the end of the
// line.
func (t *Vt) put(b byte) {
	t.cons.Write(b, t.curFg, t.curBg, t.curX, t.curY)

	t.curX++
	if t.curX == t.width {
		t.curX = 0
		t.lf()
	}
}

// lf advances the cursor by one line scrolling the console contents if the
// cursor is already on the last line.
func (t *Vt) lf() {
	if t.curY+1 < t.height {
		t.curY++
		return
	}

	t.cons.Scroll(console.ScrollDirUp, 1)
	t.cons.Fill(0, t.height-1, t.width, 1, t.defaultFg, t.defaultBg)
}

// DriverName returns the name of this driver.
func (t *Vt) DriverName() string {
	return "vt"
}

// DriverVersion returns the version of this driver.
func (t *Vt) DriverVersion() (uint16, uint16, uint16) {
	return 1, 0, 0
}

// DriverInit initializes this driver.
func (t *Vt) DriverInit(_ io.Writer) *kernel.Error { return nil }
