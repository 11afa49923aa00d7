package console

import (
	"image/color"
	"io"
	"unsafe"

	"github.com/BigBoySanchez/rotOS/kernel"
	"github.com/BigBoySanchez/rotOS/kernel/kfmt"
)

const (
	// DefaultFramebufferAddr is the physical address of the EGA text
	// framebuffer.
	DefaultFramebufferAddr = uintptr(0xb8000)

	// DefaultWidth and DefaultHeight describe the standard 80x25 text
	// mode.
	DefaultWidth  = 80
	DefaultHeight = 25

	clearChar = uint16(' ')
)

var errNoFramebuffer = &kernel.Error{Module: "ega", Message: "framebuffer address is not set"}

// Ega implements an EGA-compatible text console. Each character cell of the
// framebuffer holds the character code in the low byte and the background
// and foreground colors in the upper and lower nibble of the high byte.
type Ega struct {
	width  uint16
	height uint16

	fbAddr uintptr
	fb     []uint16

	defaultFg Attr
	defaultBg Attr
}

// NewEga creates an EGA console with the given dimensions whose framebuffer
// lives at fbAddr. The framebuffer is not touched until DriverInit runs.
func NewEga(width, height uint16, fbAddr uintptr) *Ega {
	cons := new(Ega)
	cons.Init(width, height, fbAddr)
	return cons
}

// Init sets up cons in place with the same arguments as NewEga.
func (cons *Ega) Init(width, height uint16, fbAddr uintptr) {
	*cons = Ega{
		width:     width,
		height:    height,
		fbAddr:    fbAddr,
		defaultFg: White,
		defaultBg: Black,
	}
}

// Dimensions returns the console width and height in characters.
func (cons *Ega) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// DefaultColors returns the default foreground and background colors
// used by this console.
func (cons *Ega) DefaultColors() (fg, bg Attr) {
	return cons.defaultFg, cons.defaultBg
}

// Fill sets the contents of the specified rectangular region to the
// requested colors. The region is clipped to the console.
func (cons *Ega) Fill(x, y, width, height uint16, fg, bg Attr) {
	var (
		clr                  = uint16(makeAttr(fg, bg))<<8 | clearChar
		rowOffset, colOffset uint32
	)

	// clip rectangle
	if x >= cons.width || y >= cons.height {
		return
	}
	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = uint32(y)*uint32(cons.width) + uint32(x)
	for ; height > 0; height, rowOffset = height-1, rowOffset+uint32(cons.width) {
		for colOffset = rowOffset; colOffset < rowOffset+uint32(width); colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Scroll a particular number of lines to the specified direction.
func (cons *Ega) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	var (
		i      uint32
		offset = uint32(lines) * uint32(cons.width)
		size   = uint32(cons.height) * uint32(cons.width)
	)

	switch dir {
	case ScrollDirUp:
		for ; i < size-offset; i++ {
			cons.fb[i] = cons.fb[i+offset]
		}
	case ScrollDirDown:
		for i = size - 1; i >= offset; i-- {
			cons.fb[i] = cons.fb[i-offset]
		}
	}
}

// Write a char to the specified location. Writes outside the console are
// ignored.
func (cons *Ega) Write(ch byte, fg, bg Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	cons.fb[uint32(y)*uint32(cons.width)+uint32(x)] = uint16(makeAttr(fg, bg))<<8 | uint16(ch)
}

// Cell returns the character and colors stored at the specified location.
func (cons *Ega) Cell(x, y uint16) (ch byte, fg, bg Attr) {
	if x >= cons.width || y >= cons.height {
		return 0, 0, 0
	}

	v := cons.fb[uint32(y)*uint32(cons.width)+uint32(x)]
	return byte(v), Attr(v>>8) & 0xf, Attr(v>>12) & 0xf
}

// Palette returns the RGB values of the 16 EGA colors.
func (cons *Ega) Palette() color.Palette {
	return egaPalette
}

// DriverName returns the name of this driver.
func (cons *Ega) DriverName() string {
	return "ega_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *Ega) DriverVersion() (uint16, uint16, uint16) {
	return 1, 0, 0
}

// DriverInit attaches the console to its framebuffer and clears it.
func (cons *Ega) DriverInit(w io.Writer) *kernel.Error {
	if cons.fbAddr == 0 {
		return errNoFramebuffer
	}

	cons.fb = unsafe.Slice((*uint16)(unsafe.Pointer(cons.fbAddr)), int(cons.width)*int(cons.height))
	cons.Fill(0, 0, cons.width, cons.height, cons.defaultFg, cons.defaultBg)

	kfmt.Fprintf(w, "%dx%d text mode at 0x%x\n", cons.width, cons.height, cons.fbAddr)
	return nil
}

func makeAttr(fg, bg Attr) uint8 {
	return uint8(bg&0xf)<<4 | uint8(fg&0xf)
}

var egaPalette = color.Palette{
	color.RGBA{R: 0, G: 0, B: 0, A: 255},       /* black */
	color.RGBA{R: 0, G: 0, B: 170, A: 255},     /* blue */
	color.RGBA{R: 0, G: 170, B: 0, A: 255},     /* green */
	color.RGBA{R: 0, G: 170, B: 170, A: 255},   /* cyan */
	color.RGBA{R: 170, G: 0, B: 0, A: 255},     /* red */
	color.RGBA{R: 170, G: 0, B: 170, A: 255},   /* magenta */
	color.RGBA{R: 170, G: 85, B: 0, A: 255},    /* brown */
	color.RGBA{R: 170, G: 170, B: 170, A: 255}, /* light gray */
	color.RGBA{R: 85, G: 85, B: 85, A: 255},    /* dark gray */
	color.RGBA{R: 85, G: 85, B: 255, A: 255},   /* light blue */
	color.RGBA{R: 85, G: 255, B: 85, A: 255},   /* light green */
	color.RGBA{R: 85, G: 255, B: 255, A: 255},  /* light cyan */
	color.RGBA{R: 255, G: 85, B: 85, A: 255},   /* light red */
	color.RGBA{R: 255, G: 85, B: 255, A: 255},  /* light magenta */
	color.RGBA{R: 255, G: 255, B: 85, A: 255},  /* yellow */
	color.RGBA{R: 255, G: 255, B: 255, A: 255}, /* white */
}
