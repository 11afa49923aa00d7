// Package console implements the text mode display the kernel writes its
// output to.
package console

import "image/color"

// Attr is one of the 16 EGA colors.
type Attr uint8

// The EGA color set.
const (
	Black Attr = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	Grey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	Yellow
	White
)

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	ScrollDirUp ScrollDir = iota
	ScrollDirDown
)

// The Device interface is implemented by objects that can function as system
// consoles. Coordinates are 0-based with the origin at the top-left corner.
type Device interface {
	// Dimensions returns the width and height of the console in
	// characters.
	Dimensions() (uint16, uint16)

	// DefaultColors returns the default foreground and background colors
	// used by this console.
	DefaultColors() (fg, bg Attr)

	// Fill sets the contents of the specified rectangular region to blank
	// characters drawn with the requested colors.
	Fill(x, y, width, height uint16, fg, bg Attr)

	// Scroll the console contents to the specified direction. The caller
	// is responsible for updating (e.g. clear or replace) the contents of
	// the region that was scrolled.
	Scroll(dir ScrollDir, lines uint16)

	// Write a char to the specified location.
	Write(ch byte, fg, bg Attr, x, y uint16)

	// Palette returns the RGB values of the console colors.
	Palette() color.Palette
}
