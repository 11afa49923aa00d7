package main

import (
	"github.com/fogleman/gg"

	"github.com/BigBoySanchez/rotOS/device/video/console"
)

// Size of a rendered character cell in pixels.
const (
	cellWidth     = 8
	cellHeight    = 16
	glyphBaseline = 12
)

// renderScreenshot draws the contents of cons into a PNG file at path using
// the console palette.
func renderScreenshot(cons *console.Ega, path string) error {
	w, h := cons.Dimensions()
	dc := gg.NewContext(int(w)*cellWidth, int(h)*cellHeight)
	palette := cons.Palette()

	for y := uint16(0); y < h; y++ {
		for x := uint16(0); x < w; x++ {
			ch, fg, bg := cons.Cell(x, y)
			px, py := float64(int(x)*cellWidth), float64(int(y)*cellHeight)

			dc.SetColor(palette[bg])
			dc.DrawRectangle(px, py, cellWidth, cellHeight)
			dc.Fill()

			if ch <= ' ' || ch > '~' {
				continue
			}
			dc.SetColor(palette[fg])
			dc.DrawString(string(ch), px, py+glyphBaseline)
		}
	}

	return dc.SavePNG(path)
}
