package console

import (
	"bytes"
	"image/color"
	"testing"
	"unsafe"

	"github.com/BigBoySanchez/rotOS/device"
)

func newTestEga(t *testing.T, width, height uint16) (*Ega, []uint16) {
	t.Helper()

	fb := make([]uint16, int(width)*int(height))
	cons := NewEga(width, height, uintptr(unsafe.Pointer(&fb[0])))
	if err := cons.DriverInit(&bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	return cons, fb
}

func TestEgaDimensions(t *testing.T) {
	cons := NewEga(40, 50, 0xb8000)
	if w, h := cons.Dimensions(); w != 40 || h != 50 {
		t.Fatalf("expected console dimensions to be 40x50; got %dx%d", w, h)
	}
	if fg, bg := cons.DefaultColors(); fg != White || bg != Black {
		t.Fatalf("expected default colors (%d, %d); got (%d, %d)", White, Black, fg, bg)
	}
}

func TestEgaDriverInit(t *testing.T) {
	fb := make([]uint16, 80*25)
	for i := range fb {
		fb[i] = 0xffff
	}

	cons := NewEga(80, 25, uintptr(unsafe.Pointer(&fb[0])))

	var buf bytes.Buffer
	if err := cons.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	exp := uint16(0x0f)<<8 | ' '
	for i, v := range fb {
		if v != exp {
			t.Fatalf("expected cell %d to be cleared to %x; got %x", i, exp, v)
		}
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("80x25 text mode at 0x")) {
		t.Fatalf("unexpected init output %q", buf.String())
	}

	if err := NewEga(80, 25, 0).DriverInit(&buf); err != errNoFramebuffer {
		t.Fatalf("expected errNoFramebuffer; got %v", err)
	}
}

func TestEgaWrite(t *testing.T) {
	cons, fb := newTestEga(t, 80, 25)

	specs := []struct {
		x, y   uint16
		fg, bg Attr
		ch     byte
	}{
		{0, 0, Green, Black, 'W'},
		{79, 24, LightRed, Blue, '!'},
		{10, 3, Yellow, Cyan, 'x'},
	}

	for specIndex, spec := range specs {
		cons.Write(spec.ch, spec.fg, spec.bg, spec.x, spec.y)

		exp := uint16(spec.bg)<<12 | uint16(spec.fg)<<8 | uint16(spec.ch)
		if got := fb[int(spec.y)*80+int(spec.x)]; got != exp {
			t.Errorf("[spec %d] expected cell value %x; got %x", specIndex, exp, got)
		}

		if ch, fg, bg := cons.Cell(spec.x, spec.y); ch != spec.ch || fg != spec.fg || bg != spec.bg {
			t.Errorf("[spec %d] expected Cell to return (%c, %d, %d); got (%c, %d, %d)", specIndex, spec.ch, spec.fg, spec.bg, ch, fg, bg)
		}
	}

	// Out of bounds writes and reads are ignored.
	snapshot := append([]uint16(nil), fb...)
	cons.Write('?', White, Black, 80, 0)
	cons.Write('?', White, Black, 0, 25)
	for i := range fb {
		if fb[i] != snapshot[i] {
			t.Fatalf("expected out of bounds write to be ignored; cell %d changed", i)
		}
	}
	if ch, _, _ := cons.Cell(80, 25); ch != 0 {
		t.Fatalf("expected out of bounds cell to read as 0; got %c", ch)
	}
}

func TestEgaFill(t *testing.T) {
	specs := []struct {
		x, y, w, h uint16
		expCells   int
	}{
		{0, 0, 80, 25, 80 * 25},
		{10, 10, 5, 2, 10},
		// clipped to the right and bottom edges
		{78, 23, 10, 10, 4},
		{80, 0, 1, 1, 0},
		{0, 25, 1, 1, 0},
	}

	for specIndex, spec := range specs {
		cons, fb := newTestEga(t, 80, 25)
		cons.Fill(spec.x, spec.y, spec.w, spec.h, Yellow, Blue)

		exp := uint16(makeAttr(Yellow, Blue))<<8 | ' '
		var count int
		for _, v := range fb {
			if v == exp {
				count++
			}
		}

		if count != spec.expCells {
			t.Errorf("[spec %d] expected %d filled cells; got %d", specIndex, spec.expCells, count)
		}
	}
}

func TestEgaScroll(t *testing.T) {
	cons, _ := newTestEga(t, 4, 3)
	fill := func() {
		for y := uint16(0); y < 3; y++ {
			for x := uint16(0); x < 4; x++ {
				cons.Write(byte('a'+y), White, Black, x, y)
			}
		}
	}
	rows := func() string {
		var buf bytes.Buffer
		for y := uint16(0); y < 3; y++ {
			ch, _, _ := cons.Cell(0, y)
			buf.WriteByte(ch)
		}
		return buf.String()
	}

	specs := []struct {
		dir   ScrollDir
		lines uint16
		exp   string
	}{
		{ScrollDirUp, 0, "abc"},
		{ScrollDirUp, 4, "abc"},
		{ScrollDirUp, 1, "bcc"},
		{ScrollDirUp, 2, "cbc"},
		{ScrollDirDown, 1, "aab"},
		{ScrollDirDown, 2, "aba"},
	}

	for specIndex, spec := range specs {
		fill()
		cons.Scroll(spec.dir, spec.lines)
		if got := rows(); got != spec.exp {
			t.Errorf("[spec %d] expected rows %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestEgaPalette(t *testing.T) {
	pal := NewEga(80, 25, 0).Palette()
	if len(pal) != 16 {
		t.Fatalf("expected a 16 color palette; got %d", len(pal))
	}

	if exp := (color.RGBA{R: 0, G: 170, B: 0, A: 255}); pal[Green] != exp {
		t.Fatalf("expected green to be %v; got %v", exp, pal[Green])
	}
}

func TestEgaDriverInterface(t *testing.T) {
	var cons Ega
	cons.Init(DefaultWidth, DefaultHeight, DefaultFramebufferAddr)

	var dev device.Driver = &cons
	if w, h := cons.Dimensions(); w != DefaultWidth || h != DefaultHeight {
		t.Fatalf("expected dimensions %dx%d; got %dx%d", DefaultWidth, DefaultHeight, w, h)
	}
	if cons.fbAddr != DefaultFramebufferAddr {
		t.Fatalf("expected framebuffer address %x; got %x", DefaultFramebufferAddr, cons.fbAddr)
	}
	if dev.DriverName() != "ega_text_console" {
		t.Fatalf("unexpected driver name %q", dev.DriverName())
	}
	if major, minor, patch := dev.DriverVersion(); major != 1 || minor != 0 || patch != 0 {
		t.Fatalf("unexpected driver version %d.%d.%d", major, minor, patch)
	}
}
