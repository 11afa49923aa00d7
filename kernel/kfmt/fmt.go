// Package kfmt implements the kernel's diagnostic output path. Everything in
// this package must work without the Go allocator so that it can be used from
// interrupt context and before the runtime has been bootstrapped.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize is large enough to hold a 64-bit value in base 8 plus a sign.
const numBufSize = 24

var (
	errMissingArg   = []byte("%!(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numBuf [numBufSize]byte

	// oneByte is a shared scratch buffer for emitting single characters.
	oneByte = []byte{0}

	// earlyBuffer captures output produced before an output sink is
	// registered.
	earlyBuffer ringBuffer

	// outputSink receives all Printf output. While nil, output is
	// captured by earlyBuffer.
	outputSink io.Writer
)

// SetOutputSink makes w the target for Printf and replays any output that
// was captured before a sink was available.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyBuffer)
	}
}

// Console is an io.Writer that forwards everything to the active output sink
// or, while no sink is registered, to the early buffer.
var Console io.Writer = consoleWriter{}

type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	doWrite(outputSink, p)
	return len(p), nil
}

// GetOutputSink returns the currently active output sink.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf writes formatted output to the active output sink. It supports a
// subset of the fmt verbs:
//
//	%s  string or []byte
//	%c  a single character (byte or rune in the ASCII range)
//	%d  base 10 integer
//	%x  base 16 integer, lower-case digits
//	%o  base 8 integer
//	%t  boolean
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes.
//
// Only built-in integer, string and bool types are recognized; io.Stringer
// is not consulted because interface conversions may require allocations.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes its output to w. A nil w is treated
// as the early ring buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		n        = len(format)
	)

	for i := 0; i < n; i++ {
		if format[i] != '%' {
			writeByte(w, format[i])
			continue
		}

		width = 0
		for i++; i < n && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == n {
			doWrite(w, errNoVerb)
			break
		}

		verb := format[i]
		if verb == '%' {
			writeByte(w, '%')
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		switch verb {
		case 'd':
			fmtInt(w, args[argIndex], 10, width)
		case 'x':
			fmtInt(w, args[argIndex], 16, width)
		case 'o':
			fmtInt(w, args[argIndex], 8, width)
		case 's':
			fmtString(w, args[argIndex], width)
		case 'c':
			fmtChar(w, args[argIndex])
		case 't':
			fmtBool(w, args[argIndex])
		default:
			doWrite(w, errNoVerb)
			continue
		}
		argIndex++
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtChar(w io.Writer, v interface{}) {
	switch ch := v.(type) {
	case byte:
		writeByte(w, ch)
	case rune:
		if ch < 0 || ch > 0x7f {
			writeByte(w, '?')
			return
		}
		writeByte(w, byte(ch))
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtString emits a string or byte slice, left-padded with spaces to width.
func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		pad(w, ' ', width-len(s))
		// Converting s to a []byte would allocate.
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		pad(w, ' ', width-len(s))
		doWrite(w, s)
	default:
		doWrite(w, errWrongArgType)
	}
}

func pad(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt emits v in the requested base, padded to width.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		mag uint64
		neg bool
	)

	switch val := v.(type) {
	case uint8:
		mag = uint64(val)
	case uint16:
		mag = uint64(val)
	case uint32:
		mag = uint64(val)
	case uint64:
		mag = val
	case uint:
		mag = uint64(val)
	case uintptr:
		mag = uint64(val)
	case int8:
		mag, neg = abs(int64(val))
	case int16:
		mag, neg = abs(int64(val))
	case int32:
		mag, neg = abs(int64(val))
	case int64:
		mag, neg = abs(val)
	case int:
		mag, neg = abs(int64(val))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	// Digits are produced right to left.
	pos := numBufSize
	for {
		digit := byte(mag % base)
		if digit < 10 {
			digit += '0'
		} else {
			digit += 'a' - 10
		}
		pos--
		numBuf[pos] = digit

		if mag /= base; mag == 0 {
			break
		}
	}

	if width >= numBufSize {
		width = numBufSize - 1
	}

	padCh := byte('0')
	if base == 10 {
		padCh = ' '
	}

	if neg && padCh == '0' {
		// Zero-padded values keep the sign in front of the padding.
		for numBufSize-pos < width-1 {
			pos--
			numBuf[pos] = padCh
		}
		pos--
		numBuf[pos] = '-'
	} else {
		if neg {
			pos--
			numBuf[pos] = '-'
		}
		for numBufSize-pos < width {
			pos--
			numBuf[pos] = padCh
		}
	}

	doWrite(w, numBuf[pos:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func writeByte(w io.Writer, b byte) {
	oneByte[0] = b
	doWrite(w, oneByte)
}

// doWrite hides p from escape analysis. Without this, the compiler cannot
// prove that p does not escape through the (unknown) io.Writer and every
// Printf call site would heap-allocate its argument slice.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w == nil {
		earlyBuffer.Write(p)
		return
	}
	w.Write(p)
}

// noEscape hides a pointer from escape analysis. It mirrors the helper in
// runtime/stubs.go.
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
