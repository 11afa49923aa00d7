package kfmt

import "io"

// ringBufferSize is the capacity of the early output buffer. It is large
// enough to hold a full 80x25 text screen and must be a power of 2.
const ringBufferSize = 2048

// ringBuffer is a fixed-size byte ring that silently drops the oldest data
// when it fills up.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write appends p to the ring, overwriting the oldest bytes if needed.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.wIndex == rb.rIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read copies up to len(p) buffered bytes into p. It returns io.EOF once the
// ring is empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	n := copy(p, rb.pending())
	rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)
	return n, nil
}

// WriteTo drains the ring into w. io.Copy prefers it over Read, which keeps
// SetOutputSink from allocating a copy buffer.
func (rb *ringBuffer) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for rb.rIndex != rb.wIndex {
		n, err := w.Write(rb.pending())
		total += int64(n)
		rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)

		switch {
		case err != nil:
			return total, err
		case n == 0:
			return total, io.ErrShortWrite
		}
	}

	return total, nil
}

// pending returns the contiguous run of unread bytes starting at rIndex.
// Data either runs up to wIndex or, if it wraps, up to the end of the backing
// array; the remainder is returned by the next call.
func (rb *ringBuffer) pending() []byte {
	end := rb.wIndex
	if rb.rIndex > rb.wIndex {
		end = ringBufferSize
	}

	return rb.buffer[rb.rIndex:end]
}
