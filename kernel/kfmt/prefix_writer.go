package kfmt

import "io"

var lineFeed = []byte{'\n'}

// PrefixWriter wraps an io.Writer and emits Prefix at the start of every
// line written through it. Subsystems use it to tag their log output, e.g.
// "[irq] ".
type PrefixWriter struct {
	// Sink receives the prefixed output.
	Sink io.Writer

	// Prefix is injected at the beginning of each line.
	Prefix []byte

	// midLine is set while the last byte written was not a line feed.
	midLine bool
}

// Write implements io.Writer. The returned byte count excludes any injected
// prefixes.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written, start int

	for start < len(p) {
		if !w.midLine {
			w.Sink.Write(w.Prefix)
			w.midLine = true
		}

		end := start
		for end < len(p) && p[end] != '\n' {
			end++
		}
		if end < len(p) {
			// include the line feed
			end++
			w.midLine = false
		}

		n, err := w.Sink.Write(p[start:end])
		written += n
		if err != nil {
			return written, err
		}
		start = end
	}

	return written, nil
}

// EndLine terminates a partially written line so that the next write starts
// with the prefix.
func (w *PrefixWriter) EndLine() {
	if w.midLine {
		w.Sink.Write(lineFeed)
		w.midLine = false
	}
}
