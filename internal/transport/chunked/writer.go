package chunked

import (
	"fmt"
	"io"
)

// chunkedWriter is used by this module's tests to produce scripted
// chunked-encoded bodies for Reader to decode; nothing in the request
// path writes a chunked request body.
type chunkedWriter struct {
	Wire io.Writer
}

// NewChunkedWriter wraps w so each Write call is framed as one chunk.
func NewChunkedWriter(w io.Writer) *chunkedWriter {
	return &chunkedWriter{w}
}

func (cw *chunkedWriter) Write(data []byte) (n int, err error) {
	if len(data) == 0 {
		// a zero-length chunk is the terminator; skip it rather than end
		// the stream early.
		return 0, nil
	}
	if _, err = fmt.Fprintf(cw.Wire, "%x\r\n", len(data)); err != nil {
		return 0, err
	}
	if n, err = cw.Wire.Write(data); err != nil {
		return
	}
	if n != len(data) {
		err = io.ErrShortWrite
		return
	}
	if _, err = io.WriteString(cw.Wire, "\r\n"); err != nil {
		return
	}
	if f, ok := cw.Wire.(interface{ Flush() error }); ok {
		err = f.Flush()
	}
	return
}

// Close writes the terminating zero-length chunk with no trailers.
func (cw *chunkedWriter) Close() error {
	return cw.CloseWithTrailer(nil)
}

// CloseWithTrailer writes the terminating zero-length chunk followed by
// trailer header lines.
func (cw *chunkedWriter) CloseWithTrailer(trailer map[string]string) error {
	if _, err := io.WriteString(cw.Wire, "0\r\n"); err != nil {
		return err
	}
	for k, v := range trailer {
		if _, err := fmt.Fprintf(cw.Wire, "%s: %s\r\n", k, v); err != nil {
			return err
		}
	}
	_, err := io.WriteString(cw.Wire, "\r\n")
	return err
}
