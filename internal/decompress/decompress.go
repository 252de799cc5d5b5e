// Package decompress wraps an already-framed (identity or dechunked)
// body reader in a gzip or raw-deflate inflater: when Content-Encoding
// advertised gzip/deflate, the decoded output is fed through an
// inflater before reaching the caller, and a decoder error is reported
// as decompression_error.
//
// No available third-party inflate/gzip codec covers this need (see
// DESIGN.md) -- decoding gzip/deflate response bodies is naturally
// served by compress/gzip and compress/flate, which the standard library
// already ships, so this is the one body-decoder concern built directly
// on the standard library.
package decompress

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"io"

	"github.com/avhttp-go/avhttp/internal/htserr"
)

// ErrDecompression wraps any error surfaced by the underlying inflater.
// It is htserr's own sentinel under this package's name, so
// errors.Is(err, htserr.ErrDecompressionError) matches a genuine
// inflater failure rather than a second, unrelated value.
var ErrDecompression = htserr.ErrDecompressionError

// NewReader returns src unchanged for identity encoding, or wraps it in a
// gzip/deflate inflater. gzip is detected by a streaming reader so a
// short or malformed gzip header is reported as soon as it is read
// rather than at construction time.
func NewReader(src io.Reader, gzipped, deflated bool) io.Reader {
	switch {
	case gzipped:
		return &lazyReader{src: src, open: openGzip}
	case deflated:
		return &lazyReader{src: src, open: openDeflate}
	default:
		return src
	}
}

func openGzip(src io.Reader) (io.Reader, error) {
	zr, err := gzip.NewReader(src)
	if err != nil {
		return nil, err
	}
	// stop at the end of the first gzip member instead of parsing any
	// trailing bytes as another member's header
	zr.Multistream(false)
	return zr, nil
}

func openDeflate(src io.Reader) (io.Reader, error) {
	return flate.NewReader(bufio.NewReader(src)), nil
}

// lazyReader defers opening the inflater until the first Read, so a
// caller that never reads the body never pays for (or risks an error
// from) inflater construction.
type lazyReader struct {
	src    io.Reader
	open   func(io.Reader) (io.Reader, error)
	opened io.Reader
	err    error
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if l.opened == nil {
		r, err := l.open(l.src)
		if err != nil {
			l.err = wrapErr(err)
			return 0, l.err
		}
		l.opened = r
	}
	n, err := l.opened.Read(p)
	if err != nil && err != io.EOF {
		err = wrapErr(err)
		l.err = err
	}
	// Trailing bytes after the inflater signals end are dropped (spec
	// §4.7): we simply stop reading from l.src once the inflater is
	// satisfied, rather than draining it.
	return n, err
}

func wrapErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}
	return errorsJoin(ErrDecompression, err)
}

func errorsJoin(sentinel, detail error) error {
	return &decompressionError{sentinel, detail}
}

type decompressionError struct {
	sentinel, detail error
}

func (e *decompressionError) Error() string { return e.sentinel.Error() + ": " + e.detail.Error() }
func (e *decompressionError) Unwrap() []error { return []error{e.sentinel, e.detail} }
