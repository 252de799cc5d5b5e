package avhttp

import (
	"fmt"
	"io"
	"os"

	"github.com/avhttp-go/avhttp/internal/decompress"
	"github.com/avhttp-go/avhttp/internal/headparse"
	"github.com/avhttp-go/avhttp/internal/htserr"
	"github.com/avhttp-go/avhttp/internal/transport/chunked"
)

// bodyState tracks the decoded response body reader for the request
// currently in flight, built fresh by setupBody once the response head
// has been parsed.
type bodyState struct {
	reader        io.Reader
	contentLength int64
	keepAlive     bool
	finished      bool
}

// setupBody chains the identity/chunked framing reader with the
// gzip/deflate inflater according to flags: framing first, then content
// decoding.
func (s *Stream) setupBody(flags headparse.Flags) {
	br := s.readerSnapshot()
	var framed io.Reader
	switch {
	case flags.Chunked:
		framed = chunked.NewChunkedReader(br)
	case flags.HasLength:
		framed = &identityLengthReader{src: br, remaining: flags.ContentLength}
	default:
		framed = br
	}
	s.body = bodyState{
		reader:        decompress.NewReader(framed, flags.Gzip, flags.Deflate),
		contentLength: flags.ContentLength,
		keepAlive:     flags.KeepAlive,
	}
	if !flags.HasLength {
		s.body.contentLength = -1
	}
}

// identityLengthReader frames an identity-encoded body by Content-Length,
// like io.LimitReader, but distinguishes the expected end (remaining
// reaches 0) from the underlying transport closing early: a src EOF
// while bytes are still owed is reported as ErrContentLengthMismatch
// instead of being forwarded as a clean io.EOF (spec §7).
type identityLengthReader struct {
	src       io.Reader
	remaining int64
}

func (r *identityLengthReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.src.Read(p)
	r.remaining -= int64(n)
	if err == io.EOF && r.remaining > 0 {
		return n, fmt.Errorf("%w: %d bytes short", htserr.ErrContentLengthMismatch, r.remaining)
	}
	return n, err
}

// ReadSome reads decoded body bytes. It returns io.EOF once the body is
// exhausted, at which point the connection is closed unless the
// response asked to keep it alive.
func (s *Stream) ReadSome(buf []byte) (int, error) {
	if !s.isTransportOpen() {
		return 0, htserr.ErrNotOpen
	}
	if s.body.finished || s.body.reader == nil {
		return 0, io.EOF
	}
	n, err := s.body.reader.Read(buf)
	if err != nil {
		if err == io.EOF {
			s.onBodyComplete()
		} else {
			err = normalizeIOErr(err, s.isClosing())
			s.closeTransport()
		}
	}
	return n, err
}

// WriteSome writes bytes directly to the transport, for callers driving
// a request body themselves instead of through the inline RequestOptions
// body.
func (s *Stream) WriteSome(buf []byte) (int, error) {
	t, open := s.transportSnapshot()
	if !open {
		return 0, htserr.ErrNotOpen
	}
	n, err := t.Write(buf)
	if err != nil {
		err = normalizeIOErr(err, s.isClosing())
	}
	return n, err
}

func (s *Stream) onBodyComplete() {
	s.body.finished = true
	if !s.body.keepAlive {
		s.closeTransport()
	}
}

// drainBody discards any unread body bytes, used before following a
// redirect or before reusing the connection for the next pipelined
// request in a chain.
func (s *Stream) drainBody() {
	if s.body.reader == nil || s.body.finished {
		return
	}
	io.Copy(io.Discard, s.body.reader)
	s.body.finished = true
}

// maybeCloseAfterBody closes the transport when the just-completed
// response forbids reuse, independent of whether the caller ever read
// the body (the redirect loop calls this after drainBody).
func (s *Stream) maybeCloseAfterBody(keepAlive bool) {
	if !keepAlive {
		s.closeTransport()
	}
}

// ReadBody reads the entire decoded response body into memory, for
// callers that don't need to stream it.
func (s *Stream) ReadBody() ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := s.ReadSome(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
	}
}

// DownloadToFile streams the decoded response body into a newly created
// file at path, mirroring avhttp::http_stream's file-backed async_read
// helpers.
func (s *Stream) DownloadToFile(path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var total int64
	buf := make([]byte, 64*1024)
	for {
		n, err := s.ReadSome(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
}
