package avhttp

import "context"

// Callback reports the completion of an asynchronous operation that
// carries no result besides success/failure.
type Callback func(error)

// ReadCallback reports the completion of an asynchronous read or write,
// carrying the byte count transferred.
type ReadCallback func(n int, err error)

// AsyncOpen performs Open on the Stream's reactor goroutine, invoking cb
// with the result once it completes. Callers may call Close concurrently
// from another goroutine to cancel the in-flight operation; the pending
// callback then reports ErrOperationAborted.
func (s *Stream) AsyncOpen(ctx context.Context, u *URL, cb Callback) {
	s.ensureReactor().Post(func() {
		cb(s.Open(ctx, u))
	})
}

// AsyncRequest performs Request on the Stream's reactor goroutine.
func (s *Stream) AsyncRequest(ctx context.Context, opts *RequestOptions, cb Callback) {
	s.ensureReactor().Post(func() {
		cb(s.Request(ctx, opts))
	})
}

// AsyncReadSome performs ReadSome on the Stream's reactor goroutine.
func (s *Stream) AsyncReadSome(buf []byte, cb ReadCallback) {
	s.ensureReactor().Post(func() {
		n, err := s.ReadSome(buf)
		cb(n, err)
	})
}

// AsyncWriteSome performs WriteSome on the Stream's reactor goroutine.
func (s *Stream) AsyncWriteSome(buf []byte, cb ReadCallback) {
	s.ensureReactor().Post(func() {
		n, err := s.WriteSome(buf)
		cb(n, err)
	})
}

// AsyncClose performs Close on the Stream's reactor goroutine.
func (s *Stream) AsyncClose(cb Callback) {
	s.ensureReactor().Post(func() {
		cb(s.Close())
	})
}
