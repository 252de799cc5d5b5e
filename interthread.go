package avhttp

import (
	"context"

	"github.com/avhttp-go/avhttp/internal/interthread"
)

// InterThreadPipe relays body bytes between two goroutines without a
// socket, mirroring avhttp::interthread_stream: one side is typically a
// Stream fed by AsyncReadSome, the other a producer decoding the body
// further (e.g. a streaming decompressor or a file writer) on its own
// goroutine. Only the asynchronous half is implemented; ReadSome and
// WriteSome report ErrNotImplemented, matching the collaborator this is
// adapted from.
type InterThreadPipe struct {
	inner *interthread.Pipe
}

// NewInterThreadPipe creates a pipe with room for backlog frames written
// but not yet read.
func NewInterThreadPipe(backlog int) *InterThreadPipe {
	return &InterThreadPipe{inner: interthread.NewPipe(backlog)}
}

func (p *InterThreadPipe) ReadSome(buf []byte) (int, error)  { return p.inner.ReadSome(buf) }
func (p *InterThreadPipe) WriteSome(buf []byte) (int, error) { return p.inner.WriteSome(buf) }

// AsyncReadSome delivers the next frame written by AsyncWriteSome.
func (p *InterThreadPipe) AsyncReadSome(buf []byte, cb ReadCallback) {
	p.inner.ReadSomeAsync(context.Background(), buf, func(n int, err error) { cb(n, err) })
}

// AsyncWriteSome enqueues buf as one frame for the reader side.
func (p *InterThreadPipe) AsyncWriteSome(buf []byte, cb ReadCallback) {
	p.inner.WriteSomeAsync(context.Background(), buf, func(n int, err error) { cb(n, err) })
}

// Close unblocks any pending AsyncReadSome call.
func (p *InterThreadPipe) Close() error { return p.inner.Close() }
