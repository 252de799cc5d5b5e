// Package avhttp is a client-side HTTP/1.1 transport with optional TLS,
// optional SOCKS4/SOCKS4a/SOCKS5 and HTTP CONNECT proxying, and optional
// gzip/deflate content decoding.
//
// It exposes [Stream], a byte-oriented abstraction resembling a socket:
// the caller opens a URL, the Stream performs all required negotiation
// and replies with the decoded response body as an ordinary readable
// byte sequence (ReadSome), with both blocking and asynchronous
// (completion-callback) entry points sharing one engine.
//
// A Stream is NOT safe for concurrent use from multiple goroutines; like
// the avhttp::http_stream this module generalizes, callers must serialize
// their own calls into a given Stream (see internal/reactor's doc comment
// for how the asynchronous API still gets single-threaded semantics per
// Stream without requiring external locking).
package avhttp

import (
	"bufio"
	"context"
	"crypto/x509"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/avhttp-go/avhttp/internal/htserr"
	"github.com/avhttp-go/avhttp/internal/reactor"
	"github.com/avhttp-go/avhttp/internal/transport"
)

const defaultMaxRedirects = 5

// Stream is the client request/response state machine: it owns a
// transport variant, the shared read buffer, request/response option
// maps, and the counters and flags that drive redirect-following,
// chunked decoding and keep-alive reuse.
type Stream struct {
	reactor *reactor.Reactor
	dialer  net.Dialer
	logger  *log.Logger // optional; used sparingly at proxy-negotiation and redirect boundaries

	mu            sync.Mutex    // guards transport/br/transportOpen against a concurrent Close
	transport     *transport.Variant
	br            *bufio.Reader // shared read buffer: header parser leaves body prefix here
	transportOpen bool          // true once dial+negotiate succeeded for the current URL
	closing       atomic.Bool   // set by Close to normalize read/write errors to ErrOperationAborted

	reqOpts  RequestOptions
	respOpts ResponseOptions

	proxy     ProxySettings
	verifyCAs *x509.CertPool
	checkCert bool

	currentURL *URL
	finalURL   *URL
	location   string

	maxRedirects int
	redirects    int

	pendingExpect     bool
	pendingInlineBody string

	body bodyState
}

// NewStream constructs a Stream bound to r for its asynchronous API. r
// may be nil, in which case the asynchronous methods lazily start a
// private Reactor.
func NewStream(r *reactor.Reactor) *Stream {
	return &Stream{
		reactor:      r,
		maxRedirects: defaultMaxRedirects,
		checkCert:    true,
	}
}

func (s *Stream) ensureReactor() *reactor.Reactor {
	if s.reactor == nil {
		s.reactor = reactor.New()
	}
	return s.reactor
}

// SetLogger installs a destination for this Stream's sparse diagnostic
// logging (proxy-negotiation and redirect boundaries only); nil, the
// default, disables it.
func (s *Stream) SetLogger(l *log.Logger) { s.logger = l }

func (s *Stream) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Open performs the full dial+negotiate+request sequence and leaves the
// Stream ready to deliver body bytes via ReadSome.
func (s *Stream) Open(ctx context.Context, u *URL) error {
	if s.isTransportOpen() {
		return htserr.ErrAlreadyOpen
	}
	s.currentURL = u
	s.finalURL = u
	s.redirects = 0
	return s.performRequestCycle(ctx)
}

// Request issues an additional request over an already-open Stream, for
// keep-alive reuse. Any unread body of the previous response is
// discarded first.
func (s *Stream) Request(ctx context.Context, opts *RequestOptions) error {
	if !s.isTransportOpen() {
		return htserr.ErrNotOpen
	}
	s.drainBody()
	s.reqOpts = *opts
	return s.performRequestCycle(ctx)
}

// RequestOptionsSet replaces the request options used by the next Open or
// Request call.
func (s *Stream) RequestOptionsSet(opts *RequestOptions) { s.reqOpts = *opts }

// RequestOptionsGet returns a copy of the current request options.
func (s *Stream) RequestOptionsGet() RequestOptions { return s.reqOpts }

// ResponseOptions returns the parsed response head of the most recent
// request.
func (s *Stream) ResponseOptions() *ResponseOptions { return &s.respOpts }

// Location returns the Location header of the most recent response, or
// "" if none was sent.
func (s *Stream) Location() string { return s.location }

// FinalURL returns the URL finally requested, after following any
// redirects.
func (s *Stream) FinalURL() string {
	if s.finalURL == nil {
		return ""
	}
	return s.finalURL.String()
}

// ContentLength returns the Content-Length of the current response, or
// -1 if none was present.
func (s *Stream) ContentLength() int64 { return s.body.contentLength }

// MaxRedirects sets the max redirect count; 0 disables following.
func (s *Stream) MaxRedirects(n int) { s.maxRedirects = n }

// Proxy configures the proxy negotiator used by subsequent Open calls.
func (s *Stream) Proxy(p ProxySettings) { s.proxy = p }

// CheckCertificate toggles TLS certificate verification. Default true.
func (s *Stream) CheckCertificate(check bool) { s.checkCert = check }

// AddVerifyPath adds every PEM certificate found directly under dir to
// the verification root pool, mirroring
// avhttp::http_stream::add_verify_path.
func (s *Stream) AddVerifyPath(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if s.verifyCAs == nil {
		s.verifyCAs = x509.NewCertPool()
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(dir + string(os.PathSeparator) + e.Name())
		if err != nil {
			continue
		}
		s.verifyCAs.AppendCertsFromPEM(data)
	}
	return nil
}

// LoadVerifyFile loads a single PEM file into the verification root
// pool, mirroring avhttp::http_stream::load_verify_file.
func (s *Stream) LoadVerifyFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if s.verifyCAs == nil {
		s.verifyCAs = x509.NewCertPool()
	}
	s.verifyCAs.AppendCertsFromPEM(data)
	return nil
}

// Clear resets the Stream's IO buffer and option maps, keeping it bound
// to the same reactor so it can be reused for a fresh URL. It does not
// close an open transport; call Close first if one is open. Clear also
// lifts the "closing" latch Close left behind, so a Stream reused after
// Close+Clear reports its own errors again instead of ErrOperationAborted.
func (s *Stream) Clear() {
	s.mu.Lock()
	s.br = nil
	s.mu.Unlock()
	s.reqOpts.Clear()
	s.respOpts.clear()
	s.body = bodyState{}
	s.location = ""
	s.pendingExpect = false
	s.pendingInlineBody = ""
	s.closing.Store(false)
}

// Close stops all outstanding IO and releases the transport. Any
// asynchronous operation in flight for this Stream completes with
// ErrOperationAborted: closing.Store happens before the transport is
// closed, so the goroutine blocked in a Read/Write that Close interrupts
// observes closing already set when it maps the resulting error via
// normalizeIOErr. Closing the transport itself (rather than posting
// through the reactor) is what actually unblocks that goroutine --
// net.Conn and *tls.Conn both document Close as safe to call
// concurrently with an in-flight Read/Write on the same connection.
func (s *Stream) Close() error {
	s.closing.Store(true)
	return s.closeTransport()
}

// closeTransport atomically takes ownership of the current transport (if
// any) and clears the Stream's bookkeeping under mu, so a concurrent
// Close racing an in-flight operation's own closeTransport call closes
// the underlying connection at most once.
func (s *Stream) closeTransport() error {
	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.br = nil
	s.transportOpen = false
	s.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Close()
}

// openTransport installs a freshly dialed transport, under mu so a
// concurrent Close cannot observe a half-set transport/br/transportOpen
// triple.
func (s *Stream) openTransport(v *transport.Variant) {
	s.mu.Lock()
	s.transport = v
	s.br = bufio.NewReader(v)
	s.transportOpen = true
	s.mu.Unlock()
}

// transportSnapshot returns the current transport and openness under mu.
func (s *Stream) transportSnapshot() (*transport.Variant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport, s.transportOpen
}

// readerSnapshot returns the current shared read buffer under mu. The
// returned *bufio.Reader remains valid to use even after a concurrent
// Close nils out s.br, since the caller already holds its own reference.
func (s *Stream) readerSnapshot() *bufio.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.br
}

// isTransportOpen reports whether the Stream currently owns a live
// transport, under mu.
func (s *Stream) isTransportOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transportOpen
}

func (s *Stream) isClosing() bool { return s.closing.Load() }

// IsOpen reports whether the Stream currently owns a live transport.
func (s *Stream) IsOpen() bool { return s.isTransportOpen() }

func isRedirectStatus(code int) bool {
	switch code {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

func normalizeIOErr(err error, closing bool) error {
	if err == nil {
		return nil
	}
	if closing {
		return htserr.ErrOperationAborted
	}
	return err
}
