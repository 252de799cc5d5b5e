// Package transport implements the variant transport: a tagged union
// over a plain TCP connection and a TLS-wrapped TCP connection, exposing
// one read/write/close contract regardless of which backs it.
//
// This supersedes the earlier internal/transport, which wrote
// request/response framing directly against net/http.Header (see
// DESIGN.md). The framing concern moves to internal/headparse and
// internal/transport/chunked; this package is left with exactly the connection
// concern: a tagged variant with a uniform operation set, not an
// abstract base class hierarchy, avoiding dynamic dispatch on a hot
// path.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
)

// Kind tags which backing connection a Variant wraps.
type Kind int

const (
	KindPlain Kind = iota
	KindTLS
)

// Variant is the tagged union over a plain or TLS connection. The raw
// socket is always set while connected; the TLS connection layered on
// it is set only for KindTLS, and Kind selects which one I/O goes to.
type Variant struct {
	kind Kind
	raw  net.Conn  // always set once Connect succeeds; the socket itself
	tls  *tls.Conn // set only when kind == KindTLS, after Handshake
}

// ErrNotConnected is returned by operations attempted before Connect.
var ErrNotConnected = errors.New("transport: not connected")

// NewPlain wraps an already-connected net.Conn as a plain variant. Used
// by proxy negotiators, which dial the socket themselves before handing
// it to the Stream.
func NewPlain(conn net.Conn) *Variant {
	return &Variant{kind: KindPlain, raw: conn}
}

// Connect dials addr over TCP and returns a plain Variant.
func Connect(ctx context.Context, d *net.Dialer, network, addr string) (*Variant, error) {
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return NewPlain(conn), nil
}

// TLSOptions configures certificate verification for Handshake, mirroring
// avhttp::http_stream::check_certificate/add_verify_path/load_verify_file.
type TLSOptions struct {
	ServerName         string
	InsecureSkipVerify bool
	RootCAs            *x509.CertPool
}

// Handshake promotes a plain Variant to a TLS variant by performing the
// TLS client handshake over the existing connection. It is used both for
// a direct https dial and for TLS run over an already-established
// SOCKS/CONNECT tunnel.
func (v *Variant) Handshake(ctx context.Context, opts TLSOptions) error {
	if v.raw == nil {
		return ErrNotConnected
	}
	cfg := &tls.Config{
		ServerName:         opts.ServerName,
		InsecureSkipVerify: opts.InsecureSkipVerify,
		RootCAs:            opts.RootCAs,
	}
	c := tls.Client(v.raw, cfg)
	if err := c.HandshakeContext(ctx); err != nil {
		return err
	}
	v.kind = KindTLS
	v.tls = c
	return nil
}

// Kind reports which backing connection is active.
func (v *Variant) Kind() Kind { return v.kind }

// Raw returns the underlying net.Conn regardless of Kind, for callers
// (the proxy negotiator) that need to read/write raw bytes before a TLS
// layer is established.
func (v *Variant) Raw() net.Conn { return v.raw }

func (v *Variant) active() io.ReadWriteCloser {
	if v.kind == KindTLS {
		return v.tls
	}
	return v.raw
}

// Read implements io.Reader, returning io.EOF verbatim on a graceful
// peer shutdown -- io.EOF already plays that role in Go, so a graceful
// close needs no further translation.
func (v *Variant) Read(buf []byte) (int, error) {
	if v.raw == nil {
		return 0, ErrNotConnected
	}
	return v.active().Read(buf)
}

// Write implements io.Writer, passthrough to the active connection.
func (v *Variant) Write(buf []byte) (int, error) {
	if v.raw == nil {
		return 0, ErrNotConnected
	}
	return v.active().Write(buf)
}

// Close releases the underlying descriptor. Safe to call more than once.
func (v *Variant) Close() error {
	if v.raw == nil {
		return nil
	}
	err := v.active().Close()
	v.raw = nil
	v.tls = nil
	return err
}
