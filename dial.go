package avhttp

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net"

	"github.com/avhttp-go/avhttp/internal/socks"
	"github.com/avhttp-go/avhttp/internal/transport"
)

// dial resolves the connect target (the proxy if one is configured,
// otherwise the origin directly), negotiates whichever proxy
// sub-protocol is configured, and promotes the result to TLS when the
// URL scheme calls for it. This is the one place all of SOCKS4/4a/5,
// HTTP CONNECT, HTTP pass-through and direct dialing meet, mirroring
// how internal/dialer/dial.go centralizes connect+proxy before handing
// off to the transport layer.
func (s *Stream) dial(ctx context.Context, u *URL) (*transport.Variant, error) {
	switch s.proxy.Type {
	case ProxyNone:
		return s.dialDirect(ctx, u)
	case ProxySOCKS4, ProxySOCKS4a:
		return s.dialSOCKS4Family(ctx, u)
	case ProxySOCKS5:
		return s.dialSOCKS5(ctx, u)
	case ProxyHTTPSTunnel:
		return s.dialHTTPConnect(ctx, u)
	case ProxyHTTPPassThrough:
		return s.dialHTTPPassThrough(ctx, u)
	default:
		return nil, fmt.Errorf("avhttp: unknown proxy type %d", s.proxy.Type)
	}
}

func (s *Stream) dialDirect(ctx context.Context, u *URL) (*transport.Variant, error) {
	v, err := transport.Connect(ctx, &s.dialer, "tcp", u.inner.HostPort())
	if err != nil {
		return nil, mapDialErr(err)
	}
	if u.Scheme() == "https" {
		if err := s.handshakeTLS(ctx, v, u.Host()); err != nil {
			v.Close()
			return nil, err
		}
	}
	return v, nil
}

func (s *Stream) proxyHostPort() string {
	return net.JoinHostPort(s.proxy.Hostname, portString(s.proxy.Port))
}

func (s *Stream) dialSOCKS4Family(ctx context.Context, u *URL) (*transport.Variant, error) {
	s.logf("avhttp: negotiating socks4/4a with %s for %s", s.proxyHostPort(), u.Host())
	conn, err := s.dialer.DialContext(ctx, "tcp", s.proxyHostPort())
	if err != nil {
		return nil, mapDialErr(err)
	}
	target := socks.Target{Host: u.Host(), Port: u.Port()}
	if s.proxy.Type == ProxySOCKS4a {
		err = socks.DialSOCKS4a(conn, target)
	} else {
		ip, resolveErr := s.resolveIPv4(ctx, u.Host())
		if resolveErr != nil {
			conn.Close()
			return nil, resolveErr
		}
		err = socks.DialSOCKS4(conn, ip, target)
	}
	if err != nil {
		s.logf("avhttp: socks4/4a negotiation with %s failed: %v", s.proxyHostPort(), err)
		conn.Close()
		return nil, err
	}
	return s.finishTunnel(ctx, conn, u)
}

func (s *Stream) dialSOCKS5(ctx context.Context, u *URL) (*transport.Variant, error) {
	s.logf("avhttp: negotiating socks5 with %s for %s", s.proxyHostPort(), u.Host())
	conn, err := s.dialer.DialContext(ctx, "tcp", s.proxyHostPort())
	if err != nil {
		return nil, mapDialErr(err)
	}
	var creds *socks.Credentials
	if s.proxy.User != "" {
		creds = &socks.Credentials{User: s.proxy.User, Password: s.proxy.Password}
	}
	target := socks.Target{Host: u.Host(), Port: u.Port()}
	if err := socks.DialSOCKS5(conn, creds, target); err != nil {
		s.logf("avhttp: socks5 negotiation with %s failed: %v", s.proxyHostPort(), err)
		conn.Close()
		return nil, err
	}
	return s.finishTunnel(ctx, conn, u)
}

func (s *Stream) dialHTTPConnect(ctx context.Context, u *URL) (*transport.Variant, error) {
	s.logf("avhttp: negotiating HTTP CONNECT with %s for %s", s.proxyHostPort(), u.inner.HostPort())
	conn, err := s.dialer.DialContext(ctx, "tcp", s.proxyHostPort())
	if err != nil {
		return nil, mapDialErr(err)
	}
	auth := ""
	if s.proxy.User != "" {
		auth = base64.StdEncoding.EncodeToString([]byte(s.proxy.User + ":" + s.proxy.Password))
	}
	tunneled, err := socks.DialConnect(conn, u.inner.HostPort(), auth)
	if err != nil {
		s.logf("avhttp: HTTP CONNECT through %s failed: %v", s.proxyHostPort(), err)
		conn.Close()
		return nil, err
	}
	return s.finishTunnel(ctx, tunneled, u)
}

// dialHTTPPassThrough connects to the proxy and leaves it to writeRequest
// to send an absolute-form request target; no tunnel is negotiated, so
// this mode cannot carry an https origin (ProxyHTTPPassThrough pairs with
// plain-http origins only).
func (s *Stream) dialHTTPPassThrough(ctx context.Context, u *URL) (*transport.Variant, error) {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.proxyHostPort())
	if err != nil {
		return nil, mapDialErr(err)
	}
	return transport.NewPlain(conn), nil
}

func (s *Stream) finishTunnel(ctx context.Context, conn net.Conn, u *URL) (*transport.Variant, error) {
	v := transport.NewPlain(conn)
	if u.Scheme() == "https" {
		if err := s.handshakeTLS(ctx, v, u.Host()); err != nil {
			v.Close()
			return nil, err
		}
	}
	return v, nil
}

func (s *Stream) handshakeTLS(ctx context.Context, v *transport.Variant, serverName string) error {
	roots := s.verifyCAs
	if roots == nil && s.checkCert {
		roots = systemRootsOrNil()
	}
	return v.Handshake(ctx, transport.TLSOptions{
		ServerName:         serverName,
		InsecureSkipVerify: !s.checkCert,
		RootCAs:            roots,
	})
}

func (s *Stream) resolveIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.To4(), nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, mapDialErr(err)
	}
	if len(ips) == 0 {
		return nil, ErrHostNotFound
	}
	return ips[0].To4(), nil
}

// systemRootsOrNil lets tls.Config fall back to the platform root pool
// (nil RootCAs) when no explicit verify path/file was configured.
func systemRootsOrNil() *x509.CertPool { return nil }

func portString(p uint16) string {
	return fmt.Sprintf("%d", p)
}

// mapDialErr normalizes the handful of net.OpError cases this module
// names sentinels for (host_not_found, connection_refused,
// connection_reset) while leaving anything else (timeouts, context
// cancellation) untouched so errors.Is against context.DeadlineExceeded
// etc. keeps working. The refused/reset distinction is made against the
// actual syscall errno wrapped inside the net.OpError rather than by Op
// alone, since a "dial" op can also fail with ETIMEDOUT or EHOSTUNREACH.
func mapDialErr(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %s", ErrHostNotFound, dnsErr.Err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case isConnRefused(opErr):
			return fmt.Errorf("%w: %s", ErrConnectionRefused, opErr.Err)
		case isConnReset(opErr):
			return fmt.Errorf("%w: %s", ErrConnectionReset, opErr.Err)
		}
	}
	return err
}
