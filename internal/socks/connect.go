package socks

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/avhttp-go/avhttp/internal/headparse"
	"github.com/avhttp-go/avhttp/internal/htserr"
	"github.com/avhttp-go/avhttp/internal/options"
)

// DialConnect performs an HTTP CONNECT tunnel request, grounded directly
// on internal/dialer/proxy.go's hand-written "CONNECT host:port
// HTTP/1.1" request: that code builds a model.PreparedRequest and runs
// it through the transport.HTTP1 writer; this module has no equivalent
// generic request writer left once transport.HTTP1 is replaced by the
// chunked/headparse split (see DESIGN.md), so the request line is
// written directly, matching the proxy negotiator's own rule of one
// small function per sub-protocol instead of a shared state machine.
func DialConnect(conn net.Conn, hostPort string, proxyAuth string) (net.Conn, error) {
	req := "CONNECT " + hostPort + " HTTP/1.1\r\nHost: " + hostPort + "\r\n"
	if proxyAuth != "" {
		req += "Proxy-Authorization: Basic " + proxyAuth + "\r\n"
	}
	req += "\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		return nil, err
	}

	br := bufio.NewReader(conn)
	status, err := headparse.ReadStatusLine(br)
	if err != nil {
		return nil, err
	}
	var headers options.Map
	if _, err := headparse.ReadHeaders(br, &headers, status.VersionMajor, status.VersionMinor); err != nil {
		return nil, err
	}
	if status.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: proxy responded %d to CONNECT %s", htserr.ErrHTTPProxyRefused, status.StatusCode, hostPort)
	}
	// br may have buffered bytes past the header terminator -- the start
	// of whatever the tunneled protocol (typically a TLS ServerHello)
	// sent immediately after. Wrap conn so those bytes aren't lost.
	if br.Buffered() == 0 {
		return conn, nil
	}
	return &bufferedConn{Conn: conn, br: br}, nil
}

// bufferedConn drains a *bufio.Reader's leftover buffer before falling
// back to reading directly from the wrapped net.Conn, the same shared
// mutable-read-buffer handoff the stream's own header/body transition
// uses.
type bufferedConn struct {
	net.Conn
	br *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	if c.br.Buffered() > 0 {
		return c.br.Read(p)
	}
	return c.Conn.Read(p)
}
