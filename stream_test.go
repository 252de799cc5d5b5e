package avhttp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts connections until the test ends and runs handle on
// each one in its own goroutine; handle scripts whatever bytes it wants
// back, typically after draining the request head with drainRequestHead.
func fakeServer(t *testing.T, handle func(t *testing.T, conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(t, conn)
		}
	}()
	return ln.Addr().String()
}

func drainRequestHead(t *testing.T, br *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			return lines
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
}

func TestStreamBasicGet(t *testing.T) {
	addr := fakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		br := bufio.NewReader(conn)
		lines := drainRequestHead(t, br)
		require.NotEmpty(t, lines)
		assert.Equal(t, "GET / HTTP/1.1", lines[0])
		resp := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello"
		conn.Write([]byte(resp))
	})

	u, err := ParseURL("http://" + addr + "/")
	require.NoError(t, err)

	s := NewStream(nil)
	defer s.Close()
	require.NoError(t, s.Open(context.Background(), u))
	assert.Equal(t, 200, s.ResponseOptions().StatusCode())

	body, err := s.ReadBody()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestStreamChunkedAndGzip(t *testing.T) {
	addr := fakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		br := bufio.NewReader(conn)
		drainRequestHead(t, br)

		// gzip("hi there") built with the compress/gzip default writer,
		// framed as two chunks to exercise both decoders together.
		gz := gzipFixture(t, "hi there")
		head := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nContent-Encoding: gzip\r\nConnection: close\r\n\r\n"
		conn.Write([]byte(head))
		half := len(gz) / 2
		writeChunk(conn, gz[:half])
		writeChunk(conn, gz[half:])
		conn.Write([]byte("0\r\n\r\n"))
	})

	u, err := ParseURL("http://" + addr + "/")
	require.NoError(t, err)

	s := NewStream(nil)
	defer s.Close()
	require.NoError(t, s.Open(context.Background(), u))

	body, err := s.ReadBody()
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(body))
}

func TestStreamRedirectChainExhaustsBudget(t *testing.T) {
	const maxRedirects = 5
	var addr string
	hops := 0

	addr = fakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		br := bufio.NewReader(conn)
		drainRequestHead(t, br)
		hops++
		resp := "HTTP/1.1 302 Found\r\nLocation: http://" + addr + "/next\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
		conn.Write([]byte(resp))
	})

	u, err := ParseURL("http://" + addr + "/")
	require.NoError(t, err)

	s := NewStream(nil)
	defer s.Close()
	s.MaxRedirects(maxRedirects)
	err = s.Open(context.Background(), u)
	require.ErrorIs(t, err, ErrInvalidRedirect)
	assert.Equal(t, maxRedirects+1, hops)
}

func TestStreamNonOKStatusLeavesBodyReadable(t *testing.T) {
	addr := fakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		br := bufio.NewReader(conn)
		drainRequestHead(t, br)
		resp := "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\nConnection: close\r\n\r\nnot found"
		conn.Write([]byte(resp))
	})

	u, err := ParseURL("http://" + addr + "/")
	require.NoError(t, err)

	s := NewStream(nil)
	defer s.Close()
	err = s.Open(context.Background(), u)
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.Code)

	body, err := s.ReadBody()
	require.NoError(t, err)
	assert.Equal(t, "not found", string(body))
}

func TestStream100ContinueSendsWithheldBody(t *testing.T) {
	addr := fakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		br := bufio.NewReader(conn)
		lines := drainRequestHead(t, br)
		var hasExpect bool
		for _, l := range lines {
			if strings.EqualFold(l, "Expect: 100-continue") {
				hasExpect = true
			}
		}
		require.True(t, hasExpect)

		conn.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n"))

		body := make([]byte, 4)
		_, err := br.Read(body)
		require.NoError(t, err)
		assert.Equal(t, "ping", string(body))

		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok"))
	})

	u, err := ParseURL("http://" + addr + "/")
	require.NoError(t, err)

	var req RequestOptions
	req.SetMethod("POST")
	req.SetBody("ping")
	req.Insert("Expect", "100-continue")

	s := NewStream(nil)
	defer s.Close()
	s.RequestOptionsSet(&req)
	require.NoError(t, s.Open(context.Background(), u))

	body, err := s.ReadBody()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestStreamKeepAliveReusesConnection(t *testing.T) {
	connCount := 0
	addr := fakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		connCount++
		br := bufio.NewReader(conn)
		for i := 0; i < 2; i++ {
			drainRequestHead(t, br)
			conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
		}
	})

	u, err := ParseURL("http://" + addr + "/")
	require.NoError(t, err)

	s := NewStream(nil)
	defer s.Close()
	require.NoError(t, s.Open(context.Background(), u))
	_, err = s.ReadBody()
	require.NoError(t, err)
	require.True(t, s.IsOpen())

	var req RequestOptions
	req.SetMethod("GET")
	require.NoError(t, s.Request(context.Background(), &req))
	body, err := s.ReadBody()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, connCount)
}
