package headparse

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avhttp-go/avhttp/internal/options"
)

func TestParseStatusLine(t *testing.T) {
	sl, err := ParseStatusLine("HTTP/1.1 200 OK")
	require.NoError(t, err)
	assert.Equal(t, StatusLine{1, 1, 200, "OK"}, sl)
}

func TestParseStatusLineNoReason(t *testing.T) {
	sl, err := ParseStatusLine("HTTP/1.0 204")
	require.NoError(t, err)
	assert.Equal(t, StatusLine{1, 0, 204, ""}, sl)
}

func TestParseStatusLineMalformed(t *testing.T) {
	for _, bad := range []string{"", "NOTHTTP/1.1 200 OK", "HTTP/1.1 2 OK", "HTTP/1.1 abc OK"} {
		_, err := ParseStatusLine(bad)
		require.ErrorIs(t, err, ErrMalformedStatusLine, bad)
	}
}

func TestReadStatusLineStopsAtCRLF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("HTTP/1.1 200 OK\r\nHost: x\r\n\r\n"))
	sl, err := ReadStatusLine(r)
	require.NoError(t, err)
	assert.Equal(t, 200, sl.StatusCode)

	line, _ := r.ReadString('\n')
	assert.Equal(t, "Host: x\r\n", line)
}

func TestReadHeadersBasic(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Content-Length: 5\r\nConnection: close\r\n\r\nhello"))
	var opts options.Map
	flags, err := ReadHeaders(r, &opts, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), flags.ContentLength)
	assert.True(t, flags.HasLength)
	assert.False(t, flags.KeepAlive)

	rest := make([]byte, 5)
	_, _ = r.Read(rest)
	assert.Equal(t, "hello", string(rest))
}

func TestReadHeadersKeepAliveDefaults(t *testing.T) {
	r11 := bufio.NewReader(strings.NewReader("\r\n"))
	var m1 options.Map
	flags11, err := ReadHeaders(r11, &m1, 1, 1)
	require.NoError(t, err)
	assert.True(t, flags11.KeepAlive)

	r10 := bufio.NewReader(strings.NewReader("\r\n"))
	var m2 options.Map
	flags10, err := ReadHeaders(r10, &m2, 1, 0)
	require.NoError(t, err)
	assert.False(t, flags10.KeepAlive)
}

func TestReadHeadersChunkedAndEncoding(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(
		"Transfer-Encoding: chunked\r\nContent-Encoding: gzip\r\n\r\n"))
	var opts options.Map
	flags, err := ReadHeaders(r, &opts, 1, 1)
	require.NoError(t, err)
	assert.True(t, flags.Chunked)
	assert.True(t, flags.Gzip)
	assert.False(t, flags.HasLength)
}

func TestReadHeadersObsoleteLineFolding(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(
		"X-Multi: first\r\n continuation\r\n\r\n"))
	var opts options.Map
	_, err := ReadHeaders(r, &opts, 1, 1)
	require.NoError(t, err)
	v, ok := opts.Find("X-Multi")
	require.True(t, ok)
	assert.Equal(t, "first continuation", v)
}

func TestReadHeadersBadContentLength(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Content-Length: notanumber\r\n\r\n"))
	var opts options.Map
	_, err := ReadHeaders(r, &opts, 1, 1)
	require.ErrorIs(t, err, ErrMalformedHeaders)
}

func TestReadHeadersMissingColon(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("NoColonHere\r\n\r\n"))
	var opts options.Map
	_, err := ReadHeaders(r, &opts, 1, 1)
	require.ErrorIs(t, err, ErrMalformedHeaders)
}

func TestReadHeadersLocation(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Location: https://example.com/next\r\n\r\n"))
	var opts options.Map
	flags, err := ReadHeaders(r, &opts, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/next", flags.Location)
}
