package decompress

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func deflateBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestNewReaderIdentity(t *testing.T) {
	r := NewReader(strings.NewReader("plain"), false, false)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))
}

func TestNewReaderGzip(t *testing.T) {
	data := gzipBytes(t, "hello gzip")
	r := NewReader(bytes.NewReader(data), true, false)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello gzip", string(out))
}

func TestNewReaderDeflate(t *testing.T) {
	data := deflateBytes(t, "hello deflate")
	r := NewReader(bytes.NewReader(data), false, true)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello deflate", string(out))
}

func TestNewReaderGzipMalformed(t *testing.T) {
	r := NewReader(strings.NewReader("not gzip data"), true, false)
	_, err := io.ReadAll(r)
	require.ErrorIs(t, err, ErrDecompression)
}

func TestLazyReaderDeferOpen(t *testing.T) {
	opened := false
	l := &lazyReader{src: strings.NewReader("x"), open: func(r io.Reader) (io.Reader, error) {
		opened = true
		return r, nil
	}}
	assert.False(t, opened)
	_, _ = l.Read(make([]byte, 1))
	assert.True(t, opened)
}
