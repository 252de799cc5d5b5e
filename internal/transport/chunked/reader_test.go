package chunked

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedReaderBasic(t *testing.T) {
	src := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(src))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestChunkedReaderWithExtensionAndTrailer(t *testing.T) {
	src := "3;ext=1\r\nfoo\r\n0\r\nX-Trailer: val\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(src))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "foo", string(out))
}

func TestChunkedReaderSkipsStrayLeadingCRLF(t *testing.T) {
	src := "\r\n4\r\ndata\r\n0\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(src))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "data", string(out))
}

func TestChunkedReaderTruncatedMidChunk(t *testing.T) {
	src := "a\r\nshort"
	r := NewChunkedReader(strings.NewReader(src))
	_, err := io.ReadAll(r)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestChunkedReaderBadSizeDigit(t *testing.T) {
	src := "zz\r\ndata\r\n0\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(src))
	_, err := io.ReadAll(r)
	require.ErrorIs(t, err, ErrMalformedChunkedEncoding)
}

func TestChunkedReaderMissingTrailingCRLFAfterData(t *testing.T) {
	src := "3\r\nfooXX0\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(src))
	_, err := io.ReadAll(r)
	require.ErrorIs(t, err, ErrMalformedChunkedEncoding)
}

func TestChunkedReaderRoundTripsWithWriter(t *testing.T) {
	var b strings.Builder
	w := NewChunkedWriter(&b)
	_, err := w.Write([]byte("roundtrip"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := NewChunkedReader(strings.NewReader(b.String()))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", string(out))
}
