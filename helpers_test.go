package avhttp

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func gzipFixture(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeChunk(conn net.Conn, data []byte) {
	fmt.Fprintf(conn, "%x\r\n", len(data))
	conn.Write(data)
	conn.Write([]byte("\r\n"))
}
