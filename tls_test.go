package avhttp

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSignedCert returns a PEM-encoded leaf certificate (valid for the
// given hostname) and TLS key pair usable by a tls.Listener.
func selfSignedCert(t *testing.T, host string) (tls.Certificate, []byte) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: host},
		IPAddresses:  []net.IP{net.ParseIP(host)},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return cert, certPEM
}

func TestStreamTLSHandshakeWithLoadedVerifyFile(t *testing.T) {
	cert, certPEM := selfSignedCert(t, "127.0.0.1")

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		br := bufio.NewReader(conn)
		drainRequestHead(t, br)
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 6\r\nConnection: close\r\n\r\nsecure"))
	}()

	certFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))

	u, err := ParseURL("https://" + ln.Addr().String() + "/")
	require.NoError(t, err)

	s := NewStream(nil)
	defer s.Close()
	require.NoError(t, s.LoadVerifyFile(certFile))
	require.NoError(t, s.Open(context.Background(), u))

	body, err := s.ReadBody()
	require.NoError(t, err)
	assert.Equal(t, "secure", string(body))
}

func TestStreamTLSHandshakeFailsWithoutTrustedCA(t *testing.T) {
	cert, _ := selfSignedCert(t, "127.0.0.1")

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// run the server half so the client gets the certificate to reject
		conn.(*tls.Conn).Handshake()
		conn.Close()
	}()

	u, err := ParseURL("https://" + ln.Addr().String() + "/")
	require.NoError(t, err)

	s := NewStream(nil)
	defer s.Close()
	err = s.Open(context.Background(), u)
	require.Error(t, err)
	var unknownAuth x509.UnknownAuthorityError
	assert.ErrorAs(t, err, &unknownAuth)
}
