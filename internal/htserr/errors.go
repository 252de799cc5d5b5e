// Package htserr defines the sentinel errors for every error kind this
// module distinguishes, plus StatusError for non-2xx final statuses.
//
// Failures elsewhere in this module are wrapped with fmt.Errorf("...: %w",
// err) rather than a custom error-kind hierarchy (see
// internal/dialer/proxy.go's "proxy server returned error. status:%d,
// body:%s" and internal/transport/http1.go's "malformed HTTP response");
// this package keeps that shape but names a sentinel per failure kind so
// errors.Is/errors.As keep working for callers that care which kind of
// failure they got.
package htserr

import (
	"errors"
	"fmt"
)

var (
	// Transport
	ErrHostNotFound     = errors.New("host_not_found")
	ErrConnectionRefused = errors.New("connection_refused")
	ErrConnectionReset  = errors.New("connection_reset")
	ErrOperationAborted = errors.New("operation_aborted")
	ErrBrokenPipe       = errors.New("broken_pipe")

	// URL
	ErrInvalidURL      = errors.New("invalid_url")
	ErrInvalidRedirect = errors.New("invalid_redirect")

	// Proxy
	ErrSocksNoAcceptableMethod     = errors.New("socks_no_acceptable_method")
	ErrSocksAuthenticationError    = errors.New("socks_authentication_error")
	ErrSocksGeneralFailure         = errors.New("socks_general_failure")
	ErrSocksConnectionNotAllowed   = errors.New("socks_connection_not_allowed")
	ErrSocksNetworkUnreachable     = errors.New("socks_network_unreachable")
	ErrSocksHostUnreachable        = errors.New("socks_host_unreachable")
	ErrSocksConnectionRefused      = errors.New("socks_connection_refused")
	ErrSocksTTLExpired             = errors.New("socks_ttl_expired")
	ErrSocksCommandNotSupported    = errors.New("socks_command_not_supported")
	ErrSocksAddressTypeNotSupported = errors.New("socks_address_type_not_supported")
	ErrSocksRequestRejected        = errors.New("socks_request_rejected")
	ErrHTTPProxyRefused            = errors.New("http_proxy_refused")

	// HTTP
	ErrMalformedStatusLine     = errors.New("malformed_status_line")
	ErrMalformedResponseHeaders = errors.New("malformed_response_headers")
	ErrContinueRequest         = errors.New("continue_request")
	ErrMalformedChunkedEncoding = errors.New("malformed_chunked_encoding")

	// Body
	ErrDecompressionError     = errors.New("decompression_error")
	ErrContentLengthMismatch  = errors.New("content_length_mismatch")

	// Stream
	ErrNotOpen          = errors.New("stream is not open")
	ErrAlreadyOpen       = errors.New("stream is already open")
	ErrNotImplemented    = errors.New("not implemented")
)

// StatusError is the status-code-valued error kind: any final response
// whose status is not 2xx, kept readable because the body may still
// carry an error payload the caller wants to consume.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("http status %d %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("http status %d", e.Code)
}

// Is lets errors.Is(err, htserr.ErrStatus) match any *StatusError,
// while errors.As(err, &statusErr) still recovers the code.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// ErrStatus is the sentinel matched by any *StatusError via Is.
var ErrStatus = errors.New("non-2xx status")

// Wrap annotates sentinel with a detail message, keeping errors.Is(err,
// sentinel) true through the wrap. It is the same "%w: detail" shape the
// rest of the module writes inline with fmt.Errorf.
func Wrap(sentinel error, detail string) error {
	if detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}
