package avhttp

import "github.com/avhttp-go/avhttp/internal/htserr"

// Error kinds, re-exported so callers can use errors.Is/As without
// importing an internal package.
var (
	ErrHostNotFound      = htserr.ErrHostNotFound
	ErrConnectionRefused = htserr.ErrConnectionRefused
	ErrConnectionReset   = htserr.ErrConnectionReset
	ErrOperationAborted  = htserr.ErrOperationAborted
	ErrBrokenPipe        = htserr.ErrBrokenPipe

	ErrInvalidURL      = htserr.ErrInvalidURL
	ErrInvalidRedirect = htserr.ErrInvalidRedirect

	ErrSocksNoAcceptableMethod      = htserr.ErrSocksNoAcceptableMethod
	ErrSocksAuthenticationError     = htserr.ErrSocksAuthenticationError
	ErrSocksGeneralFailure          = htserr.ErrSocksGeneralFailure
	ErrSocksConnectionNotAllowed    = htserr.ErrSocksConnectionNotAllowed
	ErrSocksNetworkUnreachable      = htserr.ErrSocksNetworkUnreachable
	ErrSocksHostUnreachable         = htserr.ErrSocksHostUnreachable
	ErrSocksConnectionRefused       = htserr.ErrSocksConnectionRefused
	ErrSocksTTLExpired              = htserr.ErrSocksTTLExpired
	ErrSocksCommandNotSupported     = htserr.ErrSocksCommandNotSupported
	ErrSocksAddressTypeNotSupported = htserr.ErrSocksAddressTypeNotSupported
	ErrSocksRequestRejected         = htserr.ErrSocksRequestRejected
	ErrHTTPProxyRefused             = htserr.ErrHTTPProxyRefused

	ErrMalformedStatusLine      = htserr.ErrMalformedStatusLine
	ErrMalformedResponseHeaders = htserr.ErrMalformedResponseHeaders
	ErrContinueRequest          = htserr.ErrContinueRequest
	ErrMalformedChunkedEncoding = htserr.ErrMalformedChunkedEncoding

	ErrDecompressionError    = htserr.ErrDecompressionError
	ErrContentLengthMismatch = htserr.ErrContentLengthMismatch

	ErrNotOpen        = htserr.ErrNotOpen
	ErrAlreadyOpen    = htserr.ErrAlreadyOpen
	ErrNotImplemented = htserr.ErrNotImplemented

	ErrStatus = htserr.ErrStatus
)

// StatusError is returned (wrapped) for any non-2xx final response.
type StatusError = htserr.StatusError
