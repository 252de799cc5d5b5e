package avhttp

import "github.com/avhttp-go/avhttp/internal/urlmodel"

// URL is a parsed absolute URL.
type URL struct {
	inner *urlmodel.URL
}

// ParseURL parses an absolute URL string. It fails with ErrInvalidURL on
// a missing scheme, empty host, or unparseable port.
func ParseURL(raw string) (*URL, error) {
	u, err := urlmodel.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &URL{inner: u}, nil
}

// Scheme returns the lowercased scheme.
func (u *URL) Scheme() string { return u.inner.Scheme }

// Host returns the lowercased, ASCII-encoded host.
func (u *URL) Host() string { return u.inner.Host }

// Port returns the port, defaulted per scheme if the URL omitted one.
func (u *URL) Port() uint16 { return u.inner.Port }

// User returns the userinfo username, if any.
func (u *URL) User() string { return u.inner.User }

// Password returns the userinfo password, if any.
func (u *URL) Password() string { return u.inner.Password }

// RequestURI returns the origin-form request target: path + query.
func (u *URL) RequestURI() string { return u.inner.RequestURI() }

// String reassembles the URL into its absolute form.
func (u *URL) String() string { return u.inner.String() }

// urlResolve resolves a Location header value against base, used by the
// redirect-following loop in request.go.
func urlResolve(base *URL, location string) (*URL, error) {
	next, err := urlmodel.ResolveReference(base.inner, location)
	if err != nil {
		return nil, err
	}
	return &URL{inner: next}, nil
}
