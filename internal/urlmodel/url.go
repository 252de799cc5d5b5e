// Package urlmodel parses the absolute URLs a Stream is opened against.
//
// Unlike [net/url.Parse], this parser is deliberately narrow: it knows
// default ports only for the schemes this module dials (http, https and
// the socks4, socks4a, socks5 proxy schemes), it always requires a host,
// and it normalizes scheme/host casing the way the rest of the HTTP
// parsing in this module does. Other schemes are not rejected; they parse
// with port 0 unless the URL gives one.
package urlmodel

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/avhttp-go/avhttp/internal/htserr"
)

// DefaultPorts maps a scheme to the port used when the URL omits one.
var DefaultPorts = map[string]uint16{
	"http":    80,
	"https":   443,
	"socks4":  1080,
	"socks4a": 1080,
	"socks5":  1080,
}

// URL is the parsed form of an absolute URL string.
type URL struct {
	Scheme   string
	User     string
	Password string
	Host     string
	Port     uint16
	Path     string // path + query, default "/"
	Fragment string
}

// ErrInvalidURL is returned for any URL that fails to parse.
type ErrInvalidURL struct {
	Raw    string
	Reason string
}

func (e *ErrInvalidURL) Error() string {
	return fmt.Sprintf("invalid_url: %q: %s", e.Raw, e.Reason)
}

// Unwrap lets errors.Is(err, htserr.ErrInvalidURL) match a parse failure.
func (e *ErrInvalidURL) Unwrap() error { return htserr.ErrInvalidURL }

// Parse parses an absolute URL of the form
// scheme://[user[:pass]@]host[:port]/path?query#frag.
func Parse(raw string) (*URL, error) {
	rest := raw

	schemeIdx := strings.Index(rest, "://")
	if schemeIdx <= 0 {
		return nil, &ErrInvalidURL{raw, "missing scheme"}
	}
	scheme := strings.ToLower(rest[:schemeIdx])
	rest = rest[schemeIdx+3:]

	var fragment string
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		fragment = rest[i+1:]
		rest = rest[:i]
	}

	authority := rest
	path := "/"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority = rest[:i]
		path = rest[i:]
	}
	if authority == "" {
		return nil, &ErrInvalidURL{raw, "empty host"}
	}

	var userinfo string
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		userinfo = authority[:i]
		authority = authority[i+1:]
	}

	host, port, err := splitHostPort(authority, scheme)
	if err != nil {
		return nil, &ErrInvalidURL{raw, err.Error()}
	}
	if host == "" {
		return nil, &ErrInvalidURL{raw, "empty host"}
	}
	asciiHost, err := toASCIIHost(host)
	if err != nil {
		return nil, &ErrInvalidURL{raw, "invalid host: " + err.Error()}
	}

	u := &URL{
		Scheme:   scheme,
		Host:     strings.ToLower(asciiHost),
		Port:     port,
		Path:     path,
		Fragment: fragment,
	}
	if userinfo != "" {
		if i := strings.IndexByte(userinfo, ':'); i >= 0 {
			u.User, u.Password = userinfo[:i], userinfo[i+1:]
		} else {
			u.User = userinfo
		}
	}
	return u, nil
}

func splitHostPort(authority, scheme string) (host string, port uint16, err error) {
	// IPv6 literal: [::1]:8080
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated IPv6 literal")
		}
		host = authority[:end+1]
		rest := authority[end+1:]
		if rest == "" {
			return host, DefaultPorts[scheme], nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", 0, fmt.Errorf("unexpected characters after IPv6 literal")
		}
		p, err := strconv.ParseUint(rest[1:], 10, 16)
		if err != nil {
			return "", 0, fmt.Errorf("unparseable port: %w", err)
		}
		return host, uint16(p), nil
	}

	if i := strings.LastIndexByte(authority, ':'); i >= 0 {
		host = authority[:i]
		p, err := strconv.ParseUint(authority[i+1:], 10, 16)
		if err != nil {
			return "", 0, fmt.Errorf("unparseable port: %w", err)
		}
		return host, uint16(p), nil
	}
	return authority, DefaultPorts[scheme], nil
}

func toASCIIHost(host string) (string, error) {
	if strings.HasPrefix(host, "[") {
		return host, nil // IPv6 literal, already ASCII
	}
	for _, r := range host {
		if r > 0x7f {
			return idna.ToASCII(host)
		}
	}
	return host, nil
}

// HostPort returns "host:port" suitable for dialing.
func (u *URL) HostPort() string {
	return u.Host + ":" + strconv.Itoa(int(u.Port))
}

// RequestURI returns the origin-form request target: path + query.
func (u *URL) RequestURI() string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// String reassembles the URL into its absolute form, used both for
// display (FinalURL) and for absolute-form request targets through an
// HTTP proxy in pass-through mode.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != "" {
		b.WriteString(u.User)
		if u.Password != "" {
			b.WriteByte(':')
			b.WriteString(u.Password)
		}
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	if def, ok := DefaultPorts[u.Scheme]; !ok || def != u.Port {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(u.Port)))
	}
	b.WriteString(u.RequestURI())
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// ResolveReference resolves a Location header value (absolute or
// origin-relative) against u, mirroring the subset of RFC 3986 §5 that
// redirect-following needs.
func ResolveReference(base *URL, location string) (*URL, error) {
	if strings.Contains(location, "://") {
		return Parse(location)
	}
	if location == "" {
		return nil, &ErrInvalidURL{location, "empty redirect location"}
	}
	next := &URL{
		Scheme: base.Scheme,
		User:   base.User, Password: base.Password,
		Host: base.Host, Port: base.Port,
	}
	if strings.HasPrefix(location, "/") {
		next.Path = location
	} else {
		// relative to the base path's directory
		dir := base.Path
		if i := strings.LastIndexByte(dir, '/'); i >= 0 {
			dir = dir[:i+1]
		} else {
			dir = "/"
		}
		next.Path = dir + location
	}
	return next, nil
}
