// Package headparse parses an HTTP/1.1 status line and header block into
// an [options.Map], and derives the framing flags (content length,
// chunked, gzip/deflate, keep-alive) the rest of the stream needs.
//
// It is grounded on the status-line/header reading in
// internal/transport/http1.go, generalized from net/http.Header
// to the module's own ordered options.Map and from single-shot parsing
// to a resumable reader that leaves unread body bytes in place for the
// body decoder to pick up.
package headparse

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/avhttp-go/avhttp/internal/htserr"
	"github.com/avhttp-go/avhttp/internal/options"
)

// ErrMalformedStatusLine is returned when the status line does not match
// "HTTP/<d>.<d> <3-digit-code> <reason>". It is htserr's own sentinel,
// reused directly rather than mirrored by a second, unrelated value, so
// errors.Is(err, htserr.ErrMalformedStatusLine) matches a genuine parse
// failure from this package.
var ErrMalformedStatusLine = htserr.ErrMalformedStatusLine

// ErrMalformedHeaders is returned for any header block that cannot be
// parsed, including an unparseable Content-Length; it is
// htserr.ErrMalformedResponseHeaders under another name for callers
// already importing this package.
var ErrMalformedHeaders = htserr.ErrMalformedResponseHeaders

// StatusLine is the parsed first line of an HTTP response.
type StatusLine struct {
	VersionMajor int
	VersionMinor int
	StatusCode   int
	Reason       string
}

// ReadStatusLine reads one CRLF-terminated line from r and parses it as
// an HTTP status line. It never reads past the terminating CRLF.
func ReadStatusLine(r *bufio.Reader) (StatusLine, error) {
	line, err := readCRLFLine(r)
	if err != nil {
		return StatusLine{}, err
	}
	return ParseStatusLine(line)
}

// ParseStatusLine parses a single status line with its trailing CRLF
// already stripped.
func ParseStatusLine(line string) (StatusLine, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return StatusLine{}, ErrMalformedStatusLine
	}
	major, minor, ok := parseVersion(proto[len("HTTP/"):])
	if !ok {
		return StatusLine{}, ErrMalformedStatusLine
	}
	rest = strings.TrimLeft(rest, " ")
	codeStr, reason, _ := strings.Cut(rest, " ")
	if len(codeStr) != 3 {
		return StatusLine{}, ErrMalformedStatusLine
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 999 {
		return StatusLine{}, ErrMalformedStatusLine
	}
	return StatusLine{major, minor, code, reason}, nil
}

func parseVersion(s string) (major, minor int, ok bool) {
	a, b, found := strings.Cut(s, ".")
	if !found {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(a)
	min, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}

// Flags summarizes the header-derived decisions the body decoder and
// connection-reuse logic depend on.
type Flags struct {
	ContentLength int64 // -1 if absent
	HasLength     bool
	Chunked       bool
	Gzip          bool
	Deflate       bool
	KeepAlive     bool
	Location      string
}

// ReadHeaders reads the header block (terminated by a blank line) from r
// into opts, and derives Flags from it. versionMajor/versionMinor select
// the keep-alive default: HTTP/1.1 and later default to keep-alive,
// HTTP/1.0 and earlier default to close, both overridable by an explicit
// Connection header.
func ReadHeaders(r *bufio.Reader, opts *options.Map, versionMajor, versionMinor int) (Flags, error) {
	flags := Flags{ContentLength: -1, KeepAlive: versionMajor > 1 || (versionMajor == 1 && versionMinor >= 1)}

	var pendingKey, pendingValue string
	flush := func() {
		if pendingKey != "" {
			opts.Insert(pendingKey, pendingValue)
		}
		pendingKey, pendingValue = "", ""
	}

	for {
		line, err := readCRLFLine(r)
		if err != nil {
			return Flags{}, err
		}
		if line == "" {
			break // blank line terminates the header block
		}
		if line[0] == ' ' || line[0] == '\t' {
			// obsolete line folding: continuation of the previous header
			if pendingKey == "" {
				return Flags{}, fmt.Errorf("%w: unexpected header continuation", ErrMalformedHeaders)
			}
			pendingValue += " " + strings.TrimSpace(line)
			continue
		}
		flush()
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return Flags{}, fmt.Errorf("%w: missing colon in header line %q", ErrMalformedHeaders, line)
		}
		pendingKey, pendingValue = name, strings.TrimLeft(value, " \t")
	}
	flush()

	if err := applyFlags(opts, &flags); err != nil {
		return Flags{}, err
	}
	return flags, nil
}

func applyFlags(opts *options.Map, flags *Flags) error {
	if cl, ok := opts.Find("Content-Length"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: bad Content-Length %q", ErrMalformedHeaders, cl)
		}
		flags.ContentLength = n
		flags.HasLength = true
	}
	if te, ok := opts.Find("Transfer-Encoding"); ok {
		for _, tok := range strings.Split(te, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "chunked") {
				flags.Chunked = true
			}
		}
	}
	if ce, ok := opts.Find("Content-Encoding"); ok {
		switch strings.ToLower(strings.TrimSpace(ce)) {
		case "gzip", "x-gzip":
			flags.Gzip = true
		case "deflate":
			flags.Deflate = true
		}
	}
	if conn, ok := opts.Find("Connection"); ok {
		for _, tok := range strings.Split(conn, ",") {
			switch strings.ToLower(strings.TrimSpace(tok)) {
			case "keep-alive":
				flags.KeepAlive = true
			case "close":
				flags.KeepAlive = false
			}
		}
	}
	if loc, ok := opts.Find("Location"); ok {
		flags.Location = loc
	}
	return nil
}

// readCRLFLine reads bytes up to and including the next "\r\n" and
// returns the line with the terminator stripped. A bare "\n" is also
// accepted as a line terminator, matching the tolerance real servers
// need and that net/textproto's reader shows.
func readCRLFLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
