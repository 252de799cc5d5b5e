package avhttp

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/avhttp-go/avhttp/internal/headparse"
	"github.com/avhttp-go/avhttp/internal/htserr"
	"github.com/avhttp-go/avhttp/internal/options"
)

// performRequestCycle drives one logical request to completion, which
// may itself span several requests over the same connection when a
// redirect or a 100-continue interim response is in play.
func (s *Stream) performRequestCycle(ctx context.Context) error {
	for {
		if !s.isTransportOpen() {
			v, err := s.dial(ctx, s.currentURL)
			if err != nil {
				return err
			}
			s.openTransport(v)
		}

		if err := s.writeRequest(ctx); err != nil {
			s.closeTransport()
			return normalizeIOErr(err, s.isClosing())
		}

		status, err := s.readStatusLine(ctx)
		if err != nil {
			s.closeTransport()
			return normalizeIOErr(err, s.isClosing())
		}

		s.respOpts.clear()
		br := s.readerSnapshot()
		flags, err := headparse.ReadHeaders(br, &s.respOpts.m, status.VersionMajor, status.VersionMinor)
		if err != nil {
			s.closeTransport()
			return normalizeIOErr(err, s.isClosing())
		}
		s.respOpts.setStatusCode(status.StatusCode)
		s.location = flags.Location
		s.setupBody(flags)

		if isRedirectStatus(status.StatusCode) {
			if s.redirects >= s.maxRedirects {
				s.logf("avhttp: redirect budget of %d exhausted at %s", s.maxRedirects, s.currentURL.String())
				s.drainBody()
				s.maybeCloseAfterBody(flags.KeepAlive)
				return htserr.ErrInvalidRedirect
			}
			next, err := s.followRedirect(flags.Location)
			if err != nil {
				s.drainBody()
				s.maybeCloseAfterBody(flags.KeepAlive)
				return err
			}
			s.logf("avhttp: %d redirect %s -> %s", status.StatusCode, s.currentURL.String(), next.String())
			s.redirects++
			s.drainBody()
			// the redirect target is always dialed afresh, even when this
			// response allowed the connection to be reused
			s.closeTransport()
			s.currentURL = next
			s.finalURL = next
			continue
		}

		if status.StatusCode/100 != 2 {
			return &htserr.StatusError{Code: status.StatusCode, Reason: status.Reason}
		}
		return nil
	}
}

func (s *Stream) followRedirect(location string) (*URL, error) {
	if location == "" {
		return nil, htserr.ErrInvalidRedirect
	}
	next, err := urlResolve(s.currentURL, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", htserr.ErrInvalidRedirect, err)
	}
	return next, nil
}

// readStatusLine reads status lines until it sees one that is not a 100
// Continue interim response, sending the withheld inline body the first
// time one arrives.
func (s *Stream) readStatusLine(ctx context.Context) (headparse.StatusLine, error) {
	br := s.readerSnapshot()
	for {
		status, err := headparse.ReadStatusLine(br)
		if err != nil {
			return status, err
		}
		if status.StatusCode != 100 {
			return status, nil
		}
		var discard options.Map
		if _, err := headparse.ReadHeaders(br, &discard, status.VersionMajor, status.VersionMinor); err != nil {
			return status, err
		}
		if !s.pendingExpect {
			return status, htserr.ErrMalformedResponseHeaders
		}
		if err := s.sendPendingBody(); err != nil {
			return status, err
		}
		s.pendingExpect = false
	}
}

func (s *Stream) sendPendingBody() error {
	body := s.pendingInlineBody
	s.pendingInlineBody = ""
	if body == "" {
		return nil
	}
	t, _ := s.transportSnapshot()
	_, err := io.WriteString(t, body)
	return err
}

// writeRequest serializes the request line and headers, applying the
// same defaulting rules avhttp's request_opts give the caller an escape
// hatch from: an explicit header entry always wins over a computed
// default.
func (s *Stream) writeRequest(ctx context.Context) error {
	u := s.currentURL
	method := s.reqOpts.Method()
	version := s.reqOpts.HTTPVersion()

	target := u.RequestURI()
	if s.proxy.Type == ProxyHTTPPassThrough {
		target = u.String()
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(target)
	b.WriteByte(' ')
	b.WriteString(version)
	b.WriteString("\r\n")

	entries := s.reqOpts.Entries()
	hasHost := headerPresent(entries, "Host")
	hasAccept := headerPresent(entries, "Accept")
	hasConnection := headerPresent(entries, "Connection")
	hasContentLength := headerPresent(entries, "Content-Length")

	if !hasHost {
		b.WriteString("Host: ")
		b.WriteString(u.inner.HostPort())
		b.WriteString("\r\n")
	}
	if !hasAccept {
		b.WriteString("Accept: */*\r\n")
	}

	body, hasBody := s.reqOpts.Body()
	if hasBody && !hasContentLength {
		b.WriteString("Content-Length: ")
		b.WriteString(strconv.Itoa(len(body)))
		b.WriteString("\r\n")
	}

	for _, e := range entries {
		b.WriteString(e.Key)
		b.WriteString(": ")
		b.WriteString(e.Value)
		b.WriteString("\r\n")
	}

	if !hasConnection {
		b.WriteString("Connection: close\r\n")
	}
	b.WriteString("\r\n")

	t, _ := s.transportSnapshot()
	if _, err := io.WriteString(t, b.String()); err != nil {
		return err
	}

	if hasBody {
		if s.reqOpts.Expects100Continue() {
			s.pendingExpect = true
			s.pendingInlineBody = body
			return nil
		}
		if _, err := io.WriteString(t, body); err != nil {
			return err
		}
	}
	return nil
}

func headerPresent(entries []options.Entry, name string) bool {
	for _, e := range entries {
		if strings.EqualFold(e.Key, name) {
			return true
		}
	}
	return false
}
