package avhttp

import (
	"strconv"

	"github.com/avhttp-go/avhttp/internal/options"
)

// RequestOptions is the ordered, case-insensitive request option map:
// ordinary entries become wire headers; four pseudo-headers configure
// the request line and inline body instead of being emitted
// (_request_method, _url, _http_version, _request_body).
type RequestOptions struct {
	m options.Map
}

// Insert appends a header, allowing duplicate keys.
func (r *RequestOptions) Insert(key, value string) { r.m.Insert(key, value) }

// Replace removes any existing entries for key and inserts value once.
func (r *RequestOptions) Replace(key, value string) { r.m.Replace(key, value) }

// Find returns the first value for key, case-insensitively.
func (r *RequestOptions) Find(key string) (string, bool) { return r.m.Find(key) }

// Remove deletes every entry for key.
func (r *RequestOptions) Remove(key string) { r.m.Remove(key) }

// Entries returns every header entry (pseudo-headers excluded) in
// insertion order.
func (r *RequestOptions) Entries() []options.Entry {
	all := r.m.Entries()
	out := make([]options.Entry, 0, len(all))
	for _, e := range all {
		if options.IsPseudoHeader(e.Key) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Method returns the configured request method, defaulting to GET.
func (r *RequestOptions) Method() string {
	if v, ok := r.m.Find("_request_method"); ok && v != "" {
		return v
	}
	return "GET"
}

// SetMethod sets the pseudo-header backing Method.
func (r *RequestOptions) SetMethod(method string) { r.m.Replace("_request_method", method) }

// HTTPVersion returns the configured wire version, defaulting to
// HTTP/1.1.
func (r *RequestOptions) HTTPVersion() string {
	if v, ok := r.m.Find("_http_version"); ok && v != "" {
		return v
	}
	return "HTTP/1.1"
}

// SetHTTPVersion sets the pseudo-header backing HTTPVersion.
func (r *RequestOptions) SetHTTPVersion(version string) { r.m.Replace("_http_version", version) }

// Body returns the configured inline request body, if any.
func (r *RequestOptions) Body() (string, bool) { return r.m.Find("_request_body") }

// SetBody sets the pseudo-header backing Body.
func (r *RequestOptions) SetBody(body string) { r.m.Replace("_request_body", body) }

// Expects100Continue reports whether the caller set Expect: 100-continue.
func (r *RequestOptions) Expects100Continue() bool {
	v, ok := r.m.Find("Expect")
	return ok && equalFoldToken(v, "100-continue")
}

// Clear drops all entries.
func (r *RequestOptions) Clear() { r.m.Clear() }

func equalFoldToken(s, token string) bool {
	if len(s) != len(token) {
		return false
	}
	for i := 0; i < len(s); i++ {
		a, b := s[i], token[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// ResponseOptions is the ordered response header map, plus the
// synthetic _status_code entry. It is cleared at the start of every
// request.
type ResponseOptions struct {
	m          options.Map
	statusCode int
}

// Find returns the first value for key, case-insensitively.
func (r *ResponseOptions) Find(key string) (string, bool) { return r.m.Find(key) }

// FindAll returns every value for key, in wire order.
func (r *ResponseOptions) FindAll(key string) []string { return r.m.FindAll(key) }

// Entries returns every response header in wire order.
func (r *ResponseOptions) Entries() []options.Entry { return r.m.Entries() }

// StatusCode returns the parsed status code of the most recent response.
func (r *ResponseOptions) StatusCode() int { return r.statusCode }

func (r *ResponseOptions) clear() {
	r.m.Clear()
	r.statusCode = 0
}

func (r *ResponseOptions) setStatusCode(code int) { r.statusCode = code }

func (r *ResponseOptions) statusCodeString() string { return strconv.Itoa(r.statusCode) }
