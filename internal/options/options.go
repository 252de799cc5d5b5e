// Package options implements the ordered, case-insensitive key/value
// store used for both request and response headers.
//
// It is deliberately not a map: insertion order must be observable (for
// header emission and for round-tripping through header_string) and
// duplicate keys must be representable (a server or caller may repeat a
// header), neither of which a Go map gives us for free.
package options

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// entry is one (original-case key, value) pair.
type entry struct {
	key   string
	value string
}

// Map is an ordered, case-insensitive multi-map of string to string.
type Map struct {
	entries []entry
}

// Insert appends a new entry, allowing duplicate keys.
func (m *Map) Insert(key, value string) {
	m.entries = append(m.entries, entry{key, value})
}

// Replace removes any existing entries for key and inserts a single new
// one in their place (at the position of the first removed entry, or at
// the end if key was absent).
func (m *Map) Replace(key, value string) {
	lower := strings.ToLower(key)
	for i := range m.entries {
		if strings.ToLower(m.entries[i].key) == lower {
			m.entries[i] = entry{key, value}
			m.removeFrom(i+1, lower)
			return
		}
	}
	m.Insert(key, value)
}

func (m *Map) removeFrom(start int, lower string) {
	out := m.entries[:start]
	for _, e := range m.entries[start:] {
		if strings.ToLower(e.key) == lower {
			continue
		}
		out = append(out, e)
	}
	m.entries = out
}

// Find returns the first value stored for key, case-insensitively.
func (m *Map) Find(key string) (string, bool) {
	lower := strings.ToLower(key)
	for _, e := range m.entries {
		if strings.ToLower(e.key) == lower {
			return e.value, true
		}
	}
	return "", false
}

// FindAll returns every value stored for key, in insertion order.
func (m *Map) FindAll(key string) []string {
	lower := strings.ToLower(key)
	var out []string
	for _, e := range m.entries {
		if strings.ToLower(e.key) == lower {
			out = append(out, e.value)
		}
	}
	return out
}

// Remove deletes every entry for key.
func (m *Map) Remove(key string) {
	m.removeFrom(0, strings.ToLower(key))
}

// Has reports whether key is present, case-insensitively.
func (m *Map) Has(key string) bool {
	_, ok := m.Find(key)
	return ok
}

// Entry is one entry as returned by Entries.
type Entry struct {
	Key   string
	Value string
}

// Entries returns every entry in insertion order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = Entry{e.key, e.value}
	}
	return out
}

// Clear drops all entries.
func (m *Map) Clear() {
	m.entries = nil
}

// Len returns the number of entries, including duplicates.
func (m *Map) Len() int { return len(m.entries) }

// IsPseudoHeader reports whether key is one of the reserved pseudo-header
// names that are never emitted as a wire header: the request-side
// _request_method, _url, _http_version and _request_body, and the
// response-side _status_code.
func IsPseudoHeader(key string) bool {
	switch strings.ToLower(key) {
	case "_request_method", "_url", "_http_version", "_request_body", "_status_code":
		return true
	}
	return false
}

// HeaderString renders every non-pseudo entry as "Key: Value\r\n", with a
// trailing blank line.
func (m *Map) HeaderString() string {
	var b strings.Builder
	for _, e := range m.entries {
		if IsPseudoHeader(e.key) {
			continue
		}
		b.WriteString(e.key)
		b.WriteString(": ")
		b.WriteString(e.value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

// ValidateHeader reports whether name/value are acceptable to emit on the
// wire, delegating to the same field-syntax rules net/http enforces.
func ValidateHeader(name, value string) bool {
	return httpguts.ValidHeaderFieldName(name) && httpguts.ValidHeaderFieldValue(value)
}
