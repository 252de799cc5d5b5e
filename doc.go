package avhttp

import "context"

// Get is a convenience wrapper around Stream for a one-shot GET request,
// returning the decoded body in full. It opens a Stream with no bound
// reactor (the blocking API never needs one), performs the request, and
// closes the connection before returning.
func Get(rawURL string) ([]byte, *ResponseOptions, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, nil, err
	}
	s := NewStream(nil)
	defer s.Close()
	if err := s.Open(context.Background(), u); err != nil {
		return nil, nil, err
	}
	body, err := s.ReadBody()
	return body, s.ResponseOptions(), err
}
