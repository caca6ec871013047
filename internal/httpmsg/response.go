package httpmsg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// DefaultReadLimit caps how many body bytes are kept per response.
const DefaultReadLimit = 1 << 20

// Response is a response read from the wire. Raw holds every byte read while
// parsing it, which may include bytes past the end of the message.
type Response struct {
	Raw        []byte
	Proto      string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// ReadResponse reads one response from r. method is the method of the request that
// produced it (HEAD responses carry no body). limit caps the kept body size; a
// non-positive limit uses DefaultReadLimit.
func ReadResponse(r io.Reader, method string, limit int64) (*Response, error) {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	var raw bytes.Buffer
	br := bufio.NewReader(io.TeeReader(r, &raw))
	if method == "" {
		method = http.MethodGet
	}
	resp, err := http.ReadResponse(br, &http.Request{Method: method})
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{
		Raw:        raw.Bytes(),
		Proto:      resp.Proto,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
