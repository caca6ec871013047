package httpmsg

// Request is a raw HTTP request addressed to a Target. Values are treated as immutable:
// every transformation returns a new Request and leaves the receiver untouched, so a
// single base request can be shared by concurrent readers.
type Request struct {
	Target Target
	Raw    []byte
}

// NewRequest copies raw into a new Request.
func NewRequest(target Target, raw []byte) *Request {
	return &Request{Target: target, Raw: append([]byte(nil), raw...)}
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	return NewRequest(r.Target, r.Raw)
}

// WithRaw returns a new request for the same target with different bytes.
func (r *Request) WithRaw(raw []byte) *Request {
	return NewRequest(r.Target, raw)
}

// Message parses the request bytes. The result is independent from r.
func (r *Request) Message() *Message {
	return Parse(r.Raw)
}

// Method returns the request method token.
func (r *Request) Method() string {
	return r.Message().Method()
}

func (r *Request) String() string {
	return string(r.Raw)
}
