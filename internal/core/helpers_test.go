package core

import (
	"context"
	"strings"
	"sync"

	"github.com/rafabd1/Parallax/internal/httpmsg"
)

// appendMutation appends its suffix to the request bytes.
type appendMutation struct {
	name   string
	suffix string
	group  string
}

func newAppend(name string) *appendMutation {
	return &appendMutation{name: name, suffix: "<" + name + ">"}
}

func (m *appendMutation) Apply(req *httpmsg.Request) *httpmsg.Request {
	return req.WithRaw(append(append([]byte(nil), req.Raw...), m.suffix...))
}

func (m *appendMutation) Describe() string { return m.name }

func (m *appendMutation) ConflictsWith(other Mutation) bool {
	o, ok := other.(*appendMutation)
	return ok && o != m && m.group != "" && m.group == o.group
}

// plainMutation does not implement Conflicter.
type plainMutation struct{ name string }

func (m plainMutation) Apply(req *httpmsg.Request) *httpmsg.Request { return req.Clone() }
func (m plainMutation) Describe() string                          { return m.name }

// oneSided conflicts with the named mutations without them knowing.
type oneSided struct {
	plainMutation
	against []string
}

func (m oneSided) ConflictsWith(other Mutation) bool {
	for _, n := range m.against {
		if other.Describe() == n {
			return true
		}
	}
	return false
}

type transportFunc func(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error)

func (f transportFunc) Send(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error) {
	return f(ctx, req)
}

func okResponse(status int) *httpmsg.Response {
	return &httpmsg.Response{StatusCode: status, Status: "ok", Body: []byte("body")}
}

// recordingSink collects messages and tracker calls.
type recordingSink struct {
	mu       sync.Mutex
	messages []string
	total    int
	advanced int
}

func (s *recordingSink) Report(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) SetTotal(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
}

func (s *recordingSink) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanced++
}

func (s *recordingSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *recordingSink) count(prefix string) int {
	n := 0
	for _, m := range s.all() {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func descriptions(combos []Combination) []string {
	out := make([]string, len(combos))
	for i, c := range combos {
		out[i] = c.Describe()
	}
	return out
}

func baseRequest() *httpmsg.Request {
	return httpmsg.NewRequest(httpmsg.Target{Host: "example.com", Port: 443, TLS: true}, []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
}
