package httpmsg

import (
	"bytes"
)

var (
	eolCRLF = []byte("\r\n")
	eolLF   = []byte("\n")
)

// Line is one line of a message head together with the terminator it was read with.
// EOL is empty for an unterminated trailing line.
type Line struct {
	Text []byte
	EOL  []byte
}

// Message is a loosely parsed HTTP/1.x message. It keeps every byte of the original,
// including unusual line endings, so that serializing an unmodified Message yields
// the exact input.
type Message struct {
	Lines []Line
	Blank []byte // terminator of the empty line separating head and body
	Body  []byte
}

// Parse splits raw into head lines, the blank separator line and the body.
// The input is copied; callers may modify the returned Message freely.
func Parse(raw []byte) *Message {
	data := append([]byte(nil), raw...)
	m := &Message{}
	pos := 0
	for pos < len(data) {
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			m.Lines = append(m.Lines, Line{Text: data[pos:]})
			return m
		}
		end := pos + nl
		text := data[pos:end]
		eol := eolLF
		if len(text) > 0 && text[len(text)-1] == '\r' {
			text = text[:len(text)-1]
			eol = eolCRLF
		}
		if len(text) == 0 && len(m.Lines) > 0 {
			m.Blank = data[pos : end+1]
			m.Body = data[end+1:]
			return m
		}
		m.Lines = append(m.Lines, Line{Text: text, EOL: eol})
		pos = end + 1
	}
	return m
}

// Bytes serializes the message.
func (m *Message) Bytes() []byte {
	var buf bytes.Buffer
	for _, l := range m.Lines {
		buf.Write(l.Text)
		buf.Write(l.EOL)
	}
	buf.Write(m.Blank)
	buf.Write(m.Body)
	return buf.Bytes()
}

// DefaultEOL returns the terminator used by the request line, falling back to CRLF.
func (m *Message) DefaultEOL() []byte {
	if len(m.Lines) > 0 && len(m.Lines[0].EOL) > 0 {
		return m.Lines[0].EOL
	}
	return eolCRLF
}

// RequestLine returns the first line of the message, or nil for an empty message.
func (m *Message) RequestLine() []byte {
	if len(m.Lines) == 0 {
		return nil
	}
	return m.Lines[0].Text
}

// Method returns the first token of the request line.
func (m *Message) Method() string {
	fields := bytes.Fields(m.RequestLine())
	if len(fields) == 0 {
		return ""
	}
	return string(fields[0])
}

// HeaderName returns the name part of a header line, trimmed of surrounding whitespace.
// ok is false when the line has no colon.
func HeaderName(line []byte) (name []byte, ok bool) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return nil, false
	}
	return bytes.TrimSpace(line[:i]), true
}

// HeaderIndex returns the index in Lines of the first header whose name matches
// name case-insensitively, or -1.
func (m *Message) HeaderIndex(name string) int {
	for i := 1; i < len(m.Lines); i++ {
		n, ok := HeaderName(m.Lines[i].Text)
		if ok && bytes.EqualFold(n, []byte(name)) {
			return i
		}
	}
	return -1
}

// HeaderValue returns the trimmed value of the first header called name.
func (m *Message) HeaderValue(name string) (string, bool) {
	i := m.HeaderIndex(name)
	if i < 0 {
		return "", false
	}
	text := m.Lines[i].Text
	colon := bytes.IndexByte(text, ':')
	return string(bytes.TrimSpace(text[colon+1:])), true
}

// InsertLine inserts a header line at index i using the message's default terminator.
// i is clamped to the head (never before the request line).
func (m *Message) InsertLine(i int, text []byte) {
	if i < 1 {
		i = 1
	}
	if i > len(m.Lines) {
		i = len(m.Lines)
	}
	if len(m.Lines) > 0 {
		last := &m.Lines[len(m.Lines)-1]
		if len(last.EOL) == 0 {
			last.EOL = m.DefaultEOL()
		}
	}
	l := Line{Text: append([]byte(nil), text...), EOL: m.DefaultEOL()}
	m.Lines = append(m.Lines, Line{})
	copy(m.Lines[i+1:], m.Lines[i:])
	m.Lines[i] = l
}
