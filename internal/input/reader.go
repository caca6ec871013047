package input

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/utils"
)

// StdinPath selects standard input as the request source.
const StdinPath = "-"

// Reader loads base requests from files or stdin.
type Reader struct {
	logger utils.Logger
	stdin  io.Reader
}

// NewReader creates a new Reader.
func NewReader(logger utils.Logger) *Reader {
	return &Reader{logger: logger, stdin: os.Stdin}
}

// ReadRequest returns the raw bytes at path, or stdin when path is "-".
func (r *Reader) ReadRequest(path string) ([]byte, error) {
	if path == StdinPath {
		raw, err := io.ReadAll(r.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read request from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file '%s': %w", path, err)
	}
	return raw, nil
}

// LoadBaseRequest reads and prepares the campaign's base request. target may be
// empty, in which case it is derived from the Host header.
func (r *Reader) LoadBaseRequest(path, target string) (*httpmsg.Request, error) {
	raw, err := r.ReadRequest(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("request '%s' is empty", path)
	}

	if downgraded, ok := DowngradeVersion(raw); ok {
		r.logger.Infof("Request line uses HTTP/2, sending it as HTTP/1.1.")
		raw = downgraded
	}
	if normalized, ok := NormalizeLineEndings(raw); ok {
		r.logger.Debugf("Request head has bare LF line endings, converted to CRLF.")
		raw = normalized
	}

	msg := httpmsg.Parse(raw)
	if len(bytes.Fields(msg.RequestLine())) < 3 {
		return nil, fmt.Errorf("request '%s' has a malformed request line: %q", path, msg.RequestLine())
	}

	var t httpmsg.Target
	if target != "" {
		t, err = utils.ParseTarget(target)
		if err != nil {
			return nil, err
		}
	} else {
		host, _ := msg.HeaderValue("Host")
		t = utils.TargetFromHostHeader(host)
		r.logger.Debugf("No target given, using %s from the Host header.", t)
	}
	return httpmsg.NewRequest(t, raw), nil
}

// DowngradeVersion rewrites an HTTP/2 protocol token on the request line to
// HTTP/1.1, as found in requests exported from HTTP/2 sessions.
func DowngradeVersion(raw []byte) ([]byte, bool) {
	msg := httpmsg.Parse(raw)
	line := msg.RequestLine()
	sp := bytes.LastIndexByte(line, ' ')
	if sp < 0 || !bytes.HasPrefix(line[sp+1:], []byte("HTTP/2")) {
		return raw, false
	}
	msg.Lines[0].Text = append(append([]byte(nil), line[:sp+1]...), "HTTP/1.1"...)
	return msg.Bytes(), true
}

// NormalizeLineEndings converts a head written with bare LF terminators only
// to CRLF. Heads that already contain a CR are left alone so that deliberate
// mixes survive; the body is never touched.
func NormalizeLineEndings(raw []byte) ([]byte, bool) {
	msg := httpmsg.Parse(raw)
	head := raw[:len(raw)-len(msg.Body)]
	if bytes.IndexByte(head, '\r') >= 0 || bytes.IndexByte(head, '\n') < 0 {
		return raw, false
	}
	for i := range msg.Lines {
		if len(msg.Lines[i].EOL) > 0 {
			msg.Lines[i].EOL = []byte("\r\n")
		}
	}
	if len(msg.Blank) > 0 {
		msg.Blank = []byte("\r\n")
	}
	return msg.Bytes(), true
}
