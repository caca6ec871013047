// Package mutation provides the request mutations probed by a campaign: a built-in
// catalogue of framing and header ambiguities plus YAML-defined entries of the same kinds.
package mutation

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rafabd1/Parallax/internal/core"
	"github.com/rafabd1/Parallax/internal/httpmsg"
)

// Kind selects the transformation a Strategy performs.
type Kind string

const (
	KindHeaderDup        Kind = "header-dup"         // repeat a header line, optionally with another value
	KindHeaderCase       Kind = "header-case"        // change the case of a header name
	KindSpaceBeforeColon Kind = "space-before-colon" // "Name : value"
	KindTabSeparator     Kind = "tab-separator"      // "Name:\tvalue"
	KindBareLF           Kind = "bare-lf"            // terminate head lines with LF only
	KindVersion          Kind = "version"            // rewrite the request line protocol version
	KindReplace          Kind = "replace"            // literal byte replacement over the whole request
	KindInsertHeader     Kind = "insert-header"      // append a header line to the head
)

// Spec is the declarative form of a mutation, as found in catalogue files.
type Spec struct {
	Name        string   `yaml:"name"`
	Kind        Kind     `yaml:"kind"`
	Description string   `yaml:"description,omitempty"`
	Header      string   `yaml:"header,omitempty"`
	Value       string   `yaml:"value,omitempty"`
	From        string   `yaml:"from,omitempty"`
	To          string   `yaml:"to,omitempty"`
	Case        string   `yaml:"case,omitempty"` // upper, lower or title
	Group       string   `yaml:"group,omitempty"`
	Conflicts   []string `yaml:"conflicts,omitempty"`
}

// Strategy is a concrete core.Mutation built from a Spec.
type Strategy struct {
	spec      Spec
	transform func(m *httpmsg.Message) *httpmsg.Message
}

var (
	_ core.Mutation   = (*Strategy)(nil)
	_ core.Conflicter = (*Strategy)(nil)
)

// New validates spec and builds the matching Strategy.
func New(spec Spec) (*Strategy, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("mutation has no name")
	}
	needHeader := func() error {
		if strings.TrimSpace(spec.Header) == "" {
			return fmt.Errorf("mutation %q (%s) requires a header", spec.Name, spec.Kind)
		}
		return nil
	}

	s := &Strategy{spec: spec}
	switch spec.Kind {
	case KindHeaderDup:
		if err := needHeader(); err != nil {
			return nil, err
		}
		s.transform = s.duplicateHeader
	case KindHeaderCase:
		if err := needHeader(); err != nil {
			return nil, err
		}
		switch strings.ToLower(spec.Case) {
		case "", "upper", "lower", "title":
		default:
			return nil, fmt.Errorf("mutation %q: unknown case %q (use upper, lower or title)", spec.Name, spec.Case)
		}
		s.transform = s.changeHeaderCase
	case KindSpaceBeforeColon:
		if err := needHeader(); err != nil {
			return nil, err
		}
		s.transform = s.spaceBeforeColon
	case KindTabSeparator:
		if err := needHeader(); err != nil {
			return nil, err
		}
		s.transform = s.tabSeparator
	case KindBareLF:
		s.transform = bareLF
	case KindVersion:
		if spec.Value == "" {
			return nil, fmt.Errorf("mutation %q (%s) requires a value", spec.Name, spec.Kind)
		}
		s.transform = s.rewriteVersion
	case KindReplace:
		if spec.From == "" {
			return nil, fmt.Errorf("mutation %q (%s) requires 'from'", spec.Name, spec.Kind)
		}
		s.transform = s.replace
	case KindInsertHeader:
		if err := needHeader(); err != nil {
			return nil, err
		}
		s.transform = s.insertHeader
	default:
		return nil, fmt.Errorf("mutation %q: unknown kind %q", spec.Name, spec.Kind)
	}
	return s, nil
}

// Apply returns a transformed copy of req.
func (s *Strategy) Apply(req *httpmsg.Request) *httpmsg.Request {
	return req.WithRaw(s.transform(req.Message()).Bytes())
}

// Describe returns the mutation name.
func (s *Strategy) Describe() string {
	return s.spec.Name
}

// Spec returns the declaration the strategy was built from.
func (s *Strategy) Spec() Spec {
	return s.spec
}

// ConflictsWith reports a conflict when other shares this strategy's group or is
// listed in its conflicts.
func (s *Strategy) ConflictsWith(other core.Mutation) bool {
	o, ok := other.(*Strategy)
	if !ok || o == s {
		return false
	}
	if s.spec.Group != "" && strings.EqualFold(s.spec.Group, o.spec.Group) {
		return true
	}
	for _, name := range s.spec.Conflicts {
		if name == o.spec.Name {
			return true
		}
	}
	return false
}

func (s *Strategy) duplicateHeader(m *httpmsg.Message) *httpmsg.Message {
	i := m.HeaderIndex(s.spec.Header)
	if i < 0 {
		return m
	}
	line := m.Lines[i].Text
	if s.spec.Value != "" {
		name, _ := httpmsg.HeaderName(line)
		line = []byte(string(name) + ": " + s.spec.Value)
	}
	m.InsertLine(i+1, line)
	return m
}

func (s *Strategy) changeHeaderCase(m *httpmsg.Message) *httpmsg.Message {
	i := m.HeaderIndex(s.spec.Header)
	if i < 0 {
		return m
	}
	var caser cases.Caser
	switch strings.ToLower(s.spec.Case) {
	case "lower":
		caser = cases.Lower(language.Und)
	case "title":
		caser = cases.Title(language.Und)
	default:
		caser = cases.Upper(language.Und)
	}
	text := m.Lines[i].Text
	colon := bytes.IndexByte(text, ':')
	m.Lines[i].Text = append([]byte(caser.String(string(text[:colon]))), text[colon:]...)
	return m
}

func (s *Strategy) spaceBeforeColon(m *httpmsg.Message) *httpmsg.Message {
	i := m.HeaderIndex(s.spec.Header)
	if i < 0 {
		return m
	}
	text := m.Lines[i].Text
	colon := bytes.IndexByte(text, ':')
	name := bytes.TrimRight(text[:colon], " \t")
	m.Lines[i].Text = append(append(append([]byte(nil), name...), ' '), text[colon:]...)
	return m
}

func (s *Strategy) tabSeparator(m *httpmsg.Message) *httpmsg.Message {
	i := m.HeaderIndex(s.spec.Header)
	if i < 0 {
		return m
	}
	text := m.Lines[i].Text
	colon := bytes.IndexByte(text, ':')
	value := bytes.TrimLeft(text[colon+1:], " \t")
	m.Lines[i].Text = append(append(append([]byte(nil), text[:colon+1]...), '\t'), value...)
	return m
}

func bareLF(m *httpmsg.Message) *httpmsg.Message {
	for i := range m.Lines {
		if len(m.Lines[i].EOL) > 0 {
			m.Lines[i].EOL = []byte("\n")
		}
	}
	if len(m.Blank) > 0 {
		m.Blank = []byte("\n")
	}
	return m
}

func (s *Strategy) rewriteVersion(m *httpmsg.Message) *httpmsg.Message {
	line := m.RequestLine()
	sp := bytes.LastIndexByte(line, ' ')
	if sp < 0 {
		return m
	}
	m.Lines[0].Text = append(append([]byte(nil), line[:sp+1]...), s.spec.Value...)
	return m
}

func (s *Strategy) replace(m *httpmsg.Message) *httpmsg.Message {
	return httpmsg.Parse(bytes.ReplaceAll(m.Bytes(), []byte(s.spec.From), []byte(s.spec.To)))
}

func (s *Strategy) insertHeader(m *httpmsg.Message) *httpmsg.Message {
	m.InsertLine(len(m.Lines), []byte(s.spec.Header+": "+s.spec.Value))
	return m
}
