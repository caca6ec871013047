package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Parallax/internal/core"
	"github.com/rafabd1/Parallax/internal/httpmsg"
)

const postRequest = "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\n\r\nabc"

func apply(t *testing.T, spec Spec, raw string) string {
	t.Helper()
	s, err := New(spec)
	require.NoError(t, err)
	base := httpmsg.NewRequest(httpmsg.Target{Host: "example.com", Port: 443, TLS: true}, []byte(raw))
	out := s.Apply(base)
	assert.Equal(t, raw, string(base.Raw), "base request modified")
	assert.Equal(t, base.Target, out.Target)
	return string(out.Raw)
}

func TestStrategyTransforms(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{
			name: "duplicate header",
			spec: Spec{Name: "d", Kind: KindHeaderDup, Header: "content-length"},
			want: "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 3\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\n\r\nabc",
		},
		{
			name: "duplicate header with value",
			spec: Spec{Name: "d", Kind: KindHeaderDup, Header: "Content-Length", Value: "5"},
			want: "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 3\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nabc",
		},
		{
			name: "upper-case name",
			spec: Spec{Name: "c", Kind: KindHeaderCase, Header: "Transfer-Encoding", Case: "upper"},
			want: "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 3\r\nTRANSFER-ENCODING: chunked\r\n\r\nabc",
		},
		{
			name: "lower-case name",
			spec: Spec{Name: "c", Kind: KindHeaderCase, Header: "Host", Case: "lower"},
			want: "POST / HTTP/1.1\r\nhost: example.com\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\n\r\nabc",
		},
		{
			name: "space before colon",
			spec: Spec{Name: "s", Kind: KindSpaceBeforeColon, Header: "Transfer-Encoding"},
			want: "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 3\r\nTransfer-Encoding : chunked\r\n\r\nabc",
		},
		{
			name: "tab separator",
			spec: Spec{Name: "t", Kind: KindTabSeparator, Header: "Content-Length"},
			want: "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length:\t3\r\nTransfer-Encoding: chunked\r\n\r\nabc",
		},
		{
			name: "bare LF",
			spec: Spec{Name: "lf", Kind: KindBareLF},
			want: "POST / HTTP/1.1\nHost: example.com\nContent-Length: 3\nTransfer-Encoding: chunked\n\nabc",
		},
		{
			name: "version",
			spec: Spec{Name: "v", Kind: KindVersion, Value: "HTTP/1.0"},
			want: "POST / HTTP/1.0\r\nHost: example.com\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\n\r\nabc",
		},
		{
			name: "replace",
			spec: Spec{Name: "r", Kind: KindReplace, From: "chunked", To: "identity"},
			want: "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 3\r\nTransfer-Encoding: identity\r\n\r\nabc",
		},
		{
			name: "insert header",
			spec: Spec{Name: "i", Kind: KindInsertHeader, Header: "X-Probe", Value: "1"},
			want: "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\nX-Probe: 1\r\n\r\nabc",
		},
		{
			name: "missing header is a no-op",
			spec: Spec{Name: "m", Kind: KindHeaderDup, Header: "Cookie"},
			want: postRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(t, tt.spec, postRequest))
		})
	}
}

func TestStrategiesCompose(t *testing.T) {
	lf, err := New(Spec{Name: "bare-lf", Kind: KindBareLF})
	require.NoError(t, err)
	v, err := New(Spec{Name: "http10", Kind: KindVersion, Value: "HTTP/1.0"})
	require.NoError(t, err)
	base := httpmsg.NewRequest(httpmsg.Target{Host: "h", Port: 80}, []byte("GET / HTTP/1.1\r\nHost: h\r\n\r\n"))

	req, desc := core.ApplyCombination(base, core.Combination{lf, v})

	assert.Equal(t, "GET / HTTP/1.0\nHost: h\n\n", string(req.Raw))
	assert.Equal(t, "bare-lf + http10", desc)
}

func TestNewRejectsIncompleteSpecs(t *testing.T) {
	bad := []Spec{
		{Kind: KindBareLF},
		{Name: "x", Kind: "bogus"},
		{Name: "x", Kind: KindHeaderDup},
		{Name: "x", Kind: KindHeaderCase, Header: "Host", Case: "sideways"},
		{Name: "x", Kind: KindVersion},
		{Name: "x", Kind: KindReplace, To: "y"},
		{Name: "x", Kind: KindInsertHeader},
	}
	for _, spec := range bad {
		_, err := New(spec)
		assert.Error(t, err, "%+v", spec)
	}
}

func TestConflictsWith(t *testing.T) {
	a, _ := New(Spec{Name: "a", Kind: KindBareLF, Group: "framing"})
	b, _ := New(Spec{Name: "b", Kind: KindBareLF, Group: "Framing"})
	c, _ := New(Spec{Name: "c", Kind: KindBareLF, Conflicts: []string{"d"}})
	d, _ := New(Spec{Name: "d", Kind: KindBareLF})
	e, _ := New(Spec{Name: "e", Kind: KindBareLF})

	assert.True(t, a.ConflictsWith(b))
	assert.False(t, a.ConflictsWith(a))
	assert.True(t, c.ConflictsWith(d))
	assert.False(t, d.ConflictsWith(c))
	assert.True(t, core.Conflicts(d, c))
	assert.False(t, core.Conflicts(a, e))
}
