package mutation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Parallax/internal/core"
)

func names(muts []core.Mutation) []string {
	out := make([]string, len(muts))
	for i, m := range muts {
		out[i] = m.Describe()
	}
	return out
}

func TestDefaultsAreValidAndUnique(t *testing.T) {
	muts := Defaults()
	require.Len(t, muts, len(DefaultSpecs()))

	seen := map[string]bool{}
	for _, m := range muts {
		assert.False(t, seen[m.Describe()], m.Describe())
		seen[m.Describe()] = true
	}

	// grouped defaults never pair up within a group
	for _, combo := range core.Enumerate(muts, 2, true) {
		if len(combo) == 2 {
			a := combo[0].(*Strategy).Spec().Group
			b := combo[1].(*Strategy).Spec().Group
			assert.NotEqual(t, a, b, combo.Describe())
		}
	}
}

func TestLoadCatalogue(t *testing.T) {
	doc := `
mutations:
  - name: dup-cl
    kind: header-dup
    header: Content-Length
    value: "0"
    group: cl
  - name: lf
    kind: bare-lf
    conflicts: [dup-cl]
`
	muts, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"dup-cl", "lf"}, names(muts))
	assert.True(t, core.Conflicts(muts[0], muts[1]))
	assert.Equal(t, "0", muts[0].(*Strategy).Spec().Value)
}

func TestLoadRejectsBadCatalogues(t *testing.T) {
	docs := map[string]string{
		"unknown field": "mutations:\n  - name: a\n    kind: bare-lf\n    colour: red\n",
		"duplicate":     "mutations:\n  - name: a\n    kind: bare-lf\n  - name: a\n    kind: bare-lf\n",
		"bad kind":      "mutations:\n  - name: a\n    kind: nope\n",
		"not yaml":      "mutations: [",
	}
	for name, doc := range docs {
		_, err := Load(strings.NewReader(doc))
		assert.Error(t, err, name)
	}

	muts, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, muts)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mutations:\n  - name: v\n    kind: version\n    value: HTTP/0.9\n"), 0o644))

	muts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, names(muts))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	all := Defaults()

	got, err := Select(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, len(all))

	got, err = Select(all, []string{"http10", " bare-lf", "http10"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http10", "bare-lf"}, names(got))

	_, err = Select(all, []string{"http10", "nope"})
	assert.ErrorContains(t, err, "nope")
}
