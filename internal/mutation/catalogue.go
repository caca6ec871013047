package mutation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rafabd1/Parallax/internal/core"
)

// File is the layout of a YAML catalogue:
//
//	mutations:
//	  - name: dup-cl
//	    kind: header-dup
//	    header: Content-Length
//	    group: content-length
type File struct {
	Mutations []Spec `yaml:"mutations"`
}

// DefaultSpecs returns the built-in catalogue in its canonical order.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "dup-content-length", Kind: KindHeaderDup, Header: "Content-Length", Group: "content-length",
			Description: "repeat the Content-Length header"},
		{Name: "tab-content-length", Kind: KindTabSeparator, Header: "Content-Length", Group: "content-length",
			Description: "separate the Content-Length value with a tab"},
		{Name: "chunked-te", Kind: KindInsertHeader, Header: "Transfer-Encoding", Value: "chunked", Group: "transfer-encoding",
			Description: "add Transfer-Encoding: chunked"},
		{Name: "space-colon-te", Kind: KindSpaceBeforeColon, Header: "Transfer-Encoding", Group: "transfer-encoding",
			Description: "put a space before the Transfer-Encoding colon"},
		{Name: "upper-te", Kind: KindHeaderCase, Header: "Transfer-Encoding", Case: "upper", Group: "transfer-encoding",
			Description: "upper-case the Transfer-Encoding name"},
		{Name: "dup-host", Kind: KindHeaderDup, Header: "Host", Group: "host",
			Description: "repeat the Host header"},
		{Name: "bare-lf", Kind: KindBareLF, Group: "line-endings",
			Description: "terminate head lines with a bare LF"},
		{Name: "http10", Kind: KindVersion, Value: "HTTP/1.0", Group: "version",
			Description: "downgrade the request line to HTTP/1.0"},
	}
}

// Defaults builds the built-in catalogue.
func Defaults() []core.Mutation {
	muts, err := FromSpecs(DefaultSpecs())
	if err != nil {
		panic(fmt.Sprintf("built-in catalogue is invalid: %v", err))
	}
	return muts
}

// FromSpecs builds one Strategy per spec, keeping order. Names must be unique.
func FromSpecs(specs []Spec) ([]core.Mutation, error) {
	seen := make(map[string]bool, len(specs))
	muts := make([]core.Mutation, 0, len(specs))
	for i, spec := range specs {
		s, err := New(spec)
		if err != nil {
			return nil, fmt.Errorf("catalogue entry %d: %w", i+1, err)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("catalogue entry %d: duplicate mutation name %q", i+1, spec.Name)
		}
		seen[spec.Name] = true
		muts = append(muts, s)
	}
	return muts, nil
}

// Load decodes a YAML catalogue from r. Unknown fields are rejected.
func Load(r io.Reader) ([]core.Mutation, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return []core.Mutation{}, nil
		}
		return nil, fmt.Errorf("failed to decode catalogue: %w", err)
	}
	return FromSpecs(f.Mutations)
}

// LoadFile reads a YAML catalogue from path.
func LoadFile(path string) ([]core.Mutation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue '%s': %w", path, err)
	}
	defer f.Close()
	muts, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return muts, nil
}

// Select returns the mutations named in names, in that order. An empty names
// selects the whole catalogue.
func Select(all []core.Mutation, names []string) ([]core.Mutation, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]core.Mutation, len(all))
	for _, m := range all {
		byName[m.Describe()] = m
	}
	selected := make([]core.Mutation, 0, len(names))
	picked := make(map[string]bool, len(names))
	var unknown []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || picked[n] {
			continue
		}
		m, ok := byName[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		picked[n] = true
		selected = append(selected, m)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown mutation(s): %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}
