package core

import (
	"strings"

	"github.com/rafabd1/Parallax/internal/httpmsg"
)

// Mutation is a named transformation over a request. Implementations must not
// modify the request they receive and must be safe for concurrent use.
type Mutation interface {
	Apply(req *httpmsg.Request) *httpmsg.Request
	Describe() string
}

// Conflicter is implemented by mutations that cannot be meaningfully combined with
// some others. The relation is treated as symmetric.
type Conflicter interface {
	ConflictsWith(other Mutation) bool
}

// Conflicts reports whether a and b conflict according to either side.
func Conflicts(a, b Mutation) bool {
	if c, ok := a.(Conflicter); ok && c.ConflictsWith(b) {
		return true
	}
	if c, ok := b.(Conflicter); ok && c.ConflictsWith(a) {
		return true
	}
	return false
}

// DescriptionSeparator joins member descriptions of a combination.
const DescriptionSeparator = " + "

// Combination is an ordered, non-empty sequence of distinct mutations applied
// one after the other.
type Combination []Mutation

// Describe joins the member descriptions in application order.
func (c Combination) Describe() string {
	parts := make([]string, len(c))
	for i, m := range c {
		parts[i] = m.Describe()
	}
	return strings.Join(parts, DescriptionSeparator)
}

// HasConflict reports whether any pair of members conflicts.
func (c Combination) HasConflict() bool {
	for i := 0; i < len(c); i++ {
		for j := i + 1; j < len(c); j++ {
			if Conflicts(c[i], c[j]) {
				return true
			}
		}
	}
	return false
}
