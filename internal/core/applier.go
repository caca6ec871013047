package core

import (
	"github.com/rafabd1/Parallax/internal/httpmsg"
)

// ApplyCombination feeds base through every member of combo in order and returns
// the resulting request with the combination's description. base is not modified.
func ApplyCombination(base *httpmsg.Request, combo Combination) (*httpmsg.Request, string) {
	req := base.Clone()
	for _, m := range combo {
		if next := m.Apply(req); next != nil {
			req = next
		}
	}
	return req, combo.Describe()
}
