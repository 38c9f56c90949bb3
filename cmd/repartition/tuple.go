package main

import (
	"strconv"
	"strings"

	"github.com/grailbio/keep/kerrors"
)

// parseTuple parses a shape string of the form "(a,b,c)" into a [3]int64.
// Ungrounded in any pack dependency -- the Python CLI leans on
// ast.literal_eval for this, which has no idiomatic Go equivalent worth
// pulling a parser library in for; see DESIGN.md.
func parseTuple(s string) ([3]int64, error) {
	var out [3]int64
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 3 {
		return out, kerrors.New(kerrors.Invariant, "shape %q must have exactly 3 components", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return out, kerrors.Wrap(kerrors.Invariant, err, "parsing shape "+s)
		}
		out[i] = v
	}
	return out, nil
}
