// Package intern deduplicates strings that repeat across tens of thousands of printings.
package intern

import "unique"

// Pool is a content-addressed string pool. Equal inputs return strings sharing
// one backing array. The zero value is ready to use and safe for concurrent use.
type Pool struct{}

// String returns the canonical copy of s.
func (Pool) String(s string) string {
	if s == "" {
		return ""
	}
	return unique.Make(s).Value()
}

// Strings interns every element of ss in place and returns ss.
func (p Pool) Strings(ss []string) []string {
	for i, s := range ss {
		ss[i] = p.String(s)
	}
	return ss
}
