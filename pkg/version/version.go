// Package version implements ordered comparison of coordinator version
// strings such as "0.282" or "0.283-SNAPSHOT".
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an immutable, totally ordered coordinator version.
type Version struct {
	raw    string
	tokens []token
}

type token struct {
	text    string
	number  int
	numeric bool
}

// Parse splits a version string on "." and "-" into tokens. Numeric tokens
// compare numerically, everything else lexicographically.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, fmt.Errorf("version string is empty")
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '.' || r == '-'
	})
	if len(parts) == 0 {
		return Version{}, fmt.Errorf("version string %q has no tokens", s)
	}

	tokens := make([]token, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(part); err == nil {
			tokens[i] = token{text: part, number: n, numeric: true}
		} else {
			tokens[i] = token{text: part}
		}
	}

	return Version{raw: trimmed, tokens: tokens}, nil
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return v.raw
}

// Compare returns -1, 0 or 1. Tokens are compared pairwise; when one version
// is a prefix of the other, the longer one is the greater.
func (v Version) Compare(other Version) int {
	for i := 0; i < len(v.tokens) && i < len(other.tokens); i++ {
		if c := compareTokens(v.tokens[i], other.tokens[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(v.tokens) < len(other.tokens):
		return -1
	case len(v.tokens) > len(other.tokens):
		return 1
	default:
		return 0
	}
}

func (v Version) LessThanOrEqualTo(other Version) bool {
	return v.Compare(other) <= 0
}

func (v Version) GreaterThanOrEqualTo(other Version) bool {
	return v.Compare(other) >= 0
}

func compareTokens(a, b token) int {
	if a.numeric && b.numeric {
		switch {
		case a.number < b.number:
			return -1
		case a.number > b.number:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.text, b.text)
}
