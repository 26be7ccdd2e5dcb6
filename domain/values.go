package domain

import (
	"fmt"
	"regexp"
	"sync"
)

// Binary is the extended-JSON binary blob value type. Comparer.IsBinary and
// the $type operator recognize it; equality and ordering both compare it
// bytewise.
type Binary []byte

// Regex is the extended-JSON regex-literal value type: a pattern plus a
// MongoDB-style option string. The {i,m,g} check is applied to a $regex's
// $options operand only; a Regex literal's Options are not validated, and
// characters other than i and m have no effect on matching (see Compile).
// Regex equality compares Pattern and Options textually; it never compares
// compiled state.
type Regex struct {
	Pattern string
	Options string

	once     sync.Once
	compiled *regexp.Regexp
	compErr  error
}

// ValidOptions reports whether opts contains only the characters i, m, g.
func ValidOptions(opts string) bool {
	for _, c := range opts {
		switch c {
		case 'i', 'm', 'g':
		default:
			return false
		}
	}
	return true
}

// Compile lazily builds the underlying [regexp.Regexp], translating the
// MongoDB-style i/m options into Go's inline (?i)(?m) flags. The 'g' option
// carries no meaning for a single MatchString call in Go (it only affects
// JavaScript's stateful lastIndex iteration) and is accepted but ignored.
func (r *Regex) Compile() (*regexp.Regexp, error) {
	r.once.Do(func() {
		prefix := ""
		for _, c := range r.Options {
			switch c {
			case 'i':
				prefix += "i"
			case 'm':
				prefix += "m"
			}
		}
		expr := r.Pattern
		if prefix != "" {
			expr = fmt.Sprintf("(?%s)%s", prefix, expr)
		}
		r.compiled, r.compErr = regexp.Compile(expr)
	})
	return r.compiled, r.compErr
}

// MatchString reports whether s matches the regex. Each call is a stateless
// "fresh match" — there is no per-object cursor to reset, unlike a
// JavaScript RegExp with the 'g' flag.
func (r *Regex) MatchString(s string) (bool, error) {
	re, err := r.Compile()
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

// Equal reports textual equality of pattern and options, per spec §4.4's
// regex-literal equality rule.
func (r *Regex) Equal(other *Regex) bool {
	if other == nil {
		return false
	}
	return r.Pattern == other.Pattern && r.Options == other.Options
}
