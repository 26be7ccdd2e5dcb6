// Package pathlookup implements the path lookup engine (C2) and branch
// expansion (C3): resolving a dotted field path against a document with
// MongoDB's array-branching semantics, and flattening array-valued
// branches into per-element branches for operator matching.
package pathlookup

import (
	"strconv"

	"github.com/eyalvardi/marsdb/domain"
)

// Lookup resolves path against doc, producing every [domain.Branch] the
// path reaches (spec §4.2). forSort suppresses implicit array branching
// when the next path part is numeric, for use by an external sort-key
// generator.
func Lookup(doc any, path []string, forSort bool) []domain.Branch {
	if len(path) == 0 {
		return []domain.Branch{{Value: doc, Defined: true}}
	}
	return finish(lookup(doc, path, nil, forSort))
}

func lookup(node any, parts []string, indices []domain.IndexStep, forSort bool) []domain.Branch {
	if arr, ok := node.([]any); ok {
		idx, ok := parseIndex(parts[0])
		if !ok || idx < 0 || idx >= len(arr) {
			return nil
		}
		next := appendStep(indices, domain.IndexStep{Index: idx, Explicit: true})
		rest := parts[1:]
		child := arr[idx]
		if len(rest) == 0 {
			return []domain.Branch{{
				Value:        child,
				Defined:      true,
				ArrayIndices: next,
				DontIterate:  isArray(child),
			}}
		}
		return lookup(child, rest, next, forSort)
	}

	mapping, ok := asMapping(node)
	if !ok {
		return nil
	}

	child, has := mapping.Get(parts[0]), mapping.Has(parts[0])
	rest := parts[1:]

	if len(rest) == 0 {
		return []domain.Branch{{Value: child, Defined: has, ArrayIndices: indices}}
	}
	if !isArray(child) && !isMapping(child) {
		return []domain.Branch{{Value: nil, Defined: false, ArrayIndices: indices}}
	}

	out := lookup(child, rest, indices, forSort)

	if arr, isArr := child.([]any); isArr {
		suppress := forSort && isNumericKey(rest[0])
		if !suppress {
			for i, e := range arr {
				if isMapping(e) {
					implicit := appendStep(indices, domain.IndexStep{Index: i, Explicit: false})
					out = append(out, lookup(e, rest, implicit, forSort)...)
				}
			}
		}
	}
	return out
}

// finish drops a zero-length ArrayIndices down to nil and leaves DontIterate
// as produced (it is already false unless explicitly set), per spec §4.2's
// "drop dontIterate when false; drop arrayIndices when empty".
func finish(branches []domain.Branch) []domain.Branch {
	for i, b := range branches {
		if len(b.ArrayIndices) == 0 {
			branches[i].ArrayIndices = nil
		}
	}
	return branches
}

func appendStep(indices []domain.IndexStep, step domain.IndexStep) []domain.IndexStep {
	out := make([]domain.IndexStep, len(indices)+1)
	copy(out, indices)
	out[len(indices)] = step
	return out
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isNumericKey(s string) bool {
	_, ok := parseIndex(s)
	return ok
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func isMapping(v any) bool {
	_, ok := asMapping(v)
	return ok
}

func asMapping(v any) (domain.Document, bool) {
	d, ok := v.(domain.Document)
	return d, ok
}
