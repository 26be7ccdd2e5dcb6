package pathlookup

import "github.com/eyalvardi/marsdb/domain"

// ExpandedBranch is a branch after C3 flattening: either a branch's own
// value, or one of its array elements. Defined mirrors the originating
// branch's Defined flag for the branch's own value; array elements are
// always Defined, since they are literal entries of a present array.
type ExpandedBranch struct {
	Value        any
	Defined      bool
	ArrayIndices []domain.IndexStep
}

// Expand realizes MongoDB's "operator matches any leaf of an array field"
// rule (C3, spec §4.3). For each input branch, the branch's own value is
// emitted unless skipArrays is true and the value is an array with
// DontIterate false; additionally, if the value is an array with
// DontIterate false, one branch per element is emitted.
func Expand(branches []domain.Branch, skipArrays bool) []ExpandedBranch {
	var out []ExpandedBranch
	for _, b := range branches {
		arr, isArr := b.Value.([]any)
		leafArray := isArr && !b.DontIterate

		if !(skipArrays && leafArray) {
			out = append(out, ExpandedBranch{Value: b.Value, Defined: b.Defined, ArrayIndices: b.ArrayIndices})
		}
		if leafArray {
			for i, e := range arr {
				out = append(out, ExpandedBranch{
					Value:        e,
					Defined:      true,
					ArrayIndices: appendStep(b.ArrayIndices, domain.IndexStep{Index: i, Explicit: false}),
				})
			}
		}
	}
	return out
}
