// Package comparer implements [domain.Comparer] (C1): deep equality, an
// ordered comparison over values sharing a BSON type code, type-code
// extraction, and structural cloning.
package comparer

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/eyalvardi/marsdb/domain"
)

// Comparer implements [domain.Comparer].
type Comparer struct{}

// New returns a new [domain.Comparer].
func New() domain.Comparer {
	return &Comparer{}
}

// DeepEquals implements [domain.Comparer]. Null and undefined (represented
// as Go nil) compare equal to each other; regex literals compare by pattern
// and options; binary blobs compare bytewise; everything else is compared
// structurally.
func (c *Comparer) DeepEquals(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if ra, ok := a.(*domain.Regex); ok {
		rb, ok := b.(*domain.Regex)
		return ok && ra.Equal(rb)
	}
	if ba, ok := a.(domain.Binary); ok {
		bb, ok := b.(domain.Binary)
		return ok && slices.Equal(ba, bb)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if aa, ok := a.([]any); ok {
		ab, ok := b.([]any)
		if !ok || len(aa) != len(ab) {
			return false
		}
		for i := range aa {
			if !c.DeepEquals(aa[i], ab[i]) {
				return false
			}
		}
		return true
	}
	if da, ok := a.(domain.Document); ok {
		db, ok := b.(domain.Document)
		if !ok || da.Len() != db.Len() {
			return false
		}
		for k := range da.Iter() {
			if !db.Has(k) || !c.DeepEquals(da.Get(k), db.Get(k)) {
				return false
			}
		}
		return true
	}
	if na, ok := c.asNumber(a); ok {
		nb, ok := c.asNumber(b)
		return ok && na.Cmp(nb) == 0
	}
	return a == b
}

// Compare implements [domain.Comparer].
func (c *Comparer) Compare(a, b any) (int, error) {
	if v, ok := c.checkNil(a, b); ok {
		return v, nil
	}
	if v, ok := c.checkNumbers(a, b); ok {
		return v, nil
	}
	if v, ok := c.checkStrings(a, b); ok {
		return v, nil
	}
	if v, ok := c.checkBooleans(a, b); ok {
		return v, nil
	}
	if v, ok := c.checkTime(a, b); ok {
		return v, nil
	}
	if v, ok, err := c.checkArrays(a, b); err != nil || ok {
		return v, err
	}
	if v, ok, err := c.checkDocs(a, b); err != nil || ok {
		return v, err
	}
	return 0, fmt.Errorf("cannot compare unexpected types %T and %T", a, b)
}

// Type implements [domain.Comparer], returning the BSON type code of v.
func (c *Comparer) Type(v any) int {
	switch t := v.(type) {
	case nil:
		return domain.TypeNull
	case bool:
		return domain.TypeBool
	case string:
		return domain.TypeString
	case time.Time:
		return domain.TypeDate
	case domain.Binary:
		return domain.TypeBinary
	case *domain.Regex:
		return domain.TypeRegex
	case []any:
		return domain.TypeArray
	case domain.Document:
		return domain.TypeObject
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return domain.TypeInt
	case float32, float64:
		return domain.TypeDouble
	default:
		_ = t
		return domain.TypeUndefined
	}
}

// IsBinary implements [domain.Comparer].
func (c *Comparer) IsBinary(v any) bool {
	_, ok := v.(domain.Binary)
	return ok
}

// Clone implements [domain.Comparer] with a structural deep copy.
func (c *Comparer) Clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = c.Clone(e)
		}
		return out
	case domain.Document:
		out := make(map[string]any, t.Len())
		for k, val := range t.Iter() {
			out[k] = c.Clone(val)
		}
		return out
	case domain.Binary:
		out := make(domain.Binary, len(t))
		copy(out, t)
		return out
	case *domain.Regex:
		r := *t
		return &r
	default:
		return v
	}
}

func (c *Comparer) checkNil(a, b any) (int, bool) {
	if a == nil {
		if b == nil {
			return 0, true
		}
		return -1, true
	}
	if b == nil {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkNumbers(a, b any) (int, bool) {
	if a, ok := c.asNumber(a); ok {
		if b, ok := c.asNumber(b); ok {
			return a.Cmp(b), true
		}
		return -1, true
	}
	if _, ok := c.asNumber(b); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkStrings(a, b any) (int, bool) {
	if a, ok := a.(string); ok {
		if b, ok := b.(string); ok {
			return cmp.Compare(a, b), true
		}
		return -1, true
	}
	if _, ok := b.(string); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkBooleans(a, b any) (int, bool) {
	if a, ok := a.(bool); ok {
		if b, ok := b.(bool); ok {
			return c.compareBool(a, b), true
		}
		return -1, true
	}
	if _, ok := b.(bool); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkTime(a, b any) (int, bool) {
	if a, ok := a.(time.Time); ok {
		if b, ok := b.(time.Time); ok {
			return a.Compare(b), true
		}
		return -1, true
	}
	if _, ok := b.(time.Time); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkArrays(a, b any) (int, bool, error) {
	if a, ok := a.([]any); ok {
		if b, ok := b.([]any); ok {
			v, err := c.compareArray(a, b)
			return v, true, err
		}
		return -1, true, nil
	}
	if _, ok := b.([]any); ok {
		return 1, true, nil
	}
	return 0, false, nil
}

func (c *Comparer) checkDocs(a, b any) (int, bool, error) {
	if a, ok := a.(domain.Document); ok {
		if b, ok := b.(domain.Document); ok {
			v, err := c.compareDoc(a, b)
			return v, true, err
		}
		return -1, true, nil
	}
	if _, ok := b.(domain.Document); ok {
		return 1, true, nil
	}
	return 0, false, nil
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	n := min(len(a), len(b))
	for i := range n {
		v, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if v != 0 {
			return v, nil
		}
	}
	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

func (c *Comparer) compareDoc(a, b domain.Document) (int, error) {
	aKeys := slices.Collect(a.Keys())
	bKeys := slices.Collect(b.Keys())
	slices.Sort(aKeys)
	slices.Sort(bKeys)

	for i := range min(len(aKeys), len(bKeys)) {
		v, err := c.Compare(a.Get(aKeys[i]), b.Get(bKeys[i]))
		if err != nil {
			return 0, err
		}
		if v != 0 {
			return v, nil
		}
	}
	if v := cmp.Compare(a.Len(), b.Len()); v != 0 {
		return v, nil
	}

	aAny := make([]any, len(aKeys))
	for n, v := range aKeys {
		aAny[n] = v
	}
	bAny := make([]any, len(bKeys))
	for n, v := range bKeys {
		bAny[n] = v
	}
	return c.compareArray(aAny, bAny)
}

func (c *Comparer) asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}
