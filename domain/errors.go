package domain

import "fmt"

// ErrInvalidSelectorShape covers malformed selector shapes: a top-level
// boolean/array/binary selector, a $and/$or/$nor operand that isn't a
// non-empty array of mappings, an $elemMatch operand that isn't a mapping,
// or a $regex $options value outside {i,m,g}.
type ErrInvalidSelectorShape struct {
	Reason string
}

func (e ErrInvalidSelectorShape) Error() string {
	return fmt.Sprintf("invalid selector shape: %s", e.Reason)
}

// ErrUnknownOperator is returned when a $-prefixed key is not in the
// accepted logical or comparison operator sets.
type ErrUnknownOperator struct {
	Operator string
}

func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrOperatorOperandType is returned when an operator's operand fails its
// type constraint, e.g. $mod not given a pair of numbers, $in/$nin/$all not
// given an array, $type/$size not given a number, $all given an operator
// mapping, or $in nesting a $-prefixed key.
type ErrOperatorOperandType struct {
	Operator string
	Want     string
	Actual   any
}

func (e ErrOperatorOperandType) Error() string {
	return fmt.Sprintf("%s: expected %s, got %T", e.Operator, e.Want, e.Actual)
}

// ErrOperatorContext is returned when an operator appears somewhere it
// cannot be evaluated: $near outside the root selector, $options without a
// sibling $regex, $maxDistance without a sibling $near.
type ErrOperatorContext struct {
	Operator string
	Reason   string
}

func (e ErrOperatorContext) Error() string {
	return fmt.Sprintf("%s: %s", e.Operator, e.Reason)
}

// ErrInvalidDocument is the sole runtime error: DocumentMatches was called
// with a value that isn't a mapping.
type ErrInvalidDocument struct {
	Actual any
}

func (e ErrInvalidDocument) Error() string {
	return fmt.Sprintf("documentMatches: expected a document, got %T", e.Actual)
}
