package matcher

import "github.com/eyalvardi/marsdb/domain"

// Re-exported so callers that only import this package still get typed
// errors without reaching into domain directly.
type (
	ErrInvalidSelectorShape = domain.ErrInvalidSelectorShape
	ErrUnknownOperator      = domain.ErrUnknownOperator
	ErrOperatorOperandType  = domain.ErrOperatorOperandType
	ErrOperatorContext      = domain.ErrOperatorContext
	ErrInvalidDocument      = domain.ErrInvalidDocument
)
