package domain

// BSON-style type codes returned by [Comparer.Type] and matched against by
// the $type operator (spec §4.4.9). The numbering follows the MongoDB BSON
// type codes this selector language borrows its vocabulary from.
const (
	TypeDouble    = 1
	TypeString    = 2
	TypeObject    = 3
	TypeArray     = 4
	TypeBinary    = 5
	TypeUndefined = 6
	TypeObjectID  = 7
	TypeBool      = 8
	TypeDate      = 9
	TypeNull      = 10
	TypeRegex     = 11
	TypeInt       = 16
	TypeLong      = 18
)
