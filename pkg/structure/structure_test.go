package structure

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StructureTestSuite struct {
	suite.Suite
}

func (s *StructureTestSuite) TestAsInteger() {
	valid := []any{
		int(0), int8(1), int16(2), int32(3), int64(4), uint(5),
		uint8(6), uint16(7), uint32(8), uint64(9), float32(10),
		float64(11),
	}

	invalid := []any{float32(10.1), float64(11.2), true, false, "text"}

	s.Run("Valid", func() {
		for n, v := range valid {
			s.Run(fmt.Sprintf("%T", v), func() {
				integer, ok := AsInteger(v)
				if !s.True(ok) {
					return
				}
				s.Equal(n, integer)
			})
		}
	})

	s.Run("Invalid", func() {
		for _, i := range invalid {
			s.Run(fmt.Sprintf("%T", i), func() {
				integer, ok := AsInteger(i)
				if !s.False(ok) {
					return
				}
				s.Zero(integer)
			})
		}
	})

}

func TestStructureTestSuite(t *testing.T) {
	suite.Run(t, new(StructureTestSuite))
}
