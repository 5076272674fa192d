// Package tablet implements the fixed-size columnar block that is the
// engine's unit of storage: a header of layout metadata followed by a
// key column, a parallel key-pointer column (reserved, never
// dereferenced), a set of fixed-width columns, and a variable-size
// area at the tail.
package tablet

import "fmt"

// Type is the variable type of a key or column value.
type Type int

const (
	Int Type = iota
	Int64
	Float
	Double
	Char
	String
	Null
)

// sizes gives the on-disk/in-memory byte width of each Type, indexed
// by its enumeration value, mirroring the original engine's fixed
// virg_sizes table.
var sizes = [...]int{
	Int:    4,
	Int64:  8,
	Float:  4,
	Double: 8,
	Char:   1,
	String: 4,
	Null:   0,
}

// Sizeof returns the byte width of t.
func Sizeof(t Type) int {
	return sizes[t]
}

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Int64:
		return "int64"
	case Float:
		return "float"
	case Double:
		return "double"
	case Char:
		return "char"
	case String:
		return "string"
	case Null:
		return "null"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Generalize returns the more general of two numeric types, the type
// an operation between them should produce: an int combined with a
// float yields a float, and so on. Only Int, Int64, Float and Double
// are numeric. Two identical types, numeric or not, are returned
// unchanged; generalizing two different types where either is not
// numeric panics, matching the original engine's assertion that this
// is never reached with mixed non-numeric operands.
func Generalize(a, b Type) Type {
	if a == b {
		return a
	}
	if a <= Double && b <= Double {
		if a > b {
			return a
		}
		return b
	}
	panic(fmt.Sprintf("tablet: cannot generalize types %s and %s", a, b))
}
