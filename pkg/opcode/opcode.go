// Package opcode defines the register-machine bytecode a compiled
// SELECT statement is lowered into, and the VM context a program runs
// inside: a bounded instruction list, a flat register bank description,
// and the doubly-terminated chain of result tablet ids a run produces.
package opcode

import "tabletdb.dev/tabletdb/pkg/tablet"

// Op identifies one instruction kind.
type Op int

const (
	Table Op = iota
	ResultColumn
	Parallel
	Converge
	Finish
	Integer
	Float
	Column
	Rowid
	Add
	Sub
	Mul
	Div
	Eq
	Neq
	Lt
	Le
	Gt
	Ge
	And
	Or
	Not
	Cast
	Invalid
	Result
	Nop
)

func (o Op) String() string {
	switch o {
	case Table:
		return "Table"
	case ResultColumn:
		return "ResultColumn"
	case Parallel:
		return "Parallel"
	case Converge:
		return "Converge"
	case Finish:
		return "Finish"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Column:
		return "Column"
	case Rowid:
		return "Rowid"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Eq:
		return "Eq"
	case Neq:
		return "Neq"
	case Lt:
		return "Lt"
	case Le:
		return "Le"
	case Gt:
		return "Gt"
	case Ge:
		return "Ge"
	case And:
		return "And"
	case Or:
		return "Or"
	case Not:
		return "Not"
	case Cast:
		return "Cast"
	case Invalid:
		return "Invalid"
	case Result:
		return "Result"
	case Nop:
		return "Nop"
	default:
		return "?"
	}
}

// Payload is the tagged p4 argument: either a float constant (Float), a
// result column name (ResultColumn), or a validity-after-jump flag
// (the comparison ops). Exactly one field is meaningful per opcode; see
// the Op's doc in spec.md §4.5.
type Payload struct {
	Float    float32
	Name     string
	Validity int
}

// Instruction is one bytecode instruction: an Op plus three signed
// integer operands and a tagged payload.
type Instruction struct {
	Op Op
	P1 int
	P2 int
	P3 int
	P4 Payload
}

// Program is a compiled, bounded instruction list ready for the
// interpreter, plus the result-column layout ResultColumn ops declare.
type Program struct {
	Ops []Instruction
}

// ResultNode is one link of a VM run's result-tablet chain.
type ResultNode struct {
	ID   int
	Next *ResultNode
}

// Context is the VM context a single Program execution runs inside: its
// program counter, the table handles Table ops have opened, and the
// chain of result tablets Result emission has produced so far.
type Context struct {
	Program Program

	PC           int
	TableHandles []int

	HeadResult *ResultNode
	TailResult *ResultNode
}

// AddResult appends a freshly allocated result tablet id to the chain.
func (c *Context) AddResult(id int) {
	node := &ResultNode{ID: id}
	if c.HeadResult == nil {
		c.HeadResult = node
	} else {
		c.TailResult.Next = node
	}
	c.TailResult = node
}

// ResultIDs returns every result tablet id produced by this context, in
// chain order.
func (c *Context) ResultIDs() []int {
	var ids []int
	for n := c.HeadResult; n != nil; n = n.Next {
		ids = append(ids, n.ID)
	}
	return ids
}

// New builds an empty Context for prog.
func New(prog Program) *Context {
	return &Context{Program: prog}
}

// ResultColumnType pairs a ResultColumn op's declared datatype with its
// name, describing the output schema of a compiled program.
type ResultColumnType struct {
	Name string
	Type tablet.Type
}

// ResultSchema walks prog's ResultColumn ops in order and returns the
// output schema they declare.
func ResultSchema(prog Program) []ResultColumnType {
	var cols []ResultColumnType
	for _, in := range prog.Ops {
		if in.Op == ResultColumn {
			cols = append(cols, ResultColumnType{Name: in.P4.Name, Type: tablet.Type(in.P1)})
		}
	}
	return cols
}
