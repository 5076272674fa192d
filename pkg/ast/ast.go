// Package ast defines the shape of a parsed SELECT statement that an
// external SQL front end must produce for pkg/compiler to consume. The
// lexer/parser that builds these trees is outside this module's scope;
// this package only fixes the contract between it and the compiler.
package ast

import "tabletdb.dev/tabletdb/pkg/tablet"

// ExprKind tags the variant of an Expr node.
type ExprKind int

const (
	ExprInt ExprKind = iota
	ExprFloat
	ExprColumn
	ExprOp
)

// OpKind is the arithmetic operator of an ExprOp node.
type OpKind int

const (
	OpPlus OpKind = iota
	OpMinus
	OpMul
	OpDiv
)

// Expr is one node of an expression tree: a literal, a column reference,
// or an arithmetic operator over two sub-expressions. Column holds the
// unresolved column name until pkg/compiler's type-resolution pass fills
// in IsKey, ColumnIndex and Type; Int/Float/Op share that convention.
type Expr struct {
	Kind ExprKind

	IntVal   int32
	FloatVal float32

	Column      string
	IsKey       bool
	ColumnIndex int

	Op  OpKind
	LHS *Expr
	RHS *Expr

	// Type is resolved by pkg/compiler's Pass 0; it is not set by the
	// parser.
	Type tablet.Type
}

// CondKind is the comparison operator of a Condition node.
type CondKind int

const (
	CondEq CondKind = iota
	CondNeq
	CondLt
	CondLe
	CondGt
	CondGe
)

// Condition is one node of a WHERE-clause tree. A condition may chain
// into a lower-precedence AND (And) and/or an OR at the same precedence
// level (Or); OrFirst records that the OR binds tighter than the AND at
// this node, matching how the parser resolves "a AND b OR c" groupings.
type Condition struct {
	Kind CondKind
	LHS  *Expr
	RHS  *Expr

	And     *Condition
	Or      *Condition
	OrFirst bool
}

// ResultColumn is one projected output column: an expression plus the
// name it should be reported under.
type ResultColumn struct {
	Expr Expr
	Name string
}

// Select is the root of a parsed SELECT statement.
type Select struct {
	TableID      int
	ResultCols   []ResultColumn
	Conditions   *Condition
}
