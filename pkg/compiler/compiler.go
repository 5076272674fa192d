// Package compiler lowers a parsed SELECT statement into a bounded
// register-machine program the interpreter in pkg/exec can run. It
// works in the same ordered passes the engine it's modeled on uses:
// resolving expression datatypes against the table's current schema,
// folding constant sub-expressions, building the program's abstract
// structure with register reuse and condition-tree jump wiring, fixing
// opcode addresses, resolving registers and jump targets, and finally
// emitting the bounded instruction list.
package compiler

import (
	"fmt"

	"tabletdb.dev/tabletdb/pkg/ast"
	"tabletdb.dev/tabletdb/pkg/catalog"
	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/metrics"
	"tabletdb.dev/tabletdb/pkg/opcode"
	"tabletdb.dev/tabletdb/pkg/tablet"
	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

// absOp is one node of the linked list of abstract operators the
// structure pass builds, before opcode addresses and registers have
// been resolved. opptr holds a forward reference to another absOp
// this one jumps to; it is resolved to a numeric address once every
// op has a final index.
type absOp struct {
	op       opcode.Op
	p1,p2,p3 int
	p4       opcode.Payload
	index    int
	opptr    *absOp
	next     *absOp
}

func newAbsOp(op opcode.Op, p1, p2, p3 int, opptr *absOp) *absOp {
	return &absOp{op: op, p1: p1, p2: p2, p3: p3, opptr: opptr}
}

func appendOp(head **absOp, n *absOp) {
	if *head == nil {
		*head = n
		return
	}
	x := *head
	for x.next != nil {
		x = x.next
	}
	x.next = n
}

// regEntry connects a vm register to the expression currently cached
// in it, so a later identical expression can reuse the register
// instead of recomputing it.
type regEntry struct {
	index int
	expr  *ast.Expr
}

// compiler holds a single compilation's register table. It is
// rebuilt fresh for every Compile call, matching how the original
// engine resets its global register counter per statement.
type compiler struct {
	regs []regEntry
}

func exprEqual(x1, x2 *ast.Expr) bool {
	if x1.Kind != x2.Kind {
		return false
	}
	switch x1.Kind {
	case ast.ExprInt:
		return x1.IntVal == x2.IntVal
	case ast.ExprFloat:
		return x1.FloatVal == x2.FloatVal
	case ast.ExprColumn:
		return x1.IsKey == x2.IsKey && x1.ColumnIndex == x2.ColumnIndex
	case ast.ExprOp:
		return x1.Op == x2.Op && exprEqual(x1.LHS, x2.LHS) && exprEqual(x1.RHS, x2.RHS)
	default:
		return false
	}
}

func (c *compiler) findReg(x *ast.Expr) int {
	for i := range c.regs {
		if c.regs[i].expr != nil && exprEqual(x, c.regs[i].expr) {
			return i
		}
	}
	return -1
}

func (c *compiler) getReg() int {
	c.regs = append(c.regs, regEntry{})
	return len(c.regs) - 1
}

func (c *compiler) regIndex() {
	for i := range c.regs {
		c.regs[i].index = i
	}
}

// Pass 0: resolve the datatype of every expression, looking up
// column names and the primary key against the target table's
// current schema.
func columnPass(cat *catalog.Catalog, tableID int, x *ast.Expr) error {
	switch x.Kind {
	case ast.ExprColumn:
		x.IsKey = x.Column == "id"
		var typ tablet.Type
		var err error
		if x.IsKey {
			x.ColumnIndex = 0
			typ, err = cat.GetKeyType(tableID)
		} else {
			x.ColumnIndex, err = cat.GetColumn(tableID, x.Column)
			if err != nil {
				return err
			}
			typ, err = cat.GetColumnType(tableID, x.ColumnIndex)
		}
		if err != nil {
			return err
		}
		x.Type = typ
	case ast.ExprOp:
		if err := columnPass(cat, tableID, x.LHS); err != nil {
			return err
		}
		if err := columnPass(cat, tableID, x.RHS); err != nil {
			return err
		}
		x.Type = tablet.Generalize(x.LHS.Type, x.RHS.Type)
	case ast.ExprInt:
		x.Type = tablet.Int
	case ast.ExprFloat:
		x.Type = tablet.Float
	default:
		return engineerr.New(engineerr.CompileError, "compiler.columnPass", nil)
	}
	return nil
}

func columnPassCond(cat *catalog.Catalog, tableID int, cond *ast.Condition) error {
	if err := columnPass(cat, tableID, cond.LHS); err != nil {
		return err
	}
	if err := columnPass(cat, tableID, cond.RHS); err != nil {
		return err
	}
	if cond.And != nil {
		if err := columnPassCond(cat, tableID, cond.And); err != nil {
			return err
		}
	}
	if cond.Or != nil {
		if err := columnPassCond(cat, tableID, cond.Or); err != nil {
			return err
		}
	}
	return nil
}

func litType(k ast.ExprKind) tablet.Type {
	if k == ast.ExprFloat {
		return tablet.Float
	}
	return tablet.Int
}

func valInt(x *ast.Expr) int32 {
	if x.Kind == ast.ExprFloat {
		return int32(x.FloatVal)
	}
	return x.IntVal
}

func valFloat(x *ast.Expr) float32 {
	if x.Kind == ast.ExprInt {
		return float32(x.IntVal)
	}
	return x.FloatVal
}

func runOpInt(op ast.OpKind, a, b int32) (int32, error) {
	switch op {
	case ast.OpPlus:
		return a + b, nil
	case ast.OpMinus:
		return a - b, nil
	case ast.OpMul:
		return a * b, nil
	case ast.OpDiv:
		if b == 0 {
			return 0, engineerr.New(engineerr.CompileError, "compiler.resolveOpsPass", fmt.Errorf("division by zero in constant expression"))
		}
		return a / b, nil
	default:
		return 0, engineerr.New(engineerr.CompileError, "compiler.resolveOpsPass", nil)
	}
}

func runOpFloat(op ast.OpKind, a, b float32) (float32, error) {
	switch op {
	case ast.OpPlus:
		return a + b, nil
	case ast.OpMinus:
		return a - b, nil
	case ast.OpMul:
		return a * b, nil
	case ast.OpDiv:
		return a / b, nil
	default:
		return 0, engineerr.New(engineerr.CompileError, "compiler.resolveOpsPass", nil)
	}
}

// Pass 1: fold operator expressions whose two sides are both already
// constants into a single constant of the more general type. A
// literal written with a leading minus sign needs no special case
// here: ast.Expr's IntVal and FloatVal are signed, so a negative
// literal arrives as a single already-signed constant.
func resolveOpsPass(x *ast.Expr) error {
	if x.Kind != ast.ExprOp {
		return nil
	}
	if err := resolveOpsPass(x.LHS); err != nil {
		return err
	}
	if err := resolveOpsPass(x.RHS); err != nil {
		return err
	}

	lhsConst := x.LHS.Kind == ast.ExprInt || x.LHS.Kind == ast.ExprFloat
	rhsConst := x.RHS.Kind == ast.ExprInt || x.RHS.Kind == ast.ExprFloat
	if !lhsConst || !rhsConst {
		return nil
	}

	target := tablet.Generalize(litType(x.LHS.Kind), litType(x.RHS.Kind))
	switch target {
	case tablet.Int:
		v, err := runOpInt(x.Op, valInt(x.LHS), valInt(x.RHS))
		if err != nil {
			return err
		}
		x.Kind = ast.ExprInt
		x.IntVal = v
	case tablet.Float:
		v, err := runOpFloat(x.Op, valFloat(x.LHS), valFloat(x.RHS))
		if err != nil {
			return err
		}
		x.Kind = ast.ExprFloat
		x.FloatVal = v
	default:
		return engineerr.New(engineerr.CompileError, "compiler.resolveOpsPass", nil)
	}
	x.Type = target
	return nil
}

func resolveOpsPassCond(cond *ast.Condition) error {
	if err := resolveOpsPass(cond.LHS); err != nil {
		return err
	}
	if err := resolveOpsPass(cond.RHS); err != nil {
		return err
	}
	if cond.And != nil {
		if err := resolveOpsPassCond(cond.And); err != nil {
			return err
		}
	}
	if cond.Or != nil {
		if err := resolveOpsPassCond(cond.Or); err != nil {
			return err
		}
	}
	return nil
}

// structureExpr recursively resolves an expression to a register,
// reusing one already holding an identical expression rather than
// recomputing it.
func (c *compiler) structureExpr(head **absOp, expr *ast.Expr) (int, error) {
	if reg := c.findReg(expr); reg != -1 {
		return reg, nil
	}

	var reg int
	var newop *absOp

	switch expr.Kind {
	case ast.ExprInt:
		reg = c.getReg()
		newop = newAbsOp(opcode.Integer, reg, int(expr.IntVal), 0, nil)
		appendOp(head, newop)

	case ast.ExprFloat:
		reg = c.getReg()
		newop = newAbsOp(opcode.Float, reg, 0, 0, nil)
		newop.p4 = opcode.Payload{Float: expr.FloatVal}
		appendOp(head, newop)

	case ast.ExprOp:
		reg1, err := c.structureExpr(head, expr.LHS)
		if err != nil {
			return 0, err
		}
		reg2, err := c.structureExpr(head, expr.RHS)
		if err != nil {
			return 0, err
		}
		reg = c.getReg()

		var op opcode.Op
		switch expr.Op {
		case ast.OpPlus:
			op = opcode.Add
		case ast.OpMinus:
			op = opcode.Sub
		case ast.OpMul:
			op = opcode.Mul
		case ast.OpDiv:
			op = opcode.Div
		default:
			return 0, engineerr.New(engineerr.CompileError, "compiler.structureExpr", nil)
		}
		newop = newAbsOp(op, reg, reg1, reg2, nil)
		appendOp(head, newop)

	case ast.ExprColumn:
		reg = c.getReg()
		if expr.IsKey {
			newop = newAbsOp(opcode.Rowid, reg, 0, 0, nil)
		} else {
			newop = newAbsOp(opcode.Column, reg, expr.ColumnIndex, 0, nil)
		}
		appendOp(head, newop)

	default:
		return 0, engineerr.New(engineerr.CompileError, "compiler.structureExpr", nil)
	}

	c.regs[reg].expr = expr
	return reg, nil
}

func jumpOnSuccessOp(k ast.CondKind) (opcode.Op, error) {
	switch k {
	case ast.CondEq:
		return opcode.Eq, nil
	case ast.CondNeq:
		return opcode.Neq, nil
	case ast.CondLt:
		return opcode.Lt, nil
	case ast.CondLe:
		return opcode.Le, nil
	case ast.CondGt:
		return opcode.Gt, nil
	case ast.CondGe:
		return opcode.Ge, nil
	default:
		return 0, engineerr.New(engineerr.CompileError, "compiler.structureCond", nil)
	}
}

func jumpOnFailureOp(k ast.CondKind) (opcode.Op, error) {
	switch k {
	case ast.CondEq:
		return opcode.Neq, nil
	case ast.CondNeq:
		return opcode.Eq, nil
	case ast.CondLt:
		return opcode.Ge, nil
	case ast.CondLe:
		return opcode.Gt, nil
	case ast.CondGt:
		return opcode.Le, nil
	case ast.CondGe:
		return opcode.Lt, nil
	default:
		return 0, engineerr.New(engineerr.CompileError, "compiler.structureCond", nil)
	}
}

// structureCond lowers one node of a WHERE-clause tree. A leaf
// condition, or one where an OR binds tighter than the enclosing AND,
// jumps forward on success (to a lower-precedence AND's landmark, or
// to result emission if there is none); any other condition is one
// link of an AND chain and jumps forward on failure instead, since any
// single failure invalidates the whole chain.
func (c *compiler) structureCond(cond *ast.Condition, head **absOp, onsuccess, onfailure, newop *absOp) (*absOp, error) {
	reg1, err := c.structureExpr(head, cond.LHS)
	if err != nil {
		return nil, err
	}
	reg2, err := c.structureExpr(head, cond.RHS)
	if err != nil {
		return nil, err
	}

	if cond.And == nil || (cond.Or != nil && cond.OrFirst) {
		op, err := jumpOnSuccessOp(cond.Kind)
		if err != nil {
			return nil, err
		}

		var andop *absOp
		if cond.And != nil {
			andop = newAbsOp(opcode.Nop, 0, 0, 0, nil)
			onsuccess = andop
		}
		if newop == nil {
			newop = newAbsOp(opcode.Nop, 0, 0, 0, nil)
		}
		newop.op = op
		newop.p1 = reg1
		newop.p2 = reg2
		newop.p4 = opcode.Payload{Validity: 1}
		newop.opptr = onsuccess
		appendOp(head, newop)

		if cond.Or != nil {
			if _, err := c.structureCond(cond.Or, head, onsuccess, onfailure, nil); err != nil {
				return nil, err
			}
		}
		if cond.And != nil {
			if _, err := c.structureCond(cond.And, head, onfailure, onfailure, andop); err != nil {
				return nil, err
			}
		}
	} else {
		op, err := jumpOnFailureOp(cond.Kind)
		if err != nil {
			return nil, err
		}

		var orop *absOp
		if cond.Or != nil {
			orop = newAbsOp(opcode.Nop, 0, 0, 0, nil)
			onfailure = orop
		}
		if newop == nil {
			newop = newAbsOp(opcode.Nop, 0, 0, 0, nil)
		}
		newop.op = op
		newop.p1 = reg1
		newop.p2 = reg2
		newop.p4 = opcode.Payload{Validity: 0}
		newop.opptr = onfailure
		appendOp(head, newop)

		if cond.And != nil {
			if _, err := c.structureCond(cond.And, head, onsuccess, onfailure, nil); err != nil {
				return nil, err
			}
		}
		if cond.Or != nil {
			if _, err := c.structureCond(cond.Or, head, onsuccess, onfailure, orop); err != nil {
				return nil, err
			}
		}
	}

	return newop, nil
}

// Pass 2: build the statement's abstract op structure, wiring
// condition jumps and resolving result-column expressions to
// registers, then compact the output columns' registers to the end
// of the register file, contiguous and in result order, so the
// interpreter can address them as one block.
func (c *compiler) structurePass(sel *ast.Select) (*absOp, error) {
	var head *absOp

	appendOp(&head, newAbsOp(opcode.Table, sel.TableID, 0, 0, nil))

	for i := range sel.ResultCols {
		rc := &sel.ResultCols[i]
		op := newAbsOp(opcode.ResultColumn, int(rc.Expr.Type), 0, 0, nil)
		op.p4 = opcode.Payload{Name: rc.Name}
		appendOp(&head, op)
	}

	result := newAbsOp(opcode.Result, 0, 0, 0, nil)
	converge := newAbsOp(opcode.Converge, 0, 0, 0, nil)
	appendOp(&head, newAbsOp(opcode.Parallel, 0, 0, 0, converge))

	if sel.Conditions != nil {
		stub := newAbsOp(opcode.Nop, 0, 0, 0, nil)
		if _, err := c.structureCond(sel.Conditions, &head, stub, result, nil); err != nil {
			return nil, err
		}
		appendOp(&head, newAbsOp(opcode.Invalid, 0, 0, 0, nil))
		appendOp(&head, stub)
	}

	outputRegs := make([]int, len(sel.ResultCols))
	for i := range sel.ResultCols {
		reg, err := c.structureExpr(&head, &sel.ResultCols[i].Expr)
		if err != nil {
			return nil, err
		}
		outputRegs[i] = reg
	}

	c.regIndex()

	for _, reg := range outputRegs {
		back := len(c.regs) - 1
		if c.regs[reg].index == back {
			continue
		}
		oldIndex := c.regs[reg].index
		c.regs[reg].index = back
		for j := range c.regs {
			if j != reg && c.regs[j].index > oldIndex {
				c.regs[j].index--
			}
		}
	}

	result.p1 = outputRegs[0]
	result.p2 = len(sel.ResultCols)
	appendOp(&head, result)
	appendOp(&head, converge)

	appendOp(&head, newAbsOp(opcode.Finish, 0, 0, 0, nil))

	return head, nil
}

// Pass 3: assign a final address to every op. A Nop shares its
// address with the next real op, since it exists only as a jump
// landmark and is dropped before emission.
func opPlacePass(head *absOp) {
	i := 0
	for a := head; a != nil; a = a.next {
		a.index = i
		if a.op != opcode.Nop {
			i++
		}
	}
}

// Pass 4: resolve register table indices and opptr jump references
// into final addresses.
func registerPass(head *absOp, regs []regEntry) error {
	for a := head; a != nil; a = a.next {
		switch a.op {
		case opcode.Parallel:
			a.p3 = a.opptr.index + 1
		case opcode.Integer, opcode.Column, opcode.Rowid, opcode.Result, opcode.Float:
			a.p1 = regs[a.p1].index
		case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div:
			a.p1 = regs[a.p1].index
			a.p2 = regs[a.p2].index
			a.p3 = regs[a.p3].index
		case opcode.Eq, opcode.Neq, opcode.Lt, opcode.Le, opcode.Gt, opcode.Ge:
			a.p1 = regs[a.p1].index
			a.p2 = regs[a.p2].index
			a.p3 = a.opptr.index
		case opcode.Table, opcode.Invalid, opcode.ResultColumn, opcode.Converge, opcode.Finish, opcode.Nop:
			// no register or jump to resolve
		default:
			return engineerr.New(engineerr.CompileError, "compiler.registerPass", nil)
		}
	}
	return nil
}

// Pass 5: emit the final, bounded instruction list, dropping the Nop
// landmarks used only to thread jumps.
func outputPass(head *absOp) opcode.Program {
	var ops []opcode.Instruction
	for a := head; a != nil; a = a.next {
		if a.op == opcode.Nop {
			continue
		}
		ops = append(ops, opcode.Instruction{Op: a.op, P1: a.p1, P2: a.p2, P3: a.p3, P4: a.p4})
	}
	return opcode.Program{Ops: ops}
}

// Compile lowers a parsed SELECT statement against cat's current
// schema into a bounded program, enforcing cfg's op-count and
// register-count ceilings.
func Compile(cfg tdconfig.Config, cat *catalog.Catalog, reg *metrics.Registry, sel *ast.Select) (opcode.Program, error) {
	if len(sel.ResultCols) == 0 {
		return opcode.Program{}, engineerr.New(engineerr.CompileError, "compiler.Compile", fmt.Errorf("select has no result columns"))
	}

	for i := range sel.ResultCols {
		if err := columnPass(cat, sel.TableID, &sel.ResultCols[i].Expr); err != nil {
			return opcode.Program{}, err
		}
	}
	if sel.Conditions != nil {
		if err := columnPassCond(cat, sel.TableID, sel.Conditions); err != nil {
			return opcode.Program{}, err
		}
	}

	for i := range sel.ResultCols {
		if err := resolveOpsPass(&sel.ResultCols[i].Expr); err != nil {
			return opcode.Program{}, err
		}
	}
	if sel.Conditions != nil {
		if err := resolveOpsPassCond(sel.Conditions); err != nil {
			return opcode.Program{}, err
		}
	}

	c := &compiler{}
	head, err := c.structurePass(sel)
	if err != nil {
		return opcode.Program{}, err
	}

	opPlacePass(head)
	if err := registerPass(head, c.regs); err != nil {
		return opcode.Program{}, err
	}
	prog := outputPass(head)

	if len(prog.Ops) > cfg.MaxOps {
		return opcode.Program{}, engineerr.New(engineerr.CompileError, "compiler.Compile",
			fmt.Errorf("program has %d ops, exceeds limit of %d", len(prog.Ops), cfg.MaxOps))
	}
	if len(c.regs) > cfg.Regs {
		return opcode.Program{}, engineerr.New(engineerr.CompileError, "compiler.Compile",
			fmt.Errorf("program uses %d registers, exceeds limit of %d", len(c.regs), cfg.Regs))
	}

	reg.Compiled()
	return prog, nil
}
