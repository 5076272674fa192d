// Package exec implements the single-threaded row-block interpreter: the
// top-level driver that opens a compiled program's source table and a
// fresh result tablet, and the SIMD-style inner loop that runs the
// opcodes between a program's Parallel and Converge over the source
// table's rows in fixed-size blocks, scattering matching rows into the
// result tablet chain.
//
// pkg/exec/parallelexec offers an alternative, multi-threaded version of
// the same inner loop for callers who want it; this package never uses
// goroutines itself.
//
// Eq and Neq compare Float and Double registers with Go's == and !=,
// with no tolerance: values that differ only by rounding compare
// unequal, and NaN never equals anything, itself included.
package exec

import (
	"encoding/binary"
	"math"
	"sync"

	"tabletdb.dev/tabletdb/pkg/catalog"
	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/metrics"
	"tabletdb.dev/tabletdb/pkg/opcode"
	"tabletdb.dev/tabletdb/pkg/slotcache"
	"tabletdb.dev/tabletdb/pkg/tablet"
	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

// Executor runs compiled programs against a catalog's tables, reading
// and writing tablets through a shared slot cache.
type Executor struct {
	cfg     tdconfig.Config
	cat     *catalog.Catalog
	cache   *slotcache.Cache
	metrics *metrics.Registry
}

// New builds an Executor. reg may be nil to disable metrics.
func New(cfg tdconfig.Config, cat *catalog.Catalog, cache *slotcache.Cache, reg *metrics.Registry) *Executor {
	return &Executor{cfg: cfg, cat: cat, cache: cache, metrics: reg}
}

// Run executes prog from scratch, driving vctx's program counter and
// result chain, and returns the ids of every result tablet produced,
// in chain order. The caller is responsible for eventually freeing
// those tablets from the cache and disk index once a reader is done
// with them.
func (e *Executor) Run(vctx *opcode.Context) ([]int, error) {
	prog := vctx.Program.Ops
	if len(prog) == 0 {
		return nil, engineerr.New(engineerr.InvalidArgument, "exec.Run", nil)
	}

	vctx.PC = 0
	vctx.TableHandles = nil
	vctx.HeadResult = nil
	vctx.TailResult = nil

	res, err := e.cat.NewResultTablet()
	if err != nil {
		return nil, engineerr.New(engineerr.Io, "exec.Run", err)
	}
	vctx.AddResult(res.ID)

	var tab *tablet.Tablet

	for {
		if vctx.PC < 0 || vctx.PC >= len(prog) {
			return nil, engineerr.New(engineerr.Corruption, "exec.Run", nil)
		}
		in := prog[vctx.PC]

		switch in.Op {
		case opcode.Table:
			tableID := in.P1
			vctx.TableHandles = append(vctx.TableHandles, tableID)
			firstID, err := e.cat.FirstTablet(tableID)
			if err != nil {
				return nil, err
			}
			tab, err = e.cache.Load(firstID)
			if err != nil {
				return nil, err
			}
			vctx.PC++

		case opcode.ResultColumn:
			if err := res.AddColumn(e.cfg, in.P4.Name, tablet.Type(in.P1)); err != nil {
				return nil, err
			}
			vctx.PC++

		case opcode.Parallel:
			if err := res.AddMaxRows(e.cfg); err != nil {
				return nil, err
			}
			vctx.PC++
			newTab, newRes, err := e.runDataParallel(vctx, vctx.PC, tab, res)
			if err != nil {
				return nil, err
			}
			tab, res = newTab, newRes
			vctx.PC = in.P3

		case opcode.Finish:
			if tab != nil {
				if err := e.cache.Unlock(tab.ID); err != nil {
					return nil, err
				}
			}
			if err := e.cache.Unlock(res.ID); err != nil {
				return nil, err
			}
			return vctx.ResultIDs(), nil

		default:
			return nil, engineerr.New(engineerr.Corruption, "exec.Run", nil)
		}
	}
}

// runDataParallel walks tab's chain to its end, running the block
// interpreter over every row of every tablet, and returns the final
// data and result tablets once the chain (and therefore the
// Parallel/Converge region) is exhausted.
func (e *Executor) runDataParallel(vctx *opcode.Context, startPC int, tab, res *tablet.Tablet) (*tablet.Tablet, *tablet.Tablet, error) {
	regs := newRegisterFile(e.cfg.Regs, e.cfg.Block)
	cell := &ResultCell{Res: res}

	for {
		row := 0
		for row < tab.Rows {
			simdRows := e.cfg.Block
			if tab.Rows-row < simdRows {
				simdRows = tab.Rows - row
			}
			if err := e.runBlock(vctx, startPC, tab, row, simdRows, regs, cell); err != nil {
				return nil, nil, err
			}
			row += e.cfg.Block
		}

		if tab.LastTablet {
			return tab, cell.Res, nil
		}

		next, err := e.cache.LoadNext(tab.ID, tab.Next)
		if err != nil {
			return nil, nil, err
		}
		tab = next
	}
}

// ResultCell is a mutex-guarded handle on the program's current result
// tablet. The single-threaded driver above wraps its own local
// variable in one for the duration of a Parallel/Converge region;
// pkg/exec/parallelexec shares a single cell across every worker so
// that each Result opcode's emission reads and writes the one
// authoritative tablet instead of a possibly stale snapshot, correctly
// handling rollover to a fresh tail tablet no matter which worker
// triggers it.
type ResultCell struct {
	mu  sync.Mutex
	Res *tablet.Tablet
}

// NewResultCell wraps res for sharing across workers.
func NewResultCell(res *tablet.Tablet) *ResultCell {
	return &ResultCell{Res: res}
}

// runBlock executes every opcode between startPC and the first
// Converge once, for up to simdRows rows of tab starting at row. Every
// lane begins live with its row program counter at startPC; an opcode
// only touches lanes whose row counter has caught up with the shared
// pc, which always advances by exactly one opcode at a time regardless
// of any per-lane jump.
//
// Every opcode but Result touches nothing outside this call's own
// rowPC/valid slices and regs; only Result emission reads or writes
// cell, under its own lock, so pkg/exec/parallelexec's workers can run
// the bulk of a block concurrently and serialize only on the shared
// result chain, per spec.md §5's two-mutex design. The single-threaded
// path above hands runDataParallel's own uncontended cell to every
// call and pays only an uncontended lock per Result op.
func (e *Executor) runBlock(vctx *opcode.Context, startPC int, tab *tablet.Tablet, row, simdRows int, regs *registerFile, cell *ResultCell) error {
	block := e.cfg.Block
	rowPC := make([]int, block)
	valid := make([]bool, block)
	for i := 0; i < simdRows; i++ {
		rowPC[i] = startPC
		valid[i] = true
	}

	for pc := startPC; ; pc++ {
		in := vctx.Program.Ops[pc]

		switch in.Op {
		case opcode.Converge:
			return nil

		case opcode.Integer:
			regs.set(in.P1, tablet.Int, tablet.Sizeof(tablet.Int))
			for i := 0; i < simdRows; i++ {
				if rowPC[i] == pc {
					encodeInt(regs.lane(in.P1, i), int32(in.P2))
					rowPC[i]++
				}
			}

		case opcode.Float:
			regs.set(in.P1, tablet.Float, tablet.Sizeof(tablet.Float))
			for i := 0; i < simdRows; i++ {
				if rowPC[i] == pc {
					encodeFloat(regs.lane(in.P1, i), in.P4.Float)
					rowPC[i]++
				}
			}

		case opcode.Invalid:
			for i := 0; i < simdRows; i++ {
				if rowPC[i] == pc {
					valid[i] = false
					rowPC[i]++
				}
			}

		case opcode.Column:
			typ := tab.FixedType[in.P2]
			stride := tab.FixedStride[in.P2]
			dst := regs.set(in.P1, typ, stride)
			off := tab.FixedBlock + tab.FixedOffset[in.P2] + stride*row
			copy(dst[:stride*simdRows], tab.Data[off:off+stride*simdRows])
			for i := 0; i < simdRows; i++ {
				if rowPC[i] == pc {
					rowPC[i]++
				}
			}

		case opcode.Rowid:
			typ := tab.KeyType
			stride := tablet.Sizeof(typ)
			dst := regs.set(in.P1, typ, stride)
			off := tab.KeyBlock + stride*row
			copy(dst[:stride*simdRows], tab.Data[off:off+stride*simdRows])
			for i := 0; i < simdRows; i++ {
				if rowPC[i] == pc {
					rowPC[i]++
				}
			}

		case opcode.Eq, opcode.Neq, opcode.Lt, opcode.Le, opcode.Gt, opcode.Ge:
			if err := regcmp(in, pc, rowPC, valid, regs, simdRows); err != nil {
				return err
			}

		case opcode.And, opcode.Or:
			if err := logicalOp(in, pc, rowPC, valid, regs, simdRows); err != nil {
				return err
			}

		case opcode.Not:
			notOp(in, pc, rowPC, valid, regs, simdRows)

		case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div:
			if err := mathop(in, pc, rowPC, regs, simdRows); err != nil {
				return err
			}

		case opcode.Cast:
			if err := castOp(in, pc, rowPC, regs, simdRows); err != nil {
				return err
			}

		case opcode.Result:
			if err := e.resultOp(vctx, in, rowPC, valid, regs, simdRows, cell); err != nil {
				return err
			}
			for i := 0; i < simdRows; i++ {
				rowPC[i]++
			}

		default:
			return engineerr.New(engineerr.Corruption, "exec.runBlock", nil)
		}
	}
}

// resultOp implements the Result opcode: it counts live lanes, rolls
// the result tablet over to a fresh tail if the block might not fit
// within resultMargin rows of the end, then scatters each output
// register's live lanes into the result tablet's matching column,
// collapsing runs of contiguous live lanes into single copies. It
// holds cell's lock for the whole operation, since rollover and
// emission both mutate the tablet cell.Res points at.
func (e *Executor) resultOp(vctx *opcode.Context, in opcode.Instruction, rowPC []int, valid []bool, regs *registerFile, simdRows int, cell *ResultCell) error {
	cell.mu.Lock()
	defer cell.mu.Unlock()
	res := cell.Res

	totalValid := 0
	for i := 0; i < simdRows; i++ {
		if valid[i] {
			totalValid++
		}
	}

	if res.Rows+simdRows >= res.PossibleRows-e.cfg.ResultMargin {
		tail, err := e.cat.NewResultTail(res, res.PossibleRows)
		if err != nil {
			return err
		}
		if err := e.cache.Unlock(res.ID); err != nil {
			return err
		}
		vctx.AddResult(tail.ID)
		res = tail
		cell.Res = res
	}

	writeStart := res.Rows
	res.Rows += totalValid

	p1, p2 := in.P1, in.P2
	for j := p1; j < p1+p2; j++ {
		stride := regs.stride[j]
		writeRow := writeStart
		blockStart := 0
		blockSize := 0

		for i := 0; i < simdRows; i++ {
			if valid[i] {
				if blockSize == 0 {
					blockStart = i
				}
				blockSize++
				continue
			}
			if blockSize > 0 {
				writeResultRun(res, j-p1, stride, writeRow, regs.data[j], blockStart, blockSize)
				writeRow += blockSize
				blockSize = 0
			}
		}
		writeResultRun(res, j-p1, stride, writeRow, regs.data[j], blockStart, blockSize)
	}

	e.metrics.ObserveRowsEmitted(totalValid)
	return nil
}

func writeResultRun(res *tablet.Tablet, col, stride, writeRow int, reg []byte, blockStart, blockSize int) {
	if blockSize == 0 {
		return
	}
	dstOff := res.FixedBlock + res.FixedOffset[col] + stride*writeRow
	srcOff := blockStart * stride
	copy(res.Data[dstOff:dstOff+blockSize*stride], reg[srcOff:srcOff+blockSize*stride])
}

// RegisterFile is the opaque per-worker SIMD register bank pkg/exec/
// parallelexec needs one of per goroutine (registers are never shared
// across workers, only the result chain is).
type RegisterFile = registerFile

// NewRegisterFile builds a fresh RegisterFile sized for cfg's register
// count and block width.
func NewRegisterFile(cfg tdconfig.Config) *RegisterFile {
	return newRegisterFile(cfg.Regs, cfg.Block)
}

// RunBlock runs one block's worth of opcodes, from startPC through its
// Converge, over up to simdRows rows of tab starting at row, against
// the caller's own RegisterFile. cell is shared across every worker
// operating on the same Parallel/Converge region, so that independent
// workers processing independent tablets can share one result chain
// safely: only the block's Result opcode, if reached, ever touches it,
// and only while holding its lock. It is the primitive
// pkg/exec/parallelexec composes into the optional multi-threaded mode
// of spec.md §5.
func (e *Executor) RunBlock(vctx *opcode.Context, startPC int, tab *tablet.Tablet, row, simdRows int, regs *RegisterFile, cell *ResultCell) error {
	return e.runBlock(vctx, startPC, tab, row, simdRows, regs, cell)
}

// Config exposes the executor's tunables, so pkg/exec/parallelexec can
// size its own block/row bookkeeping the same way.
func (e *Executor) Config() tdconfig.Config { return e.cfg }

// Cache exposes the executor's slot cache, so pkg/exec/parallelexec
// can walk a data tablet chain with the same LoadNext idiom the
// single-threaded driver uses.
func (e *Executor) Cache() *slotcache.Cache { return e.cache }

// Catalog exposes the executor's catalog, so pkg/exec/parallelexec can
// allocate its own result tablets and tails the way resultOp does.
func (e *Executor) Catalog() *catalog.Catalog { return e.cat }

// registerFile is the SIMD register bank: each register is a typed,
// block-wide byte buffer, laid out exactly like a tablet column strip
// so that Column and Rowid can load a whole block with a single copy.
type registerFile struct {
	typ    []tablet.Type
	stride []int
	data   [][]byte
	block  int
}

func newRegisterFile(nregs, block int) *registerFile {
	return &registerFile{
		typ:    make([]tablet.Type, nregs),
		stride: make([]int, nregs),
		data:   make([][]byte, nregs),
		block:  block,
	}
}

// set retypes a register to typ/stride, growing its buffer if needed,
// and returns it.
func (r *registerFile) set(reg int, typ tablet.Type, stride int) []byte {
	r.typ[reg] = typ
	r.stride[reg] = stride
	need := stride * r.block
	if len(r.data[reg]) != need {
		r.data[reg] = make([]byte, need)
	}
	return r.data[reg]
}

// lane returns the bytes of register reg for lane i.
func (r *registerFile) lane(reg, i int) []byte {
	s := r.stride[reg]
	return r.data[reg][i*s : (i+1)*s]
}

// ordered is every register value type REGCMP and Not can compare or
// test for truthiness.
type ordered interface {
	~int32 | ~int64 | ~float32 | ~float64 | ~int8
}

func cmpOrdered[T ordered](a, b T, op opcode.Op) bool {
	switch op {
	case opcode.Eq:
		return a == b
	case opcode.Neq:
		return a != b
	case opcode.Lt:
		return a < b
	case opcode.Le:
		return a <= b
	case opcode.Gt:
		return a > b
	case opcode.Ge:
		return a >= b
	default:
		return false
	}
}

// regcmp implements Eq/Neq/Lt/Le/Gt/Ge: for every live lane at pc, it
// compares the two typed operand registers and, on a true result,
// conditionally narrows validity and jumps the lane's row counter to
// p3; otherwise it just advances the lane.
func regcmp(in opcode.Instruction, pc int, rowPC []int, valid []bool, regs *registerFile, simdRows int) error {
	p1, p2, p3 := in.P1, in.P2, in.P3
	if regs.typ[p1] != regs.typ[p2] {
		return engineerr.New(engineerr.InvalidArgument, "exec.regcmp", nil)
	}
	typ := regs.typ[p1]

	for i := 0; i < simdRows; i++ {
		if rowPC[i] != pc {
			continue
		}
		a, b := regs.lane(p1, i), regs.lane(p2, i)

		var x bool
		switch typ {
		case tablet.Int:
			x = cmpOrdered(decodeInt(a), decodeInt(b), in.Op)
		case tablet.Int64:
			x = cmpOrdered(decodeInt64(a), decodeInt64(b), in.Op)
		case tablet.Float:
			x = cmpOrdered(decodeFloat(a), decodeFloat(b), in.Op)
		case tablet.Double:
			x = cmpOrdered(decodeDouble(a), decodeDouble(b), in.Op)
		case tablet.Char:
			x = cmpOrdered(decodeChar(a), decodeChar(b), in.Op)
		default:
			return engineerr.New(engineerr.InvalidArgument, "exec.regcmp", nil)
		}

		if x {
			if valid[i] {
				valid[i] = in.P4.Validity != 0
			}
			rowPC[i] = p3
		} else {
			rowPC[i]++
		}
	}
	return nil
}

func truthy(typ tablet.Type, b []byte) bool {
	switch typ {
	case tablet.Int:
		return decodeInt(b) != 0
	case tablet.Int64:
		return decodeInt64(b) != 0
	case tablet.Float:
		return decodeFloat(b) != 0
	case tablet.Double:
		return decodeDouble(b) != 0
	case tablet.Char:
		return decodeChar(b) != 0
	default:
		return false
	}
}

// logicalOp implements And/Or with the same jump-and-narrow-validity
// shape as regcmp, but combining the truthiness of two registers
// instead of comparing their values.
func logicalOp(in opcode.Instruction, pc int, rowPC []int, valid []bool, regs *registerFile, simdRows int) error {
	p1, p2, p3 := in.P1, in.P2, in.P3
	if regs.typ[p1] != regs.typ[p2] {
		return engineerr.New(engineerr.InvalidArgument, "exec.logicalOp", nil)
	}
	typ := regs.typ[p1]

	for i := 0; i < simdRows; i++ {
		if rowPC[i] != pc {
			continue
		}
		a := truthy(typ, regs.lane(p1, i))
		b := truthy(typ, regs.lane(p2, i))

		var x bool
		if in.Op == opcode.And {
			x = a && b
		} else {
			x = a || b
		}

		if x {
			if valid[i] {
				valid[i] = in.P4.Validity != 0
			}
			rowPC[i] = p3
		} else {
			rowPC[i]++
		}
	}
	return nil
}

// notOp implements Not: a live lane jumps to p3 (narrowing validity)
// when its operand register is falsy, and otherwise just advances.
func notOp(in opcode.Instruction, pc int, rowPC []int, valid []bool, regs *registerFile, simdRows int) {
	p1, p3 := in.P1, in.P3
	typ := regs.typ[p1]

	for i := 0; i < simdRows; i++ {
		if rowPC[i] != pc {
			continue
		}
		if !truthy(typ, regs.lane(p1, i)) {
			if valid[i] {
				valid[i] = in.P4.Validity != 0
			}
			rowPC[i] = p3
		} else {
			rowPC[i]++
		}
	}
}

func arithInt32(a, b int32, op opcode.Op) (int32, error) {
	switch op {
	case opcode.Add:
		return a + b, nil
	case opcode.Sub:
		return a - b, nil
	case opcode.Mul:
		return a * b, nil
	case opcode.Div:
		if b == 0 {
			return 0, engineerr.New(engineerr.InvalidArgument, "exec.arithInt32", nil)
		}
		return a / b, nil
	default:
		return 0, engineerr.New(engineerr.Corruption, "exec.arithInt32", nil)
	}
}

func arithInt64(a, b int64, op opcode.Op) (int64, error) {
	switch op {
	case opcode.Add:
		return a + b, nil
	case opcode.Sub:
		return a - b, nil
	case opcode.Mul:
		return a * b, nil
	case opcode.Div:
		if b == 0 {
			return 0, engineerr.New(engineerr.InvalidArgument, "exec.arithInt64", nil)
		}
		return a / b, nil
	default:
		return 0, engineerr.New(engineerr.Corruption, "exec.arithInt64", nil)
	}
}

func arithFloat32(a, b float32, op opcode.Op) float32 {
	switch op {
	case opcode.Add:
		return a + b
	case opcode.Sub:
		return a - b
	case opcode.Mul:
		return a * b
	default:
		return a / b
	}
}

func arithFloat64(a, b float64, op opcode.Op) float64 {
	switch op {
	case opcode.Add:
		return a + b
	case opcode.Sub:
		return a - b
	case opcode.Mul:
		return a * b
	default:
		return a / b
	}
}

// mathop implements Add/Sub/Mul/Div: it propagates type and stride
// from the left-hand operand (p2) to the destination register, then
// applies the operator lane by lane for every lane at pc. Integer
// Add/Sub/Mul overflow wraps around silently. Integer
// division by zero is reported as an error rather than left to crash,
// the one place this departs from the interpreter it is modeled on.
func mathop(in opcode.Instruction, pc int, rowPC []int, regs *registerFile, simdRows int) error {
	p1, p2, p3 := in.P1, in.P2, in.P3
	if regs.typ[p2] != regs.typ[p3] {
		return engineerr.New(engineerr.InvalidArgument, "exec.mathop", nil)
	}
	typ := regs.typ[p2]
	stride := regs.stride[p2]
	regs.set(p1, typ, stride)

	for i := 0; i < simdRows; i++ {
		if rowPC[i] != pc {
			continue
		}
		a, b, dst := regs.lane(p2, i), regs.lane(p3, i), regs.lane(p1, i)

		switch typ {
		case tablet.Int:
			v, err := arithInt32(decodeInt(a), decodeInt(b), in.Op)
			if err != nil {
				return err
			}
			encodeInt(dst, v)
		case tablet.Int64:
			v, err := arithInt64(decodeInt64(a), decodeInt64(b), in.Op)
			if err != nil {
				return err
			}
			encodeInt64(dst, v)
		case tablet.Float:
			encodeFloat(dst, arithFloat32(decodeFloat(a), decodeFloat(b), in.Op))
		case tablet.Double:
			encodeDouble(dst, arithFloat64(decodeDouble(a), decodeDouble(b), in.Op))
		case tablet.Char:
			v, err := arithInt32(int32(decodeChar(a)), int32(decodeChar(b)), in.Op)
			if err != nil {
				return err
			}
			encodeChar(dst, int8(v))
		default:
			return engineerr.New(engineerr.InvalidArgument, "exec.mathop", nil)
		}
		rowPC[i]++
	}
	return nil
}

// castOp implements Cast: unlike every other opcode, a lane
// participates when its row counter has merely caught up to pc
// (row_pc <= pc), not only when it equals pc exactly, since a lane
// that jumped past a comparison earlier in the block still needs its
// register converted before later opcodes read it as the new type.
func castOp(in opcode.Instruction, pc int, rowPC []int, regs *registerFile, simdRows int) error {
	dstType := tablet.Type(in.P1)
	reg := in.P2
	srcType := regs.typ[reg]
	srcStride := regs.stride[reg]
	newStride := tablet.Sizeof(dstType)

	old := regs.data[reg]
	buf := make([]byte, newStride*regs.block)

	for i := 0; i < simdRows; i++ {
		if rowPC[i] > pc {
			continue
		}
		src := old[i*srcStride : i*srcStride+srcStride]
		dst := buf[i*newStride : i*newStride+newStride]
		if err := castValue(dstType, srcType, src, dst); err != nil {
			return err
		}
		rowPC[i]++
	}

	regs.data[reg] = buf
	regs.typ[reg] = dstType
	regs.stride[reg] = newStride
	return nil
}

func castValue(dstType, srcType tablet.Type, src, dst []byte) error {
	switch srcType {
	case tablet.Int:
		v := decodeInt(src)
		return storeAs(dstType, float64(v), int64(v), dst)
	case tablet.Int64:
		v := decodeInt64(src)
		return storeAs(dstType, float64(v), v, dst)
	case tablet.Float:
		v := decodeFloat(src)
		return storeAs(dstType, float64(v), int64(v), dst)
	case tablet.Double:
		v := decodeDouble(src)
		return storeAs(dstType, v, int64(v), dst)
	case tablet.Char:
		v := decodeChar(src)
		return storeAs(dstType, float64(v), int64(v), dst)
	default:
		return engineerr.New(engineerr.InvalidArgument, "exec.Cast", nil)
	}
}

func storeAs(dstType tablet.Type, f float64, n int64, dst []byte) error {
	switch dstType {
	case tablet.Int:
		encodeInt(dst, int32(n))
	case tablet.Int64:
		encodeInt64(dst, n)
	case tablet.Float:
		encodeFloat(dst, float32(f))
	case tablet.Double:
		encodeDouble(dst, f)
	case tablet.Char:
		encodeChar(dst, int8(n))
	default:
		return engineerr.New(engineerr.InvalidArgument, "exec.Cast", nil)
	}
	return nil
}

func decodeInt(b []byte) int32      { return int32(binary.LittleEndian.Uint32(b)) }
func encodeInt(b []byte, v int32)   { binary.LittleEndian.PutUint32(b, uint32(v)) }
func decodeInt64(b []byte) int64    { return int64(binary.LittleEndian.Uint64(b)) }
func encodeInt64(b []byte, v int64) { binary.LittleEndian.PutUint64(b, uint64(v)) }

func decodeFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
func encodeFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
func decodeDouble(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
func encodeDouble(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

func decodeChar(b []byte) int8    { return int8(b[0]) }
func encodeChar(b []byte, v int8) { b[0] = byte(v) }
