// Package parallelexec implements the optional multi-threaded
// execution mode of spec.md §5: several goroutines sharing one data
// tablet chain and one result tablet chain, claiming row slices under
// a cursor mutex and serializing Result emission through the same
// pkg/exec.ResultCell the single-threaded driver uses internally.
// Nothing here reimplements the opcode dispatch loop; it is the same
// pkg/exec.Executor.RunBlock, called from several goroutines instead
// of one.
package parallelexec

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/exec"
	"tabletdb.dev/tabletdb/pkg/opcode"
	"tabletdb.dev/tabletdb/pkg/tablet"
)

// Executor wraps an *exec.Executor, farming each Parallel/Converge
// region out across a fixed worker pool instead of running it on the
// caller's own goroutine. Everything outside a Parallel region (table
// open, result column declaration, Finish cleanup) behaves exactly
// like the single-threaded driver, since the spec's alternative
// concurrency mode only touches the row-block loop.
type Executor struct {
	inner   *exec.Executor
	workers int
}

// New wraps inner with a pool of workers goroutines. workers <= 0
// defaults to runtime.GOMAXPROCS(0).
func New(inner *exec.Executor, workers int) *Executor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Executor{inner: inner, workers: workers}
}

// Run executes prog, dispatching every Parallel/Converge region across
// the worker pool. It returns the ids of every result tablet produced,
// in chain order, exactly like exec.Executor.Run.
func (e *Executor) Run(vctx *opcode.Context) ([]int, error) {
	prog := vctx.Program.Ops
	if len(prog) == 0 {
		return nil, engineerr.New(engineerr.InvalidArgument, "parallelexec.Run", nil)
	}

	vctx.PC = 0
	vctx.TableHandles = nil
	vctx.HeadResult = nil
	vctx.TailResult = nil

	res, err := e.inner.Catalog().NewResultTablet()
	if err != nil {
		return nil, engineerr.New(engineerr.Io, "parallelexec.Run", err)
	}
	vctx.AddResult(res.ID)

	var tab *tablet.Tablet

	for {
		if vctx.PC < 0 || vctx.PC >= len(prog) {
			return nil, engineerr.New(engineerr.Corruption, "parallelexec.Run", nil)
		}
		in := prog[vctx.PC]

		switch in.Op {
		case opcode.Table:
			tableID := in.P1
			vctx.TableHandles = append(vctx.TableHandles, tableID)
			firstID, err := e.inner.Catalog().FirstTablet(tableID)
			if err != nil {
				return nil, err
			}
			tab, err = e.inner.Cache().Load(firstID)
			if err != nil {
				return nil, err
			}
			vctx.PC++

		case opcode.ResultColumn:
			if err := res.AddColumn(e.inner.Config(), in.P4.Name, tablet.Type(in.P1)); err != nil {
				return nil, err
			}
			vctx.PC++

		case opcode.Parallel:
			if err := res.AddMaxRows(e.inner.Config()); err != nil {
				return nil, err
			}
			vctx.PC++
			newTab, newRes, err := e.runParallelRegion(vctx, vctx.PC, tab, res)
			if err != nil {
				return nil, err
			}
			tab, res = newTab, newRes
			vctx.PC = in.P3

		case opcode.Finish:
			if tab != nil {
				if err := e.inner.Cache().Unlock(tab.ID); err != nil {
					return nil, err
				}
			}
			if err := e.inner.Cache().Unlock(res.ID); err != nil {
				return nil, err
			}
			return vctx.ResultIDs(), nil

		default:
			return nil, engineerr.New(engineerr.Corruption, "parallelexec.Run", nil)
		}
	}
}

// tabCursor is the tab_lock side of spec.md §5's shared
// {data_tablet_ptr, data_row_cursor} pair: the single piece of mutable
// state every worker contends on to claim its next row slice.
type tabCursor struct {
	mu  sync.Mutex
	tab *tablet.Tablet
	row int
}

// claimSlice atomically advances cur past up to one block's worth of
// rows, walking onto the chain's next tablet (pinning it before
// releasing the one before it) whenever the current one runs out. It
// returns ok=false once the chain's last tablet is exhausted.
func (e *Executor) claimSlice(cur *tabCursor) (tab *tablet.Tablet, row, simdRows int, ok bool, err error) {
	cur.mu.Lock()
	defer cur.mu.Unlock()

	block := e.inner.Config().Block
	for cur.row >= cur.tab.Rows {
		if cur.tab.LastTablet {
			return nil, 0, 0, false, nil
		}
		next, err := e.inner.Cache().LoadNext(cur.tab.ID, cur.tab.Next)
		if err != nil {
			return nil, 0, 0, false, err
		}
		cur.tab = next
		cur.row = 0
	}

	simdRows = block
	if cur.tab.Rows-cur.row < simdRows {
		simdRows = cur.tab.Rows - cur.row
	}
	tab, row = cur.tab, cur.row
	cur.row += simdRows
	return tab, row, simdRows, true, nil
}

// worker claims slices from cur until the chain is exhausted, running
// each through the shared opcode program with its own register file
// (registers are never shared across workers) and emitting Result rows
// through the shared cell.
func (e *Executor) worker(vctx *opcode.Context, startPC int, cur *tabCursor, cell *exec.ResultCell) error {
	regs := exec.NewRegisterFile(e.inner.Config())
	for {
		tab, row, simdRows, ok, err := e.claimSlice(cur)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := e.inner.RunBlock(vctx, startPC, tab, row, simdRows, regs, cell); err != nil {
			return err
		}
	}
}

// runParallelRegion is the multi-threaded counterpart of pkg/exec's
// runDataParallel: it spins up the worker pool, lets every worker
// drain the data chain via tabCursor and res_lock-protected Result
// emission via cell, and returns the chain's last data tablet and the
// current result tablet once every worker has drained.
func (e *Executor) runParallelRegion(vctx *opcode.Context, startPC int, tab, res *tablet.Tablet) (*tablet.Tablet, *tablet.Tablet, error) {
	cur := &tabCursor{tab: tab, row: 0}
	cell := exec.NewResultCell(res)

	var g errgroup.Group
	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			return e.worker(vctx, startPC, cur, cell)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return cur.tab, cell.Res, nil
}
