// Package engine composes the tablet file, slot cache, catalog,
// compiler and interpreter into the single facade an external driver
// talks to: the Open/Create/Close/CreateTable/AddColumn/Insert/
// NumRows/Execute contract of spec.md §6. Everything below this
// package is free to evolve independently; this is the one surface a
// caller outside the engine needs to know about.
package engine

import (
	"log"

	"tabletdb.dev/tabletdb/pkg/ast"
	"tabletdb.dev/tabletdb/pkg/catalog"
	"tabletdb.dev/tabletdb/pkg/compiler"
	"tabletdb.dev/tabletdb/pkg/dbfile"
	"tabletdb.dev/tabletdb/pkg/exec"
	"tabletdb.dev/tabletdb/pkg/exec/parallelexec"
	"tabletdb.dev/tabletdb/pkg/metrics"
	"tabletdb.dev/tabletdb/pkg/opcode"
	"tabletdb.dev/tabletdb/pkg/reader"
	"tabletdb.dev/tabletdb/pkg/slotcache"
	"tabletdb.dev/tabletdb/pkg/tablet"
	"tabletdb.dev/tabletdb/pkg/tdconfig"

	"github.com/prometheus/client_golang/prometheus"
)

// runner is the common surface of pkg/exec.Executor and
// pkg/exec/parallelexec.Executor: the engine only ever needs to hand a
// compiled program to one of them and get back its result tablet ids.
type runner interface {
	Run(vctx *opcode.Context) ([]int, error)
}

// Engine is an open tablet database: a file, the bounded cache in
// front of it, the table catalog, and the executor that runs compiled
// programs against it.
type Engine struct {
	cfg   tdconfig.Config
	db    *dbfile.Database
	cache *slotcache.Cache
	cat   *catalog.Catalog
	exec  runner
	reg   *metrics.Registry
}

// Option configures an Engine at open/create time.
type Option func(*options)

type options struct {
	cfg        tdconfig.Config
	registerer prometheus.Registerer
	workers    int
}

// WithConfig overrides the default tunables (spec.md §6).
func WithConfig(cfg tdconfig.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithPrometheusRegisterer attaches the engine's metrics to reg
// instead of leaving them unregistered (the default, so opening
// several engines in one process or in tests never collides on metric
// names).
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithWorkers switches the engine onto the alternative multi-threaded
// execution mode of spec.md §5, sizing its worker pool at workers
// goroutines; workers <= 0 picks runtime.GOMAXPROCS(0). Omitting this
// option keeps the default single-threaded cooperative core.
func WithWorkers(workers int) Option {
	if workers < 0 {
		workers = 0
	}
	return func(o *options) { o.workers = workers }
}

func resolveOptions(opts []Option) options {
	o := options{cfg: tdconfig.Default(), workers: -1}
	for _, f := range opts {
		f(&o)
	}
	return o
}

func build(db *dbfile.Database, o options) *Engine {
	reg := metrics.NewRegistry(o.registerer)
	cache := slotcache.New(o.cfg.NSlots, db, slotcache.WithMetrics(reg))
	cat := catalog.New(o.cfg, db, cache)
	base := exec.New(o.cfg, cat, cache, reg)

	var r runner = base
	if o.workers >= 0 {
		r = parallelexec.New(base, o.workers)
	}

	return &Engine{
		cfg:   o.cfg,
		db:    db,
		cache: cache,
		cat:   cat,
		exec:  r,
		reg:   reg,
	}
}

// Create makes a brand new database file at path and opens it.
func Create(path string, opts ...Option) (*Engine, error) {
	o := resolveOptions(opts)
	db, err := dbfile.Create(path, o.cfg)
	if err != nil {
		return nil, err
	}
	return build(db, o), nil
}

// Open opens an existing database file written by a prior clean Close.
func Open(path string, opts ...Option) (*Engine, error) {
	o := resolveOptions(opts)
	db, err := dbfile.Open(path, o.cfg)
	if err != nil {
		return nil, err
	}
	return build(db, o), nil
}

// Close flushes every resident tablet to disk and writes the file's
// header and meta index. It must be the last call made against e.
func (e *Engine) Close() error {
	flushErr := e.cache.Flush()
	if flushErr != nil {
		log.Println("engine: flushing slot cache:", flushErr)
	}
	if err := e.db.Close(); err != nil {
		return err
	}
	return flushErr
}

// CreateTable registers a new table with the given primary-key type.
func (e *Engine) CreateTable(name string, keyType tablet.Type) (int, error) {
	return e.cat.CreateTable(name, keyType)
}

// AddColumn appends a fixed-width column to every tablet of an
// existing table's chain.
func (e *Engine) AddColumn(tableID int, name string, typ tablet.Type) error {
	return e.cat.AddColumn(tableID, name, typ)
}

// Insert appends one row to a table, spilling onto a new tail tablet
// transparently if the current one is full. data must hold every
// fixed column's bytes back to back, in column-declaration order.
func (e *Engine) Insert(tableID int, key, data []byte) error {
	return e.cat.Insert(tableID, key, data)
}

// NumRows sums the row count across a table's entire tablet chain.
func (e *Engine) NumRows(tableID int) (int, error) {
	return e.cat.NumRows(tableID)
}

// TableID resolves a table name to its catalog id.
func (e *Engine) TableID(name string) (int, error) {
	return e.cat.GetID(name)
}

// Result is a compiled, executed query: its output schema and a
// reader positioned at the first row of its result chain. Release
// must be called once the caller is done reading it, whether or not
// every row was consumed.
type Result struct {
	*reader.Reader
	vctx *opcode.Context
}

// Execute compiles sel against the engine's current catalog and runs
// it to completion, returning a Result the caller can read rows from.
// A query that matches zero rows still returns a valid Result whose
// CountRemaining is zero.
func (e *Engine) Execute(sel *ast.Select) (*Result, error) {
	prog, err := compiler.Compile(e.cfg, e.cat, e.reg, sel)
	if err != nil {
		return nil, err
	}

	vctx := opcode.New(prog)
	if _, err := e.exec.Run(vctx); err != nil {
		return nil, err
	}

	rd, err := reader.Init(e.cache, vctx)
	if err != nil {
		return nil, err
	}
	return &Result{Reader: rd, vctx: vctx}, nil
}

// Release frees every result tablet r's query produced: it unpins
// whichever tablet the reader is still positioned in, then removes
// every tablet of the result chain from the slot cache and the disk
// meta index, matching the "cleanup of the VM removes every result
// tablet id" contract of spec.md §6.
func (e *Engine) Release(r *Result) error {
	if err := r.Free(); err != nil {
		return err
	}
	for _, id := range r.vctx.ResultIDs() {
		e.cache.Remove(id)
		e.db.FreeTablet(id)
	}
	return nil
}
