// Package metrics exposes Prometheus counters and gauges for the
// slot cache and the interpreter, so the behavior of a running engine
// (cache pressure, compile activity, rows emitted) is observable the
// way a production storage engine's would be.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every metric the engine exports. A nil *Registry is
// valid and every method on it is then a no-op, so callers that don't
// want metrics don't have to special-case it.
type Registry struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	AllPinnedFault prometheus.Counter
	CompiledPrograms prometheus.Counter
	RowsEmitted    prometheus.Counter
}

// NewRegistry builds a Registry and registers its metrics with reg.
// Passing prometheus.NewRegistry() keeps tests isolated from the
// global default registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletdb_slotcache_hits_total",
			Help: "Tablet loads served from a resident slot.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletdb_slotcache_misses_total",
			Help: "Tablet loads that required a disk read.",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletdb_slotcache_evictions_total",
			Help: "Resident tablets written back and evicted to make room.",
		}),
		AllPinnedFault: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletdb_slotcache_all_pinned_total",
			Help: "Loads that failed because every slot was pinned.",
		}),
		CompiledPrograms: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletdb_compiler_programs_total",
			Help: "SELECT statements successfully compiled to opcodes.",
		}),
		RowsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletdb_exec_rows_emitted_total",
			Help: "Result rows written by the interpreter's Result opcode.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.CacheHits, r.CacheMisses, r.CacheEvictions,
			r.AllPinnedFault, r.CompiledPrograms, r.RowsEmitted)
	}
	return r
}

// Hit records a slot cache hit.
func (r *Registry) Hit() {
	if r != nil {
		r.CacheHits.Inc()
	}
}

// Miss records a slot cache miss that required a disk read.
func (r *Registry) Miss() {
	if r != nil {
		r.CacheMisses.Inc()
	}
}

// Eviction records a resident tablet being written back and evicted.
func (r *Registry) Eviction() {
	if r != nil {
		r.CacheEvictions.Inc()
	}
}

// AllPinned records a load failing because every slot was pinned.
func (r *Registry) AllPinned() {
	if r != nil {
		r.AllPinnedFault.Inc()
	}
}

// Compiled records a SELECT statement successfully compiled.
func (r *Registry) Compiled() {
	if r != nil {
		r.CompiledPrograms.Inc()
	}
}

// ObserveRowsEmitted records n result rows written by the interpreter.
func (r *Registry) ObserveRowsEmitted(n int) {
	if r != nil {
		r.RowsEmitted.Add(float64(n))
	}
}
