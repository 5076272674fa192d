// Package tdconfig holds the typed, validated tunables of the tablet
// engine, read from a jsonconfig.Obj the way the rest of this
// codebase's ancestry loads configuration.
package tdconfig

import (
	"encoding/json"
	"fmt"

	"tabletdb.dev/tabletdb/pkg/jsonconfig"
)

// Config holds every tunable of the tablet engine. Zero values are
// never valid configuration; use Default to get a populated Config
// and override individual fields.
type Config struct {
	// TabletSize is the fixed size in bytes of every tablet block.
	TabletSize int
	// InitialKeys is the number of key slots a freshly created
	// tablet reserves before any column is added.
	InitialKeys int
	// KeyIncrement is the number of rows Insert asks AddRows to add
	// when a table's write-cursor tablet is full (AddRows itself
	// rounds the request to a multiple of 16).
	KeyIncrement int
	// MaxColumns bounds the fixed columns a single tablet can carry.
	MaxColumns int
	// MaxColumnName bounds a column name's length in bytes.
	MaxColumnName int
	// MaxTables bounds how many named tables a database file holds.
	MaxTables int
	// MaxTableName bounds a table name's length in bytes.
	MaxTableName int
	// NSlots is the number of resident tablet buffers the slot
	// cache holds at once.
	NSlots int
	// Block is the row-block width the interpreter processes in
	// lockstep.
	Block int
	// MaxOps bounds the number of opcodes a compiled program may
	// contain.
	MaxOps int
	// Regs is the number of VM registers available to a compiled
	// program.
	Regs int
	// InfoSize is the initial number of entries in the on-disk
	// meta index.
	InfoSize int
	// InfoIncrement is the growth step for the meta index once it
	// fills.
	InfoIncrement int
	// ResultMargin is the safety margin, in rows, Result emission
	// keeps free in the current result tablet before rolling to a
	// new tail: a block that turns out to be entirely valid must
	// never overflow the tablet mid-emission.
	ResultMargin int
}

// Default returns the tunables used throughout the original engine:
// an 8MiB tablet, 256 initial keys, 64 resident slots, 64-row blocks,
// 16 registers, 32 ops, and a 16-entry meta index growing by 32.
func Default() Config {
	return Config{
		TabletSize:    8 * 1024 * 1024,
		InitialKeys:   256,
		KeyIncrement:  2048 * 128,
		MaxColumns:    16,
		MaxColumnName: 16,
		MaxTables:     16,
		MaxTableName:  32,
		NSlots:        64,
		Block:         64,
		MaxOps:        32,
		Regs:          16,
		InfoSize:      16,
		InfoIncrement: 32,
		ResultMargin:  300,
	}
}

// FromObj overlays the keys present in o onto the default Config,
// accumulating and returning any validation error o.Validate() finds
// (unknown keys, wrong-typed values).
func FromObj(o jsonconfig.Obj) (Config, error) {
	c := Default()
	c.TabletSize = o.OptionalInt("tabletSize", c.TabletSize)
	c.InitialKeys = o.OptionalInt("initialKeys", c.InitialKeys)
	c.KeyIncrement = o.OptionalInt("keyIncrement", c.KeyIncrement)
	c.MaxColumns = o.OptionalInt("maxColumns", c.MaxColumns)
	c.MaxColumnName = o.OptionalInt("maxColumnName", c.MaxColumnName)
	c.MaxTables = o.OptionalInt("maxTables", c.MaxTables)
	c.MaxTableName = o.OptionalInt("maxTableName", c.MaxTableName)
	c.NSlots = o.OptionalInt("nSlots", c.NSlots)
	c.Block = o.OptionalInt("block", c.Block)
	c.MaxOps = o.OptionalInt("maxOps", c.MaxOps)
	c.Regs = o.OptionalInt("regs", c.Regs)
	c.InfoSize = o.OptionalInt("infoSize", c.InfoSize)
	c.InfoIncrement = o.OptionalInt("infoIncrement", c.InfoIncrement)
	c.ResultMargin = o.OptionalInt("resultMargin", c.ResultMargin)
	return c, o.Validate()
}

// ParseJSON decodes a JSON document into a jsonconfig.Obj and loads a
// Config from it, the way a caller would load a database's config
// file from disk.
func ParseJSON(data []byte) (Config, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("tdconfig: %w", err)
	}
	return FromObj(jsonconfig.Obj(raw))
}
