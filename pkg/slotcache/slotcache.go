/*
Copyright 2011 Google Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package slotcache implements the bounded, pinned tablet cache that
// sits between the query engine and a tablet file: a fixed array of
// in-memory tablet buffers, loaded from and written back to disk on
// demand, evicted by a round-robin scan rather than an LRU ordering
// because eviction must skip pinned slots in a single bounded pass.
package slotcache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/metrics"
	"tabletdb.dev/tabletdb/pkg/tablet"
)

// Backend is the disk side of the cache: it knows how to read a
// tablet by id and write a resident tablet back.
type Backend interface {
	ReadTablet(id int) (*tablet.Tablet, error)
	WriteTablet(t *tablet.Tablet) error
}

// status values for a slot, matching the original engine's encoding:
// 0 means empty, 1 means resident and unpinned, and any value >= 2
// means resident with a pin count of status-1.
const (
	statusEmpty    = 0
	statusResident = 1
)

type slot struct {
	status int
	id     int
	tab    *tablet.Tablet
}

// Cache is a bounded, pinned tablet cache, safe for concurrent use.
type Cache struct {
	backend Backend
	metrics *metrics.Registry

	mu      sync.Mutex
	slots   []slot
	taken   int
	cursor  int

	writeBack *rate.Limiter
	loads     singleflight.Group
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithMetrics attaches a metrics registry; nil is safe and disables
// metrics entirely.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Cache) { c.metrics = r }
}

// WithWriteBackLimiter throttles the rate at which evicted tablets
// are written back to disk, so a cold scan against a small slot count
// cannot saturate disk I/O. A nil limiter (the default) means
// unlimited.
func WithWriteBackLimiter(l *rate.Limiter) Option {
	return func(c *Cache) { c.writeBack = l }
}

// New builds a Cache with nSlots empty slots backed by b.
func New(nSlots int, b Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: b,
		slots:   make([]slot, nSlots),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// findSlot locates an empty slot, or evicts an unpinned one in
// round-robin order. Must be called with mu held.
func (c *Cache) findSlot() (int, error) {
	if c.taken < len(c.slots) {
		for i := range c.slots {
			if c.slots[i].status == statusEmpty {
				c.taken++
				c.slots[i].status = 2
				return i, nil
			}
		}
	}

	start := c.cursor
	c.cursor = (c.cursor + 1) % len(c.slots)

	i := start
	for checked := 0; checked < len(c.slots); checked++ {
		if c.slots[i].status <= statusResident {
			break
		}
		i = (i + 1) % len(c.slots)
	}
	if c.slots[i].status > statusResident {
		c.metrics.AllPinned()
		return 0, engineerr.New(engineerr.AllPinned, "slotcache.findSlot", nil)
	}

	if c.slots[i].status == statusResident {
		if c.writeBack != nil {
			_ = c.writeBack.Wait(context.Background())
		}
		if err := c.backend.WriteTablet(c.slots[i].tab); err != nil {
			return 0, engineerr.New(engineerr.Io, "slotcache.findSlot", err)
		}
		c.metrics.Eviction()
	}

	c.slots[i].status = 2
	return i, nil
}

// Load returns a pinned pointer to the tablet with the given id,
// loading it from disk if it isn't already resident. Every call to
// Load must be matched with a call to Unlock.
func (c *Cache) Load(id int) (*tablet.Tablet, error) {
	c.mu.Lock()
	for i := range c.slots {
		if c.slots[i].status != statusEmpty && c.slots[i].id == id {
			c.slots[i].status++
			c.metrics.Hit()
			t := c.slots[i].tab
			c.mu.Unlock()
			return t, nil
		}
	}
	c.mu.Unlock()

	c.metrics.Miss()
	v, err, _ := c.loads.Do(slotKey(id), func() (interface{}, error) {
		return c.backend.ReadTablet(id)
	})
	if err != nil {
		return nil, engineerr.New(engineerr.Io, "slotcache.Load", err)
	}
	t := v.(*tablet.Tablet)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if c.slots[i].status != statusEmpty && c.slots[i].id == id {
			c.slots[i].status++
			return c.slots[i].tab, nil
		}
	}

	i, err := c.findSlot()
	if err != nil {
		return nil, err
	}
	c.slots[i].id = id
	c.slots[i].tab = t
	return t, nil
}

// LoadNext is the safe idiom for walking a tablet chain: it pins the
// tablet with id nextID before releasing the pin on currentID, so a
// caller walking id -> id.Next is never left holding zero pins on the
// chain between the two calls this would otherwise take.
func (c *Cache) LoadNext(currentID, nextID int) (*tablet.Tablet, error) {
	t, err := c.Load(nextID)
	if err != nil {
		return nil, err
	}
	if err := c.Unlock(currentID); err != nil {
		return nil, err
	}
	return t, nil
}

// Alloc reserves a slot for a brand new tablet that has no disk
// presence yet, pinning it immediately.
func (c *Cache) Alloc(id int, t *tablet.Tablet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.findSlot()
	if err != nil {
		return err
	}
	c.slots[i].id = id
	c.slots[i].tab = t
	return nil
}

// Lock adds an extra pin to an already-resident tablet.
func (c *Cache) Lock(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].status > statusEmpty && c.slots[i].id == id {
			c.slots[i].status++
			return nil
		}
	}
	return engineerr.New(engineerr.InvalidArgument, "slotcache.Lock", nil)
}

// Unlock releases one pin on the tablet with the given id.
func (c *Cache) Unlock(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].status > statusResident && c.slots[i].id == id {
			c.slots[i].status--
			return nil
		}
	}
	return engineerr.New(engineerr.InvalidArgument, "slotcache.Unlock", nil)
}

// Remove drops a tablet from the cache without writing it back,
// used to discard a result tablet once a query's reader is freed.
func (c *Cache) Remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].status != statusEmpty && c.slots[i].id == id {
			c.slots[i] = slot{}
			c.taken--
			return
		}
	}
}

// Flush writes back every resident slot, used on clean close.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].status == statusEmpty {
			continue
		}
		if c.slots[i].status > statusResident {
			return engineerr.New(engineerr.InvalidArgument, "slotcache.Flush", nil)
		}
		if err := c.backend.WriteTablet(c.slots[i].tab); err != nil {
			return engineerr.New(engineerr.Io, "slotcache.Flush", err)
		}
		c.slots[i] = slot{}
		c.taken--
	}
	return nil
}

func slotKey(id int) string {
	const hex = "0123456789abcdef"
	if id == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = hex[id&0xF]
		id >>= 4
	}
	return string(buf[i:])
}
