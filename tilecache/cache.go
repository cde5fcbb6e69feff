package tilecache

import "errors"

// ErrInvalidCapacity is returned by New when capacity is not positive.
// A zero-capacity cache could satisfy no allocation and would turn the
// first eviction into an invariant violation, so it is rejected up front.
var ErrInvalidCapacity = errors.New("tilecache: capacity must be positive")

// Slot is a typed index into the arena backing the cache: one slot per
// resident entry, for example a GPU texture array layer or a row of a
// CPU sample buffer. Slots are handed out by the cache and never move
// while their entry is resident.
type Slot int32

// Entry is one resident cache record. LastAccess is the frame counter
// value of the entry's most recent allocation or touch; eviction always
// removes the entry with the globally minimal LastAccess.
//
// Pointers returned by the cache stay valid until the entry is evicted
// or the cache is cleared.
type Entry[K comparable, V any] struct {
	Key        K
	Slot       Slot
	LastAccess uint64
	Value      V
}

// Stats counts cache traffic since construction or the last Clear.
type Stats struct {
	// Len is the current number of resident entries.
	Len int
	// Capacity is the fixed slot count.
	Capacity int
	// Hits is the number of Get calls that found their key.
	Hits uint64
	// Misses is the number of Get calls that did not.
	Misses uint64
	// Evictions is the number of entries displaced by Allocate.
	Evictions uint64
}

// Cache is a fixed-capacity key/value cache that owns a slot arena.
// Every resident entry occupies exactly one slot; Allocate prefers free
// slots and only evicts (the least recently used entry, by frame
// counter) once no slot is free.
//
// Recency is frame-grained, not access-grained: Get never changes it,
// Touch and Allocate stamp the current frame, and the owner advances
// the frame exactly once per tick with AdvanceFrame. Entries allocated
// or touched within one frame therefore tie, and eviction among ties is
// arbitrary.
//
// Cache is NOT safe for concurrent use. Confine it to the goroutine
// that owns the tick, or add external synchronization.
type Cache[K comparable, V any] struct {
	entries  map[K]*Entry[K, V]
	free     []Slot
	capacity int
	frame    uint64

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache with the given fixed capacity.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	c := &Cache[K, V]{
		entries:  make(map[K]*Entry[K, V], capacity),
		free:     make([]Slot, 0, capacity),
		capacity: capacity,
	}
	c.fillFree()
	return c, nil
}

// fillFree rebuilds the free pool with every slot, highest first so
// they hand out in ascending order.
func (c *Cache[K, V]) fillFree() {
	c.free = c.free[:0]
	for s := c.capacity - 1; s >= 0; s-- {
		c.free = append(c.free, Slot(s))
	}
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// Capacity returns the fixed slot count.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Frame returns the current frame counter value.
func (c *Cache[K, V]) Frame() uint64 {
	return c.frame
}

// AdvanceFrame moves the recency clock forward. The owner calls it
// exactly once per tick, no matter how many entries were touched or
// allocated during the tick.
func (c *Cache[K, V]) AdvanceFrame() {
	c.frame++
}

// Get returns the entry for key if resident. Lookup never changes
// recency; use Touch when a consumer actually uses the entry.
func (c *Cache[K, V]) Get(key K) (*Entry[K, V], bool) {
	e, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

// Contains reports whether key is resident, without counting toward
// hit/miss statistics.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.entries[key]
	return ok
}

// Touch stamps the entry with the current frame, protecting it from
// eviction until everything touched later.
func (c *Cache[K, V]) Touch(e *Entry[K, V]) {
	e.LastAccess = c.frame
}

// Allocate returns the entry for key, creating it if needed. An
// existing entry keeps its slot; its value is replaced and its recency
// stamped. A new entry takes a free slot, or displaces the least
// recently used entry when no slot is free. The cache never evicts
// while a free slot exists.
func (c *Cache[K, V]) Allocate(key K, value V) *Entry[K, V] {
	if e, ok := c.entries[key]; ok {
		e.Value = value
		e.LastAccess = c.frame
		return e
	}

	var slot Slot
	if n := len(c.free); n > 0 {
		slot = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		slot = c.evictLRU()
	}

	e := &Entry[K, V]{Key: key, Slot: slot, LastAccess: c.frame, Value: value}
	c.entries[key] = e
	return e
}

// Clear drops every entry and returns all slots to the free pool.
// Statistics reset with it.
func (c *Cache[K, V]) Clear() {
	clear(c.entries)
	c.fillFree()
	c.frame = 0
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// evictLRU removes the entry with the minimal LastAccess and returns
// its slot for reuse. Calling it with no resident entries is a logic
// error in the cache itself (Allocate only evicts when full), so it
// panics rather than return a sentinel.
func (c *Cache[K, V]) evictLRU() Slot {
	if len(c.entries) == 0 {
		panic("tilecache: evict on empty cache")
	}

	var victim *Entry[K, V]
	for _, e := range c.entries {
		if victim == nil || e.LastAccess < victim.LastAccess {
			victim = e
		}
	}

	delete(c.entries, victim.Key)
	c.evictions++
	return victim.Slot
}
