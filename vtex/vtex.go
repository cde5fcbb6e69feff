// Package vtex streams height tiles through a fixed-size slot cache,
// virtual-texture style.
//
// A VirtualTexture sits between a flattened contour field and a
// renderer. The renderer requests the tiles covering its viewport each
// frame; vtex queues the ones that are not resident, computes a
// budgeted number of them per Update through an injected
// backend.TileBackend, and answers lookups from the cache, falling
// back to coarser pyramid levels while the exact tile streams in.
//
// Tiles are addressed by relief.TileKey: a level-of-detail plus signed
// integer tile coordinates. A tile at level L covers
// baseTileSize * 2^L world units per edge, so each level doubles the
// world area per tile and the whole pyramid covers an unbounded plane
// with a bounded number of resident slots.
//
// A VirtualTexture confines all mutation to a single goroutine,
// typically the render loop. Concurrent height queries go directly to
// relief.Field.HeightAt, which is read-only and safe to share.
package vtex

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/relief"
	"github.com/gogpu/relief/backend"
	"github.com/gogpu/relief/tilecache"
)

// Construction errors.
var (
	// ErrNilField is returned by New and SetField for a nil field.
	ErrNilField = errors.New("vtex: field must not be nil")

	// ErrNilBackend is returned by New for a nil backend.
	ErrNilBackend = errors.New("vtex: backend must not be nil")
)

// slogger returns the shared library logger (see relief.Logger).
func slogger() *slog.Logger { return relief.Logger() }

// tileInfo is the per-entry metadata the cache carries for vtex: the
// world footprint the slot's samples were taken over.
type tileInfo struct {
	footprint relief.Rect
}

// Tile is the result of a cache lookup. Key identifies the tile that
// actually answered; on a fallback hit it is coarser than the
// requested key, and Footprint tells the renderer which world rect the
// slot's samples cover so it can derive the sub-rect to sample.
type Tile struct {
	Key       relief.TileKey
	Slot      tilecache.Slot
	Footprint relief.Rect
}

// VirtualTexture streams field tiles into a slot cache.
//
// Requests are deduplicated and queued in arrival order; Update drains
// at most the configured budget per call, so one expensive frame
// spreads its tile computes over the following frames instead of
// stalling. Lookups never block: a miss returns the nearest resident
// ancestor or reports a full miss, and the renderer decides how to
// cope for the frame.
//
// With an asynchronous backend, eviction can recycle a slot while a
// dispatch still targets it; the stale write lands in the new owner's
// slot and is overwritten by the new owner's own compute. Tolerated:
// slot contents are only ever trusted for resident entries the cache
// handed out.
type VirtualTexture struct {
	opts    options
	field   *relief.Field
	backend backend.TileBackend
	cache   *tilecache.Cache[relief.TileKey, tileInfo]

	// pending is the FIFO compute queue; queued mirrors it for O(1)
	// dedup. A key is in queued iff it is in pending.
	pending []relief.TileKey
	queued  map[relief.TileKey]struct{}
}

// New creates a virtual texture over field, computing tiles with be.
// The virtual texture owns the backend from here on: it prepares it
// now and closes it in Close.
func New(field *relief.Field, be backend.TileBackend, opts ...Option) (*VirtualTexture, error) {
	if field == nil {
		return nil, ErrNilField
	}
	if be == nil {
		return nil, ErrNilBackend
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	cache, err := tilecache.New[relief.TileKey, tileInfo](o.capacity)
	if err != nil {
		return nil, fmt.Errorf("vtex: %w", err)
	}
	if err := be.Prepare(field, o.tileSize, o.capacity); err != nil {
		return nil, fmt.Errorf("vtex: prepare %s backend: %w", be.Name(), err)
	}

	v := &VirtualTexture{
		opts:    o,
		field:   field,
		backend: be,
		cache:   cache,
		queued:  make(map[relief.TileKey]struct{}),
	}
	slogger().Info("vtex: created",
		"backend", be.Name(),
		"tileSize", o.tileSize,
		"capacity", o.capacity,
		"budget", o.budget)
	return v, nil
}

// TileEdge returns the world-space edge length of a tile at the given
// level.
func (v *VirtualTexture) TileEdge(lod int32) float64 {
	return v.opts.baseTileSize * float64(int32(1)<<uint(lod))
}

// Footprint returns the world rect a tile covers. Tile (X, Y) at level
// L spans [X*edge, (X+1)*edge) x [Y*edge, (Y+1)*edge) where edge is
// TileEdge(L).
func (v *VirtualTexture) Footprint(key relief.TileKey) relief.Rect {
	edge := v.TileEdge(key.LOD)
	min := relief.Pt(float64(key.X)*edge, float64(key.Y)*edge)
	return relief.Rect{Min: min, Max: min.Add(relief.Pt(edge, edge))}
}

// RequestRect queues every tile at the given level whose footprint
// intersects rect. Levels outside [0, MaxLOD] are clamped. Resident
// and already-queued tiles are skipped, so calling this with the
// viewport every frame is cheap.
func (v *VirtualTexture) RequestRect(rect relief.Rect, lod int32) {
	if lod < 0 {
		lod = 0
	}
	if lod > v.opts.maxLOD {
		lod = v.opts.maxLOD
	}
	edge := v.TileEdge(lod)
	x0 := int32(math.Floor(rect.Min.X / edge))
	x1 := int32(math.Floor(rect.Max.X / edge))
	y0 := int32(math.Floor(rect.Min.Y / edge))
	y1 := int32(math.Floor(rect.Max.Y / edge))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			v.RequestTile(relief.TileKey{LOD: lod, X: x, Y: y})
		}
	}
}

// RequestTile queues one tile for computation. Requests for resident
// or already-queued tiles are dropped, so the queue never holds
// duplicates and re-requesting while a tile streams in is free.
func (v *VirtualTexture) RequestTile(key relief.TileKey) {
	if v.cache.Contains(key) {
		return
	}
	if _, ok := v.queued[key]; ok {
		return
	}
	v.queued[key] = struct{}{}
	v.pending = append(v.pending, key)
}

// Update computes up to the configured budget of queued tiles, oldest
// request first, then advances the cache frame. Call it once per
// rendered frame: the frame advance is what gives eviction its
// used-this-frame granularity, so exactly one call per frame keeps
// recency honest regardless of how many tiles were computed.
func (v *VirtualTexture) Update() {
	n := len(v.pending)
	if n > v.opts.budget {
		n = v.opts.budget
	}
	for _, key := range v.pending[:n] {
		delete(v.queued, key)
		v.computeTile(key)
	}
	rest := copy(v.pending, v.pending[n:])
	v.pending = v.pending[:rest]

	v.cache.AdvanceFrame()
}

// computeTile allocates a slot (evicting if needed) and submits the
// tile to the backend. Dispatch failure leaves the slot contents
// undefined but keeps the entry resident; callers that care re-request
// after Invalidate.
func (v *VirtualTexture) computeTile(key relief.TileKey) {
	fp := v.Footprint(key)
	e := v.cache.Allocate(key, tileInfo{footprint: fp})
	if err := v.backend.Compute(key, fp, e.Slot); err != nil {
		slogger().Warn("vtex: tile dispatch failed",
			"key", key, "slot", e.Slot, "error", err)
		return
	}
	slogger().Debug("vtex: tile computed", "key", key, "slot", e.Slot)
}

// Tile looks up the slot for a tile. On an exact hit it returns that
// tile; on a miss it walks the pyramid one level coarser at a time
// (coordinates floor-halve) and returns the first resident ancestor,
// so the renderer always has something to sample while the exact tile
// streams in. The returned tile is touched for eviction recency.
//
// The walk stops after MaxLOD; if no ancestor is resident the second
// return is false and the caller falls back to the field's default
// height for the frame.
func (v *VirtualTexture) Tile(key relief.TileKey) (Tile, bool) {
	cur := key
	for {
		if e, ok := v.cache.Get(cur); ok {
			v.cache.Touch(e)
			return Tile{Key: cur, Slot: e.Slot, Footprint: e.Value.footprint}, true
		}
		if cur.LOD >= v.opts.maxLOD {
			return Tile{}, false
		}
		cur = cur.Parent()
	}
}

// Invalidate discards every resident tile and drops the pending queue.
// Slots become reusable immediately; the next RequestRect streams the
// viewport back in from scratch.
func (v *VirtualTexture) Invalidate() {
	v.cache.Clear()
	v.pending = v.pending[:0]
	clear(v.queued)
	slogger().Debug("vtex: invalidated")
}

// SetField swaps the field the tiles sample and invalidates the cache,
// since every resident tile was computed from the old field. The
// backend is re-prepared with the new field; on error the virtual
// texture keeps the old field and stays usable.
func (v *VirtualTexture) SetField(field *relief.Field) error {
	if field == nil {
		return ErrNilField
	}
	if err := v.backend.Prepare(field, v.opts.tileSize, v.opts.capacity); err != nil {
		return fmt.Errorf("vtex: prepare %s backend: %w", v.backend.Name(), err)
	}
	v.field = field
	v.Invalidate()
	slogger().Info("vtex: field swapped", "entries", field.Len())
	return nil
}

// Field returns the field the tiles currently sample.
func (v *VirtualTexture) Field() *relief.Field { return v.field }

// TileSize returns the tile resolution in texels per edge.
func (v *VirtualTexture) TileSize() int { return v.opts.tileSize }

// Capacity returns the number of slots in the cache.
func (v *VirtualTexture) Capacity() int { return v.opts.capacity }

// MaxLOD returns the coarsest pyramid level.
func (v *VirtualTexture) MaxLOD() int32 { return v.opts.maxLOD }

// Pending returns the number of queued, not yet computed tiles.
func (v *VirtualTexture) Pending() int { return len(v.pending) }

// Frame returns the cache's frame counter.
func (v *VirtualTexture) Frame() uint64 { return v.cache.Frame() }

// Stats returns cache traffic counters.
func (v *VirtualTexture) Stats() tilecache.Stats { return v.cache.Stats() }

// Close releases the backend. The virtual texture must not be used
// afterwards.
func (v *VirtualTexture) Close() {
	v.backend.Close()
}
