package vtex

// Option configures a VirtualTexture during creation.
// Use functional options to customize streaming behavior.
//
// Example:
//
//	// Defaults: 64x64 texel tiles, 256 slots, 8 tiles per frame
//	vt, err := vtex.New(field, be)
//
//	// Small cache with aggressive streaming
//	vt, err := vtex.New(field, be,
//		vtex.WithCapacity(64),
//		vtex.WithBudget(16))
type Option func(*options)

// options holds the streaming configuration for a VirtualTexture.
type options struct {
	tileSize     int
	capacity     int
	budget       int
	baseTileSize float64
	maxLOD       int32
}

// defaultOptions returns the default virtual texture options.
func defaultOptions() options {
	return options{
		tileSize:     64,
		capacity:     256,
		budget:       8,
		baseTileSize: 64,
		maxLOD:       8,
	}
}

func (o *options) validate() error {
	if o.tileSize < 1 {
		return &OptionError{Field: "TileSize", Reason: "must be at least 1"}
	}
	if o.tileSize > 4096 {
		return &OptionError{Field: "TileSize", Reason: "must be at most 4096"}
	}
	if o.capacity < 1 {
		return &OptionError{Field: "Capacity", Reason: "must be at least 1"}
	}
	if o.budget < 1 {
		return &OptionError{Field: "Budget", Reason: "must be at least 1"}
	}
	if !(o.baseTileSize > 0) {
		return &OptionError{Field: "BaseTileSize", Reason: "must be positive"}
	}
	if o.maxLOD < 0 {
		return &OptionError{Field: "MaxLOD", Reason: "must be non-negative"}
	}
	// Tile edges scale by 1<<LOD; 30 keeps the factor in int32 range.
	if o.maxLOD > 30 {
		return &OptionError{Field: "MaxLOD", Reason: "must be at most 30"}
	}
	return nil
}

// WithTileSize sets the tile resolution in texels per edge.
// Every cache slot holds tileSize*tileSize height samples.
func WithTileSize(texels int) Option {
	return func(o *options) {
		o.tileSize = texels
	}
}

// WithCapacity sets the number of tile slots in the cache. Once all
// slots are resident, new tiles evict the least recently used one.
func WithCapacity(slots int) Option {
	return func(o *options) {
		o.capacity = slots
	}
}

// WithBudget sets the maximum number of tiles computed per Update
// call. Requests beyond the budget stay queued for later frames.
func WithBudget(tilesPerFrame int) Option {
	return func(o *options) {
		o.budget = tilesPerFrame
	}
}

// WithBaseTileSize sets the world-space edge length of a tile at
// level 0. A tile at level L covers baseTileSize * 2^L units per edge.
func WithBaseTileSize(worldUnits float64) Option {
	return func(o *options) {
		o.baseTileSize = worldUnits
	}
}

// WithMaxLOD sets the coarsest pyramid level. Fallback lookups stop
// after this level, and requests beyond it are clamped to it.
func WithMaxLOD(lod int32) Option {
	return func(o *options) {
		o.maxLOD = lod
	}
}

// OptionError represents a configuration validation error.
type OptionError struct {
	Field  string
	Reason string
}

func (e *OptionError) Error() string {
	return "vtex: invalid option " + e.Field + ": " + e.Reason
}
