package backend

import (
	"errors"

	"github.com/gogpu/relief"
	"github.com/gogpu/relief/tilecache"
)

// Backend name constants.
const (
	// BackendWGPU is the GPU compute backend via gogpu/wgpu.
	BackendWGPU = "wgpu"

	// BackendSoftware is the CPU fallback backend.
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotPrepared is returned when Compute is called before Prepare.
	ErrNotPrepared = errors.New("backend: not prepared")

	// ErrInvalidConfig is returned by Prepare for a non-positive tile
	// size or slot count.
	ErrInvalidConfig = errors.New("backend: tile size and slot count must be positive")

	// ErrSlotOutOfRange is returned when Compute targets a slot outside
	// the arena prepared for it.
	ErrSlotOutOfRange = errors.New("backend: slot out of range")
)

// TileBackend computes height tiles into an arena of fixed-size slots.
// It abstracts the compute implementation, allowing the virtual texture
// to run on the GPU (wgpu) or on the CPU (software) unchanged.
//
// Backends must be registered via Register() and are selected via
// Get() or Default(). The virtual texture receives one at construction
// and owns its lifecycle from Prepare to Close.
type TileBackend interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Prepare allocates an arena of slots, each holding
	// tileSize*tileSize float32 height samples, and takes a read-only
	// reference to the flattened field the tiles sample. Calling
	// Prepare again replaces the field and arena wholesale; previous
	// slot contents are discarded.
	Prepare(field *relief.Field, tileSize, slots int) error

	// Compute fills one slot with tileSize*tileSize samples of the
	// field, taken at texel centers across the world-space footprint.
	// Sample (0,0) is the texel nearest the footprint's Min corner.
	//
	// Compute is fire-and-forget: a nil return means the work was
	// submitted, not that it finished. Work submitted to one backend
	// executes in submission order.
	Compute(key relief.TileKey, footprint relief.Rect, slot tilecache.Slot) error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()
}
