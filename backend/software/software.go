package software

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/relief"
	"github.com/gogpu/relief/backend"
	"github.com/gogpu/relief/tilecache"
)

func init() {
	backend.Register(backend.BackendSoftware, func() backend.TileBackend {
		return New()
	})
}

// slogger returns the shared library logger (see relief.Logger).
func slogger() *slog.Logger { return relief.Logger() }

// Backend computes height tiles on the CPU into an in-memory float32
// arena, one row of tileSize*tileSize samples per slot. Compute is
// synchronous: when it returns, the slot is fully written, which makes
// the submission-order guarantee trivial.
//
// The software backend always works and needs no device, so it anchors
// the registry's fallback position and the test suite.
type Backend struct {
	field    *relief.Field
	tileSize int
	slots    int
	arena    []float32
}

// Interface compliance check.
var _ backend.TileBackend = (*Backend)(nil)

// New creates an unprepared software backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendSoftware }

// Prepare sizes the arena for slots*tileSize*tileSize samples and
// keeps the field for sampling. Previous arena contents are discarded.
func (b *Backend) Prepare(field *relief.Field, tileSize, slots int) error {
	if tileSize <= 0 || slots <= 0 {
		return fmt.Errorf("software: %w: tileSize=%d slots=%d", backend.ErrInvalidConfig, tileSize, slots)
	}
	if field == nil {
		return fmt.Errorf("software: %w: nil field", backend.ErrInvalidConfig)
	}

	b.field = field
	b.tileSize = tileSize
	b.slots = slots
	b.arena = make([]float32, slots*tileSize*tileSize)

	slogger().Debug("software: arena prepared",
		"tileSize", tileSize, "slots", slots, "entries", field.Len())
	return nil
}

// Compute samples the field at the texel centers of footprint and
// writes the heights into the slot.
func (b *Backend) Compute(key relief.TileKey, footprint relief.Rect, slot tilecache.Slot) error {
	if b.field == nil {
		return fmt.Errorf("software: %w", backend.ErrNotPrepared)
	}
	if slot < 0 || int(slot) >= b.slots {
		return fmt.Errorf("software: %w: slot=%d slots=%d", backend.ErrSlotOutOfRange, slot, b.slots)
	}

	ts := b.tileSize
	stepX := footprint.Width() / float64(ts)
	stepY := footprint.Height() / float64(ts)
	out := b.arena[int(slot)*ts*ts:]

	for py := 0; py < ts; py++ {
		wy := footprint.Min.Y + (float64(py)+0.5)*stepY
		row := out[py*ts:]
		for px := 0; px < ts; px++ {
			wx := footprint.Min.X + (float64(px)+0.5)*stepX
			row[px] = float32(b.field.HeightAt(relief.Pt(wx, wy)))
		}
	}

	slogger().Debug("software: tile computed", "key", key, "slot", slot)
	return nil
}

// Close drops the arena and field references.
func (b *Backend) Close() {
	b.field = nil
	b.arena = nil
	b.tileSize = 0
	b.slots = 0
}

// TileSize returns the prepared tile edge in texels, 0 before Prepare.
func (b *Backend) TileSize() int { return b.tileSize }

// Slot returns the samples of one slot as a tileSize*tileSize row-major
// view into the arena. The view aliases backend memory: it is valid
// until the next Prepare or Close and must be treated as read-only.
func (b *Backend) Slot(slot tilecache.Slot) ([]float32, error) {
	if b.field == nil {
		return nil, fmt.Errorf("software: %w", backend.ErrNotPrepared)
	}
	if slot < 0 || int(slot) >= b.slots {
		return nil, fmt.Errorf("software: %w: slot=%d slots=%d", backend.ErrSlotOutOfRange, slot, b.slots)
	}
	ts := b.tileSize
	return b.arena[int(slot)*ts*ts : (int(slot)+1)*ts*ts], nil
}
