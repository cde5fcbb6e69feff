package software

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/gogpu/relief"
	"github.com/gogpu/relief/backend"
	"github.com/gogpu/relief/tilecache"
)

// plateauField builds a field with one childless contour at height 9
// covering x in [0,2], y in [0,4], default height 0. Childless
// contours answer with their exact height, so sample expectations can
// compare floats exactly.
func plateauField(t *testing.T) *relief.Field {
	t.Helper()
	plateau := relief.NewContour(9,
		relief.Pt(0, 0), relief.Pt(2, 0), relief.Pt(2, 4), relief.Pt(0, 4))
	tree, diags := relief.Build([]relief.Contour{plateau})
	if len(diags) != 0 {
		t.Fatalf("Build diagnostics = %v, want none", diags)
	}
	return relief.Flatten(tree)
}

func TestRegistryHasSoftware(t *testing.T) {
	if !backend.IsRegistered(backend.BackendSoftware) {
		t.Fatal("software backend not registered on import")
	}
	be := backend.Get(backend.BackendSoftware)
	if be == nil {
		t.Fatal("Get(software) = nil")
	}
	if got := be.Name(); got != backend.BackendSoftware {
		t.Errorf("Name() = %q, want %q", got, backend.BackendSoftware)
	}
}

func TestPrepareValidation(t *testing.T) {
	field := plateauField(t)
	tests := []struct {
		name     string
		field    *relief.Field
		tileSize int
		slots    int
	}{
		{"zero tile size", field, 0, 4},
		{"negative tile size", field, -1, 4},
		{"zero slots", field, 8, 0},
		{"nil field", nil, 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			err := b.Prepare(tt.field, tt.tileSize, tt.slots)
			if !errors.Is(err, backend.ErrInvalidConfig) {
				t.Errorf("Prepare error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestComputeBeforePrepare(t *testing.T) {
	b := New()
	err := b.Compute(relief.TileKey{}, relief.NewRect(relief.Pt(0, 0), relief.Pt(1, 1)), 0)
	if !errors.Is(err, backend.ErrNotPrepared) {
		t.Errorf("Compute error = %v, want ErrNotPrepared", err)
	}
	if _, err := b.Slot(0); !errors.Is(err, backend.ErrNotPrepared) {
		t.Errorf("Slot error = %v, want ErrNotPrepared", err)
	}
}

func TestComputeSlotRange(t *testing.T) {
	b := New()
	if err := b.Prepare(plateauField(t), 4, 2); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	fp := relief.NewRect(relief.Pt(0, 0), relief.Pt(4, 4))

	for _, slot := range []tilecache.Slot{-1, 2, 100} {
		if err := b.Compute(relief.TileKey{}, fp, slot); !errors.Is(err, backend.ErrSlotOutOfRange) {
			t.Errorf("Compute(slot=%d) error = %v, want ErrSlotOutOfRange", slot, err)
		}
		if _, err := b.Slot(slot); !errors.Is(err, backend.ErrSlotOutOfRange) {
			t.Errorf("Slot(%d) error = %v, want ErrSlotOutOfRange", slot, err)
		}
	}
}

func TestComputeSamplesTexelCenters(t *testing.T) {
	b := New()
	if err := b.Prepare(plateauField(t), 4, 1); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// Texel centers land at 0.5, 1.5, 2.5, 3.5: the first two columns
	// fall inside the plateau (height 9), the rest outside (default 0).
	fp := relief.NewRect(relief.Pt(0, 0), relief.Pt(4, 4))
	if err := b.Compute(relief.TileKey{}, fp, 0); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	samples, err := b.Slot(0)
	if err != nil {
		t.Fatalf("Slot: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := float32(0)
			if x < 2 {
				want = 9
			}
			if got := samples[y*4+x]; got != want {
				t.Errorf("sample (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestComputeSlotIsolation(t *testing.T) {
	b := New()
	if err := b.Prepare(plateauField(t), 2, 2); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	onPlateau := relief.NewRect(relief.Pt(0, 0), relief.Pt(2, 2))
	farAway := relief.NewRect(relief.Pt(100, 100), relief.Pt(102, 102))
	if err := b.Compute(relief.TileKey{X: 0}, onPlateau, 0); err != nil {
		t.Fatalf("Compute slot 0: %v", err)
	}
	if err := b.Compute(relief.TileKey{X: 1}, farAway, 1); err != nil {
		t.Fatalf("Compute slot 1: %v", err)
	}

	s0, _ := b.Slot(0)
	s1, _ := b.Slot(1)
	for i := range s0 {
		if s0[i] != 9 {
			t.Errorf("slot 0 sample %d = %v, want 9", i, s0[i])
		}
		if s1[i] != 0 {
			t.Errorf("slot 1 sample %d = %v, want 0", i, s1[i])
		}
	}
}

func TestPrepareReplacesArena(t *testing.T) {
	b := New()
	if err := b.Prepare(plateauField(t), 2, 1); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	fp := relief.NewRect(relief.Pt(0, 0), relief.Pt(2, 2))
	if err := b.Compute(relief.TileKey{}, fp, 0); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if err := b.Prepare(plateauField(t), 4, 1); err != nil {
		t.Fatalf("re-Prepare: %v", err)
	}
	if got := b.TileSize(); got != 4 {
		t.Errorf("TileSize after re-Prepare = %d, want 4", got)
	}
	samples, err := b.Slot(0)
	if err != nil {
		t.Fatalf("Slot: %v", err)
	}
	if len(samples) != 16 {
		t.Fatalf("len(samples) = %d, want 16", len(samples))
	}
	for i, s := range samples {
		if s != 0 {
			t.Errorf("sample %d = %v after re-Prepare, want 0", i, s)
		}
	}
}

func TestClose(t *testing.T) {
	b := New()
	if err := b.Prepare(plateauField(t), 2, 1); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	b.Close()
	err := b.Compute(relief.TileKey{}, relief.NewRect(relief.Pt(0, 0), relief.Pt(1, 1)), 0)
	if !errors.Is(err, backend.ErrNotPrepared) {
		t.Errorf("Compute after Close error = %v, want ErrNotPrepared", err)
	}
}

func TestEncodeTIFFValidation(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, make([]float32, 5), 2, 2); !errors.Is(err, ErrBadDimensions) {
		t.Errorf("EncodeTIFF(5 samples, 2x2) error = %v, want ErrBadDimensions", err)
	}
	if err := EncodeTIFF(&buf, nil, 0, 0); !errors.Is(err, ErrBadDimensions) {
		t.Errorf("EncodeTIFF(0x0) error = %v, want ErrBadDimensions", err)
	}
}

func TestSnapshotTIFFRoundTrip(t *testing.T) {
	b := New()
	if err := b.Prepare(plateauField(t), 4, 1); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	fp := relief.NewRect(relief.Pt(0, 0), relief.Pt(4, 4))
	if err := b.Compute(relief.TileKey{}, fp, 0); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	var buf bytes.Buffer
	if err := b.SnapshotTIFF(&buf, 0); err != nil {
		t.Fatalf("SnapshotTIFF: %v", err)
	}

	img, err := tiff.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 4 || bounds.Dy() != 4 {
		t.Fatalf("decoded size = %dx%d, want 4x4", bounds.Dx(), bounds.Dy())
	}

	// Normalization maps the plateau (max) to white and the default
	// height (min) to black.
	inside := color.Gray16Model.Convert(img.At(0, 0)).(color.Gray16).Y
	outside := color.Gray16Model.Convert(img.At(3, 0)).(color.Gray16).Y
	if inside != 65535 {
		t.Errorf("plateau pixel = %d, want 65535", inside)
	}
	if outside != 0 {
		t.Errorf("default pixel = %d, want 0", outside)
	}
}

func TestSnapshotTIFFFlatTile(t *testing.T) {
	b := New()
	if err := b.Prepare(plateauField(t), 2, 1); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Entirely off the plateau: every sample is the default height.
	fp := relief.NewRect(relief.Pt(50, 50), relief.Pt(52, 52))
	if err := b.Compute(relief.TileKey{}, fp, 0); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	var buf bytes.Buffer
	if err := b.SnapshotTIFF(&buf, 0); err != nil {
		t.Fatalf("SnapshotTIFF: %v", err)
	}
	img, err := tiff.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := color.Gray16Model.Convert(img.At(1, 1)).(color.Gray16).Y; got != 0 {
		t.Errorf("flat tile pixel = %d, want 0", got)
	}
}
