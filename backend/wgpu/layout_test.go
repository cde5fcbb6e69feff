//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/relief"
)

func buildNestedField(t *testing.T) *relief.Field {
	t.Helper()
	outer := relief.NewContour(10,
		relief.Pt(0, 0), relief.Pt(100, 0), relief.Pt(100, 100), relief.Pt(0, 100))
	inner := relief.NewContour(20,
		relief.Pt(25, 25), relief.Pt(75, 25), relief.Pt(75, 75), relief.Pt(25, 75))
	tree, diags := relief.Build([]relief.Contour{outer, inner})
	if len(diags) != 0 {
		t.Fatalf("Build diagnostics = %v, want none", diags)
	}
	return relief.Flatten(tree)
}

func TestByteWriters(t *testing.T) {
	buf := make([]byte, 8)
	putU32(buf, 0, 0x12345678)
	if buf[0] != 0x78 || buf[1] != 0x56 || buf[2] != 0x34 || buf[3] != 0x12 {
		t.Errorf("putU32 wrote % x, want little-endian 78 56 34 12", buf[:4])
	}
	putF32(buf, 4, 1.0)
	if got := binary.LittleEndian.Uint32(buf[4:]); got != math.Float32bits(1.0) {
		t.Errorf("putF32 wrote %#x, want %#x", got, math.Float32bits(1.0))
	}
}

func TestGPUParamsLayout(t *testing.T) {
	p := gpuParams{
		FootprintMinX: -64,
		FootprintMinY: 128,
		TexelStepX:    0.5,
		TexelStepY:    0.25,
		TileSize:      64,
		Slot:          3,
		EntryCount:    7,
		DefaultHeight: -1.5,
	}
	bytes := p.toBytes()
	if len(bytes) != gpuParamsSize {
		t.Fatalf("len(toBytes()) = %d, want %d", len(bytes), gpuParamsSize)
	}
	le := binary.LittleEndian
	if got := math.Float32frombits(le.Uint32(bytes[0:])); got != -64 {
		t.Errorf("fp_min.x = %v, want -64", got)
	}
	if got := math.Float32frombits(le.Uint32(bytes[12:])); got != 0.25 {
		t.Errorf("texel_step.y = %v, want 0.25", got)
	}
	if got := le.Uint32(bytes[16:]); got != 64 {
		t.Errorf("tile_size = %d, want 64", got)
	}
	if got := le.Uint32(bytes[20:]); got != 3 {
		t.Errorf("slot = %d, want 3", got)
	}
	if got := le.Uint32(bytes[24:]); got != 7 {
		t.Errorf("entry_count = %d, want 7", got)
	}
	if got := math.Float32frombits(le.Uint32(bytes[28:])); got != -1.5 {
		t.Errorf("default_height = %v, want -1.5", got)
	}
}

func TestPackEntries(t *testing.T) {
	field := buildNestedField(t)
	entries := field.Entries()
	data := packEntries(field)

	if len(data) != len(entries)*gpuEntrySize {
		t.Fatalf("len(packEntries) = %d, want %d (stride %d)",
			len(data), len(entries)*gpuEntrySize, gpuEntrySize)
	}

	le := binary.LittleEndian
	for i := range entries {
		e := &entries[i]
		off := i * gpuEntrySize
		if got := math.Float32frombits(le.Uint32(data[off:])); got != float32(e.Height) {
			t.Errorf("entry %d height = %v, want %v", i, got, e.Height)
		}
		if got := math.Float32frombits(le.Uint32(data[off+4:])); got != float32(e.Bounds.Min.X) {
			t.Errorf("entry %d bmin_x = %v, want %v", i, got, e.Bounds.Min.X)
		}
		if got := le.Uint32(data[off+20:]); got != uint32(e.PointStart) {
			t.Errorf("entry %d point_start = %d, want %d", i, got, e.PointStart)
		}
		if got := le.Uint32(data[off+24:]); got != uint32(e.PointCount) {
			t.Errorf("entry %d point_count = %d, want %d", i, got, e.PointCount)
		}
		if got := le.Uint32(data[off+32:]); got != uint32(e.ChildCount) {
			t.Errorf("entry %d child_count = %d, want %d", i, got, e.ChildCount)
		}
		if got := le.Uint32(data[off+36:]); got != uint32(e.Skip) {
			t.Errorf("entry %d skip = %d, want %d", i, got, e.Skip)
		}
	}
}

func TestPackPoints(t *testing.T) {
	field := buildNestedField(t)
	points := field.Points()
	data := packPoints(field)

	if len(data) != len(points)*gpuPointSize {
		t.Fatalf("len(packPoints) = %d, want %d", len(data), len(points)*gpuPointSize)
	}
	le := binary.LittleEndian
	for i, p := range points {
		off := i * gpuPointSize
		x := math.Float32frombits(le.Uint32(data[off:]))
		y := math.Float32frombits(le.Uint32(data[off+4:]))
		if x != float32(p.X) || y != float32(p.Y) {
			t.Errorf("point %d = (%v,%v), want (%v,%v)", i, x, y, p.X, p.Y)
		}
	}
}

func TestPackChildren(t *testing.T) {
	field := buildNestedField(t)
	children := field.Children()
	if len(children) == 0 {
		t.Fatal("nested field has no child indices")
	}
	data := packChildren(field)
	if len(data) != len(children)*4 {
		t.Fatalf("len(packChildren) = %d, want %d", len(data), len(children)*4)
	}
	le := binary.LittleEndian
	for i, c := range children {
		if got := le.Uint32(data[i*4:]); got != uint32(c) {
			t.Errorf("child %d = %d, want %d", i, got, c)
		}
	}
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		texels int
		want   uint32
	}{
		{1, 1},
		{16, 1},
		{17, 2},
		{64, 4},
		{100, 7},
		{256, 16},
	}
	for _, tt := range tests {
		if got := workgroupCount(tt.texels); got != tt.want {
			t.Errorf("workgroupCount(%d) = %d, want %d", tt.texels, got, tt.want)
		}
	}
}
