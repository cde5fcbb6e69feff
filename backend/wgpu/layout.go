//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/relief"
)

// GPU-side layout constants. These must match the struct declarations
// in shaders/heightfield.wgsl.
const (
	// gpuEntrySize is the byte stride of one entry in the entries
	// storage buffer: 12 scalar words (height, 4 bounds floats, 5
	// index words, 2 pad words).
	gpuEntrySize = 12 * 4

	// gpuPointSize is the byte stride of one point: vec2<f32>.
	gpuPointSize = 2 * 4

	// gpuParamsSize is the byte size of the Params uniform: two
	// vec2<f32> plus four scalar words.
	gpuParamsSize = 8 * 4
)

func putU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

// gpuParams is the per-dispatch uniform, mirroring Params in
// shaders/heightfield.wgsl.
type gpuParams struct {
	FootprintMinX float32
	FootprintMinY float32
	TexelStepX    float32
	TexelStepY    float32
	TileSize      uint32
	Slot          uint32
	EntryCount    uint32
	DefaultHeight float32
}

// toBytes serializes the params in little-endian order. The field
// order matches the WGSL struct: the vec2 members first keep every
// member naturally aligned with no padding.
func (p gpuParams) toBytes() []byte {
	buf := make([]byte, gpuParamsSize)
	putF32(buf, 0, p.FootprintMinX)
	putF32(buf, 4, p.FootprintMinY)
	putF32(buf, 8, p.TexelStepX)
	putF32(buf, 12, p.TexelStepY)
	putU32(buf, 16, p.TileSize)
	putU32(buf, 20, p.Slot)
	putU32(buf, 24, p.EntryCount)
	putF32(buf, 28, p.DefaultHeight)
	return buf
}

// packEntries serializes the field's flattened entries into the WGSL
// Entry layout. Heights and bounds narrow to float32; the kernel does
// not need Parent or Depth, so they are not uploaded.
func packEntries(f *relief.Field) []byte {
	entries := f.Entries()
	buf := make([]byte, len(entries)*gpuEntrySize)
	for i := range entries {
		e := &entries[i]
		off := i * gpuEntrySize
		putF32(buf, off+0, float32(e.Height))
		putF32(buf, off+4, float32(e.Bounds.Min.X))
		putF32(buf, off+8, float32(e.Bounds.Min.Y))
		putF32(buf, off+12, float32(e.Bounds.Max.X))
		putF32(buf, off+16, float32(e.Bounds.Max.Y))
		putU32(buf, off+20, uint32(e.PointStart))
		putU32(buf, off+24, uint32(e.PointCount))
		putU32(buf, off+28, uint32(e.ChildStart))
		putU32(buf, off+32, uint32(e.ChildCount))
		putU32(buf, off+36, uint32(e.Skip))
	}
	return buf
}

// packPoints serializes the field's point pool as tightly packed
// vec2<f32>.
func packPoints(f *relief.Field) []byte {
	points := f.Points()
	buf := make([]byte, len(points)*gpuPointSize)
	for i, p := range points {
		off := i * gpuPointSize
		putF32(buf, off+0, float32(p.X))
		putF32(buf, off+4, float32(p.Y))
	}
	return buf
}

// packChildren serializes the field's child index pool as u32.
func packChildren(f *relief.Field) []byte {
	children := f.Children()
	buf := make([]byte, len(children)*4)
	for i, c := range children {
		putU32(buf, i*4, uint32(c))
	}
	return buf
}

// workgroupCount returns the 1D workgroup count covering texels texels
// at 16 threads per workgroup edge, by ceiling division.
func workgroupCount(texels int) uint32 {
	return uint32((texels + wgEdge - 1) / wgEdge)
}
