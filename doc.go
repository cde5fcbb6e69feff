// Package relief builds queryable height fields from nested contour lines.
//
// # Overview
//
// relief is a Pure Go terrain-field library designed to integrate with the
// GoGPU ecosystem. Closed contour loops, each carrying one height value,
// are arranged into a containment tree, compiled into a flat GPU-friendly
// array, and sampled either directly (HeightAt) or through a virtual
// texture that streams fixed-size height tiles on demand.
//
// # Quick Start
//
//	import "github.com/gogpu/relief"
//
//	// Describe the terrain as nested contours.
//	tree, diags := relief.Build([]relief.Contour{outer, hill, peak})
//	for _, d := range diags {
//	    log.Println(d)
//	}
//
//	// Compile once, query from any goroutine.
//	field := relief.Flatten(tree, relief.WithDefaultHeight(-1))
//	h := field.HeightAt(relief.Pt(20, 20))
//
// # Architecture
//
// The library is organized into:
//   - Public API: Contour, Tree, Field, Point, Rect, TileKey
//   - tilecache: generic fixed-capacity slot cache with frame-stamped LRU
//   - vtex: virtual texture streaming tiles through a compute backend
//   - backend: TileBackend interface, registry, software and wgpu backends
//
// # Coordinate System
//
// World coordinates are float64 with X increasing right and Y increasing
// down, matching the rest of the gogpu stack. Tile space is integer:
// a tile at level L spans baseTileSize * 2^L world units per edge, so
// higher levels cover more world area per tile.
//
// # Concurrency
//
// A Field is immutable after Flatten and safe for unsynchronized readers.
// Tree, tilecache.Cache and vtex.VirtualTexture are single-owner
// structures: confine them to one goroutine, typically the tick loop.
package relief

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
