// Command reliefdemo streams height tiles over a moving viewport and
// writes the final view as a 16-bit grayscale TIFF.
//
// It builds a small island terrain from nested contours, flattens it,
// and drives a vtex.VirtualTexture across it frame by frame, printing
// cache statistics at the end. Tiles are computed on the GPU when one
// is available and the software backend otherwise; the TIFF export
// reads samples back, which only the software backend supports.
package main

import (
	"flag"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/relief"
	"github.com/gogpu/relief/backend"
	"github.com/gogpu/relief/backend/software"
	"github.com/gogpu/relief/vtex"

	// Register the GPU backend; falls back to software when absent.
	_ "github.com/gogpu/relief/backend/wgpu"
)

func main() {
	var (
		tileSize = flag.Int("tile", 64, "tile edge in texels")
		capacity = flag.Int("capacity", 64, "cache capacity in tiles")
		budget   = flag.Int("budget", 8, "tiles computed per frame")
		baseTile = flag.Float64("base", 64, "world units per tile edge at level 0")
		lod      = flag.Int("lod", 0, "pyramid level to stream")
		frames   = flag.Int("frames", 24, "frames to simulate")
		backName = flag.String("backend", "", "backend name (default: auto)")
		output   = flag.String("output", "relief.tiff", "output TIFF file")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	relief.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	field := buildIsland()
	log.Printf("field: %d contours flattened, bounds %v", field.Len(), field.Bounds())

	// Spot-check the CPU query path.
	log.Printf("height at peak (170,230): %.1f", field.HeightAt(relief.Pt(170, 230)))
	log.Printf("height at sea (20,20): %.1f", field.HeightAt(relief.Pt(20, 20)))

	vt, be := openVirtualTexture(field, *backName,
		vtex.WithTileSize(*tileSize),
		vtex.WithCapacity(*capacity),
		vtex.WithBudget(*budget),
		vtex.WithBaseTileSize(*baseTile))
	defer vt.Close()
	log.Printf("streaming on %q backend", be.Name())

	// Pan a viewport across the island, one Update per frame.
	view := relief.NewRect(relief.Pt(60, 60), relief.Pt(316, 316))
	for frame := 0; frame < *frames; frame++ {
		vt.RequestRect(view, int32(*lod))
		vt.Update()
		view = relief.Rect{
			Min: view.Min.Add(relief.Pt(8, 6)),
			Max: view.Max.Add(relief.Pt(8, 6)),
		}
	}

	// Drain whatever the per-frame budget postponed.
	drained := 0
	for vt.Pending() > 0 {
		vt.Update()
		drained++
	}

	stats := vt.Stats()
	log.Printf("cache: %d/%d resident, %d hits, %d misses, %d evictions (%d drain frames)",
		stats.Len, stats.Capacity, stats.Hits, stats.Misses, stats.Evictions, drained)

	sw, ok := be.(*software.Backend)
	if !ok {
		log.Printf("backend %q has no sample readback; rerun with -backend=software for TIFF export", be.Name())
		return
	}
	if err := writeMosaic(vt, sw, view, int32(*lod), *output); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("final view saved to %s", *output)
}

// openVirtualTexture builds the virtual texture on the named backend,
// or on the registry default with a software fallback when the GPU is
// unavailable.
func openVirtualTexture(field *relief.Field, name string, opts ...vtex.Option) (*vtex.VirtualTexture, backend.TileBackend) {
	var be backend.TileBackend
	if name != "" {
		be = backend.Get(name)
		if be == nil {
			log.Fatalf("Unknown backend %q (available: %v)", name, backend.Available())
		}
	} else {
		be = backend.MustDefault()
	}

	vt, err := vtex.New(field, be, opts...)
	if err == nil {
		return vt, be
	}
	if name != "" || be.Name() == backend.BackendSoftware {
		log.Fatalf("Failed to open virtual texture: %v", err)
	}

	log.Printf("%q backend unavailable (%v), falling back to software", be.Name(), err)
	be = software.New()
	vt, err = vtex.New(field, be, opts...)
	if err != nil {
		log.Fatalf("Failed to open virtual texture: %v", err)
	}
	return vt, be
}

// writeMosaic re-requests the viewport, drains the queue, and stitches
// the resident tiles into one TIFF. Tiles that fall back to a coarser
// level are filled with the default height; with a drained queue and
// enough capacity that does not happen.
func writeMosaic(vt *vtex.VirtualTexture, sw *software.Backend, view relief.Rect, lod int32, path string) error {
	vt.RequestRect(view, lod)
	for vt.Pending() > 0 {
		vt.Update()
	}

	edge := vt.TileEdge(lod)
	x0 := int32(math.Floor(view.Min.X / edge))
	x1 := int32(math.Floor(view.Max.X / edge))
	y0 := int32(math.Floor(view.Min.Y / edge))
	y1 := int32(math.Floor(view.Max.Y / edge))

	ts := vt.TileSize()
	width := int(x1-x0+1) * ts
	height := int(y1-y0+1) * ts
	mosaic := make([]float32, width*height)

	def := float32(vt.Field().DefaultHeight())
	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			key := relief.TileKey{LOD: lod, X: tx, Y: ty}
			dstX := int(tx-x0) * ts
			dstY := int(ty-y0) * ts

			tile, ok := vt.Tile(key)
			if !ok || tile.Key != key {
				fillTile(mosaic, width, dstX, dstY, ts, def)
				continue
			}
			samples, err := sw.Slot(tile.Slot)
			if err != nil {
				return err
			}
			for row := 0; row < ts; row++ {
				copy(mosaic[(dstY+row)*width+dstX:], samples[row*ts:(row+1)*ts])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := software.EncodeTIFF(f, mosaic, width, height); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fillTile writes a constant height into one tile's region of the
// mosaic.
func fillTile(mosaic []float32, width, dstX, dstY, ts int, v float32) {
	for row := 0; row < ts; row++ {
		base := (dstY+row)*width + dstX
		for x := 0; x < ts; x++ {
			mosaic[base+x] = v
		}
	}
}

// buildIsland assembles the demo terrain: a coastal plain holding two
// highlands (one with a summit, one with a crater) and a mesa, three
// levels of nesting at the deepest.
func buildIsland() *relief.Field {
	contours := []relief.Contour{
		polygon(2, 256, 256, 220, 8),   // coast
		polygon(40, 170, 230, 70, 6),   // west hill
		polygon(90, 170, 230, 28, 5),   // summit
		polygon(35, 350, 280, 60, 4),   // east ridge
		polygon(55, 350, 280, 25, 4),   // crater rim
		polygon(10, 350, 280, 10, 4),   // crater floor
		polygon(25, 360, 140, 30, 4),   // mesa
	}

	tree, diags := relief.Build(contours)
	for _, d := range diags {
		log.Printf("terrain diagnostic: %v", d)
	}
	return relief.Flatten(tree)
}

// polygon builds a regular contour with the given circumradius.
func polygon(height, cx, cy, r float64, sides int) relief.Contour {
	pts := make([]relief.Point, sides)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(sides)
		pts[i] = relief.Pt(cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	return relief.NewContour(height, pts...)
}
