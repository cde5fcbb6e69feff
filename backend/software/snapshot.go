package software

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"golang.org/x/image/tiff"

	"github.com/gogpu/relief/tilecache"
)

// ErrBadDimensions is returned by EncodeTIFF when the sample count
// does not match width*height.
var ErrBadDimensions = errors.New("software: sample count does not match dimensions")

// EncodeTIFF writes row-major height samples as a deflate-compressed
// 16-bit grayscale TIFF. Heights are normalized per image: the
// smallest sample maps to black, the largest to white, and a flat
// image encodes as all black. Row 0 is the footprint's Min.Y edge.
func EncodeTIFF(w io.Writer, samples []float32, width, height int) error {
	if width <= 0 || height <= 0 || len(samples) != width*height {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrBadDimensions, len(samples), width, height)
	}

	lo, hi := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 65535 / float64(hi-lo)
	}

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := samples[y*width:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			v := uint16(math.Round(float64(row[x]-lo) * scale))
			// Gray16 Pix is big-endian.
			dst[x*2] = byte(v >> 8)
			dst[x*2+1] = byte(v)
		}
	}

	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("software: encode tiff: %w", err)
	}
	return nil
}

// SnapshotTIFF encodes one slot's samples as a TIFF, normalized over
// that slot alone. Useful for eyeballing tile output in tests and
// tools.
func (b *Backend) SnapshotTIFF(w io.Writer, slot tilecache.Slot) error {
	samples, err := b.Slot(slot)
	if err != nil {
		return err
	}
	return EncodeTIFF(w, samples, b.tileSize, b.tileSize)
}
